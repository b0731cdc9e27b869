package turn

// Phase is a state of the turn state machine.
type Phase int

const (
	PhaseUnspecified      Phase = iota
	PhaseRolling                // dice are ready to be rolled
	PhaseAwaitingDecision       // waiting for stop or continue
	PhaseReadyToScore           // waiting for a scoring pattern
	PhaseBust                   // terminal: lost the turn
	PhaseScored                 // terminal: scored or no-score
)

var phaseNames = map[Phase]string{
	PhaseUnspecified:      "Unspecified",
	PhaseRolling:          "Rolling",
	PhaseAwaitingDecision: "AwaitingDecision",
	PhaseReadyToScore:     "ReadyToScore",
	PhaseBust:             "Bust",
	PhaseScored:           "Scored",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "Unknown"
}

// Terminal reports whether the turn has ended.
func (p Phase) Terminal() bool {
	return p == PhaseBust || p == PhaseScored
}

// Outcome classifies how a turn ended.
type Outcome int

const (
	OutcomeInProgress Outcome = iota
	OutcomeScored
	OutcomeNoScore
	OutcomeBust
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInProgress:
		return "in progress"
	case OutcomeScored:
		return "scored"
	case OutcomeNoScore:
		return "no score"
	case OutcomeBust:
		return "bust"
	default:
		return "unknown"
	}
}

// BustReason records why a turn went bust.
type BustReason int

const (
	BustNone BustReason = iota
	// BustWildcards: adversary Wildcards outnumbered the participant's.
	BustWildcards
	// BustNoDice: eliminations left no dice locked or unlocked.
	BustNoDice
)

func (r BustReason) String() string {
	switch r {
	case BustWildcards:
		return "uncancelled adversary wildcard"
	case BustNoDice:
		return "no dice left"
	default:
		return "none"
	}
}

// Choice is the decision offered after each of the first three rolls.
type Choice int

const (
	ChoiceUnspecified Choice = iota
	ChoiceStop               // score with the dice in hand
	ChoiceContinue           // lock at least one die and roll again
)

func (c Choice) String() string {
	switch c {
	case ChoiceStop:
		return "stop"
	case ChoiceContinue:
		return "continue"
	default:
		return "unspecified"
	}
}
