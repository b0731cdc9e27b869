// Package turn resolves a single Naasii turn: rolling white and black dice
// across up to four rolls, cancelling and eliminating dice, detecting a bust,
// and scoring the locked dice.
package turn

import (
	"fmt"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
)

const (
	// StartingDice is the white dice count of a turn before carried bonus.
	StartingDice = 3
	// MaxRolls is the number of rolls in a turn.
	MaxRolls = 4
	// ExtraWhitePerRoll is added to the remaining unlocked dice on continue.
	ExtraWhitePerRoll = 2
	// ExtraBlackPerRoll is added to the black dice on continue.
	ExtraBlackPerRoll = 1
	// BustNizi is awarded for a bust.
	BustNizi = 3
	// NoScoreNizi is awarded for a no-score.
	NoScoreNizi = 4
)

// Participant identifies who is taking the turn.
type Participant struct {
	ID    string
	Name  string
	Lucky dice.Face
}

// State is a read-only snapshot of a turn, handed to agents and renderers.
type State struct {
	Participant Participant
	Phase       Phase
	Roll        int
	Locked      []dice.Face
	Unlocked    []dice.Face
	// Black holds the adversary dice of the latest roll.
	Black      []dice.Face
	WhiteDice  int
	BlackDice  int
	Nizi       int
	Eliminated int
}

// RollRecord is the transcript entry of one resolved roll.
type RollRecord struct {
	Roll               int
	LockedBefore       []dice.Face
	White              []dice.Face
	Black              []dice.Face
	LuckyHits          int
	WildcardsCancelled int
	Eliminated         []dice.Face
	Surviving          []dice.Face
	Locked             []dice.Face
	Bust               BustReason
	Phase              Phase
}

// Result summarises a finished turn.
type Result struct {
	Participant Participant
	Outcome     Outcome
	Score       int
	Nizi        int
	// Eliminated is the dice count carried to the next participant.
	Eliminated int
	Bust       BustReason
	Pattern    scoring.Pattern
	Rolls      int
	LuckyHits  int
}

// Turn is the state machine of one participant's turn. A Turn is owned by
// a single caller and is not safe for concurrent use.
type Turn struct {
	participant Participant
	phase       Phase
	roll        int
	pool        Pool
	white       int
	black       int
	lastBlack   []dice.Face
	nizi        int
	luckyHits   int
	eliminated  int
	score       int
	outcome     Outcome
	bust        BustReason
	pattern     scoring.Pattern
	transcript  []RollRecord
}

// NewTurn starts a turn with StartingDice plus bonus white dice and no black
// dice.
func NewTurn(p Participant, bonus int) (*Turn, error) {
	if !p.Lucky.IsPlain() {
		return nil, apperrors.New(apperrors.CodeInvalidConfig,
			fmt.Sprintf("lucky number must be between %d and %d", dice.MinPlain, dice.MaxPlain))
	}
	if bonus < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidConfig, "bonus dice cannot be negative")
	}
	return &Turn{
		participant: p,
		phase:       PhaseRolling,
		roll:        1,
		pool:        NewPool(nil, nil),
		white:       StartingDice + bonus,
		black:       0,
		lastBlack:   []dice.Face{},
	}, nil
}

// Phase returns the current phase.
func (t *Turn) Phase() Phase { return t.phase }

// Pool returns the current dice pool.
func (t *Turn) Pool() Pool { return t.pool }

// State returns a snapshot of the turn.
func (t *Turn) State() State {
	return State{
		Participant: t.participant,
		Phase:       t.phase,
		Roll:        t.roll,
		Locked:      t.pool.Locked(),
		Unlocked:    t.pool.Unlocked(),
		Black:       dice.Clone(t.lastBlack),
		WhiteDice:   t.white,
		BlackDice:   t.black,
		Nizi:        t.nizi,
		Eliminated:  t.eliminated,
	}
}

// Transcript returns the resolved rolls so far.
func (t *Turn) Transcript() []RollRecord {
	out := make([]RollRecord, len(t.transcript))
	copy(out, t.transcript)
	return out
}

// Result returns the turn summary once the turn is terminal.
func (t *Turn) Result() (Result, bool) {
	if !t.phase.Terminal() {
		return Result{}, false
	}
	return Result{
		Participant: t.participant,
		Outcome:     t.outcome,
		Score:       t.score,
		Nizi:        t.nizi,
		Eliminated:  t.eliminated,
		Bust:        t.bust,
		Pattern:     t.pattern,
		Rolls:       len(t.transcript),
		LuckyHits:   t.luckyHits,
	}, true
}

// Roll rolls the pending white and black dice and resolves them.
func (t *Turn) Roll(roller dice.Roller) (RollRecord, error) {
	if err := t.expect(PhaseRolling); err != nil {
		return RollRecord{}, err
	}
	white := roller.Roll(t.white)
	black := roller.Roll(t.black)
	return t.Resolve(white, black)
}

// Resolve applies one roll of white and black dice:
//
//  1. every white die showing the lucky number earns one Nizi;
//  2. each black Wildcard cancels one of the participant's Wildcards
//     (unlocked first), and any black Wildcard left uncancelled is a bust;
//  3. every plain black face eliminates all unlocked dice showing it;
//  4. a pool with no dice left is a bust;
//  5. after the last roll all surviving dice are locked for scoring.
//
// Cancelled and eliminated dice are counted toward the next participant's
// bonus.
func (t *Turn) Resolve(white, black []dice.Face) (RollRecord, error) {
	if err := t.expect(PhaseRolling); err != nil {
		return RollRecord{}, err
	}
	if len(white) != t.white || len(black) != t.black {
		return RollRecord{}, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("expected %d white and %d black dice, got %d and %d", t.white, t.black, len(white), len(black)))
	}
	if err := validFaces(white, black); err != nil {
		return RollRecord{}, err
	}

	rec := RollRecord{
		Roll:         t.roll,
		LockedBefore: t.pool.Locked(),
		White:        dice.Clone(white),
		Black:        dice.Clone(black),
		LuckyHits:    dice.Count(white, t.participant.Lucky),
	}
	t.nizi += rec.LuckyHits
	t.luckyHits += rec.LuckyHits
	t.lastBlack = dice.Clone(black)

	pool := t.pool.WithUnlocked(white)
	own := pool.Wildcards()
	adversary := dice.CountWildcards(black)
	pool, rec.WildcardsCancelled = pool.CancelWildcards(min(own, adversary))
	t.eliminated += rec.WildcardsCancelled

	if adversary > own {
		t.pool = pool
		t.goBust(BustWildcards)
		return t.record(rec), nil
	}

	pool, rec.Eliminated = pool.EliminateMatching(black)
	t.eliminated += len(rec.Eliminated)
	t.pool = pool

	if pool.Empty() {
		t.goBust(BustNoDice)
		return t.record(rec), nil
	}

	rec.Surviving = pool.Unlocked()
	if t.roll == MaxRolls {
		t.pool = pool.LockAll()
		t.readyToScore()
	} else {
		t.phase = PhaseAwaitingDecision
	}
	return t.record(rec), nil
}

// Stop locks every surviving unlocked die and moves to scoring.
func (t *Turn) Stop() error {
	if err := t.expect(PhaseAwaitingDecision); err != nil {
		return err
	}
	t.pool = t.pool.LockAll()
	t.readyToScore()
	return nil
}

// Continue locks the selected unlocked dice and prepares the next roll with
// the remaining unlocked dice plus ExtraWhitePerRoll, and the latest black
// dice plus ExtraBlackPerRoll. With no unlocked dice left there is nothing
// to lock, so the turn stops instead. An invalid selection leaves the turn
// unchanged.
func (t *Turn) Continue(indices []int) error {
	if err := t.expect(PhaseAwaitingDecision); err != nil {
		return err
	}
	if len(t.pool.unlocked) == 0 {
		return t.Stop()
	}
	pool, err := t.pool.Lock(indices)
	if err != nil {
		return err
	}
	t.pool = pool
	t.white = len(pool.unlocked) + ExtraWhitePerRoll
	t.black = len(t.lastBlack) + ExtraBlackPerRoll
	t.roll++
	t.phase = PhaseRolling
	return nil
}

// Score evaluates the locked dice with the chosen pattern. A pattern that
// cannot be completed is a no-score. An out-of-range pattern is invalid
// input and leaves the turn unchanged.
func (t *Turn) Score(p scoring.Pattern) error {
	if err := t.expect(PhaseReadyToScore); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	points, err := scoring.Evaluate(t.pool.locked, p)
	if err != nil {
		return err
	}
	t.pattern = p
	if points == 0 {
		t.noScore()
		return nil
	}
	t.score = points
	t.outcome = OutcomeScored
	t.phase = PhaseScored
	return nil
}

func (t *Turn) readyToScore() {
	t.phase = PhaseReadyToScore
	if len(t.pool.locked) < scoring.MinScore {
		t.noScore()
	}
}

func (t *Turn) noScore() {
	t.score = 0
	t.nizi += NoScoreNizi
	t.outcome = OutcomeNoScore
	t.phase = PhaseScored
}

func (t *Turn) goBust(reason BustReason) {
	t.score = 0
	t.nizi += BustNizi
	t.bust = reason
	t.outcome = OutcomeBust
	t.phase = PhaseBust
}

func (t *Turn) record(rec RollRecord) RollRecord {
	rec.Locked = t.pool.Locked()
	if rec.Surviving == nil {
		rec.Surviving = []dice.Face{}
	}
	if rec.Eliminated == nil {
		rec.Eliminated = []dice.Face{}
	}
	rec.Bust = t.bust
	rec.Phase = t.phase
	t.transcript = append(t.transcript, rec)
	return rec
}

func (t *Turn) expect(phase Phase) error {
	if t.phase == phase {
		return nil
	}
	return apperrors.WithMetadata(
		apperrors.CodeInvalidPhase,
		fmt.Sprintf("turn is %s, not %s", t.phase, phase),
		map[string]string{"phase": t.phase.String(), "expected": phase.String()},
	)
}

func validFaces(groups ...[]dice.Face) error {
	for _, faces := range groups {
		for _, f := range faces {
			if !f.Valid() {
				return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("die face %d is out of range", f))
			}
		}
	}
	return nil
}
