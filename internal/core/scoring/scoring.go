// Package scoring evaluates a finished dice pool against the two Naasii
// scoring patterns: a set of matching faces and a run of consecutive faces.
// Wildcards substitute for any plain face in both.
//
// All functions are pure. A result below MinScore is reported as 0.
package scoring

import (
	"fmt"
	"strconv"

	"github.com/louisbranch/naasii/internal/core/dice"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
)

// MinScore is the fewest dice a set or run must use to score.
const MinScore = 3

// Kind selects a scoring pattern.
type Kind int

const (
	KindUnspecified Kind = iota
	KindSet
	KindRun
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindRun:
		return "run"
	default:
		return "unspecified"
	}
}

// Pattern is a scoring choice: a set of Value, or a run starting at Value.
type Pattern struct {
	Kind  Kind
	Value dice.Face
}

// Set returns a set pattern for target.
func Set(target dice.Face) Pattern { return Pattern{Kind: KindSet, Value: target} }

// Run returns a run pattern starting at start.
func Run(start dice.Face) Pattern { return Pattern{Kind: KindRun, Value: start} }

func (p Pattern) String() string {
	switch p.Kind {
	case KindSet:
		return fmt.Sprintf("set of %ds", p.Value)
	case KindRun:
		return fmt.Sprintf("run from %d", p.Value)
	default:
		return "no pattern"
	}
}

// Validate rejects unknown kinds and parameters outside the plain faces.
func (p Pattern) Validate() error {
	if p.Kind != KindSet && p.Kind != KindRun {
		return apperrors.New(apperrors.CodeInvalidInput, "scoring pattern must be a set or a run")
	}
	return validatePlain(p.Kind.String(), p.Value)
}

// Evaluate scores pool with the chosen pattern.
func Evaluate(pool []dice.Face, p Pattern) (int, error) {
	switch p.Kind {
	case KindSet:
		return SetScore(pool, p.Value)
	case KindRun:
		return RunScore(pool, p.Value)
	default:
		return 0, p.Validate()
	}
}

// SetScore counts the dice showing target plus every Wildcard. The count is
// also the point value; fewer than MinScore dice score 0.
func SetScore(pool []dice.Face, target dice.Face) (int, error) {
	if err := validatePlain("set", target); err != nil {
		return 0, err
	}
	total := dice.Count(pool, target) + dice.CountWildcards(pool)
	if total < MinScore {
		return 0, nil
	}
	return total, nil
}

// RunScore builds the longest run from start upward, capped at the highest
// plain face. Positions are filled in order: a plain die of that exact value
// when one is left, else a Wildcard, else the run stops. Dice are consumed
// once and a Wildcard spent on an earlier position is never reconsidered.
// Runs shorter than MinScore score 0.
func RunScore(pool []dice.Face, start dice.Face) (int, error) {
	if err := validatePlain("run", start); err != nil {
		return 0, err
	}

	var counts [dice.MaxPlain + 1]int
	wilds := 0
	for _, f := range pool {
		switch {
		case f.IsWildcard():
			wilds++
		case f.IsPlain():
			counts[f]++
		}
	}

	length := 0
	for v := start; v <= dice.MaxPlain; v++ {
		if counts[v] > 0 {
			counts[v]--
		} else if wilds > 0 {
			wilds--
		} else {
			break
		}
		length++
	}
	if length < MinScore {
		return 0, nil
	}
	return length, nil
}

func validatePlain(kind string, value dice.Face) error {
	if value.IsPlain() {
		return nil
	}
	return apperrors.WithMetadata(
		apperrors.CodeInvalidInput,
		fmt.Sprintf("%s value must be between %d and %d", kind, dice.MinPlain, dice.MaxPlain),
		map[string]string{"pattern": kind, "value": strconv.Itoa(int(value))},
	)
}
