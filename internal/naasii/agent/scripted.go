// Package agent provides turn agents: scripted decision queues, Lua
// strategies, and an interactive console.
package agent

import (
	"context"
	"errors"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/turn"
)

// ErrScriptExhausted is returned when a scripted agent runs out of decisions.
var ErrScriptExhausted = errors.New("scripted agent has no decisions left")

// Scripted replays fixed decisions in order. Rejections are recorded.
type Scripted struct {
	Choices  []turn.Choice
	Locks    [][]int
	Patterns []scoring.Pattern

	Rejections []error
}

var (
	_ turn.Agent            = (*Scripted)(nil)
	_ turn.RejectionHandler = (*Scripted)(nil)
)

// ChooseRollOrStop returns the next queued choice.
func (s *Scripted) ChooseRollOrStop(ctx context.Context, _ turn.State) (turn.Choice, error) {
	if err := ctx.Err(); err != nil {
		return turn.ChoiceUnspecified, err
	}
	if len(s.Choices) == 0 {
		return turn.ChoiceUnspecified, ErrScriptExhausted
	}
	c := s.Choices[0]
	s.Choices = s.Choices[1:]
	return c, nil
}

// ChooseLocks returns the next queued lock selection.
func (s *Scripted) ChooseLocks(ctx context.Context, _ []dice.Face) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.Locks) == 0 {
		return nil, ErrScriptExhausted
	}
	l := s.Locks[0]
	s.Locks = s.Locks[1:]
	return l, nil
}

// ChoosePattern returns the next queued pattern.
func (s *Scripted) ChoosePattern(ctx context.Context, _ []dice.Face) (scoring.Pattern, error) {
	if err := ctx.Err(); err != nil {
		return scoring.Pattern{}, err
	}
	if len(s.Patterns) == 0 {
		return scoring.Pattern{}, ErrScriptExhausted
	}
	p := s.Patterns[0]
	s.Patterns = s.Patterns[1:]
	return p, nil
}

// Rejected records err.
func (s *Scripted) Rejected(_ context.Context, err error) {
	s.Rejections = append(s.Rejections, err)
}
