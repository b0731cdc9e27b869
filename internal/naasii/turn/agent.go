package turn

import (
	"context"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
)

// Agent supplies the decisions of the participant taking a turn. Lock
// selections are indices into the unlocked dice. The engine calls an agent
// again when a decision is rejected as invalid input.
type Agent interface {
	// ChooseRollOrStop is asked after each of the first three rolls.
	ChooseRollOrStop(ctx context.Context, state State) (Choice, error)
	// ChooseLocks is asked after ChoiceContinue.
	ChooseLocks(ctx context.Context, unlocked []dice.Face) ([]int, error)
	// ChoosePattern is asked when at least three dice are locked for scoring.
	ChoosePattern(ctx context.Context, locked []dice.Face) (scoring.Pattern, error)
}

// RejectionHandler is implemented by agents that want to be told why a
// decision was rejected before being asked again.
type RejectionHandler interface {
	Rejected(ctx context.Context, err error)
}

// Observer receives turn progress for display or recording.
type Observer interface {
	RollResolved(ctx context.Context, p Participant, rec RollRecord)
	TurnFinished(ctx context.Context, result Result)
}
