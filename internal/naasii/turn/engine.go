package turn

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/naasii/internal/core/dice"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrTooManyRejections is returned when an agent keeps supplying invalid
// decisions past the engine's rejection limit.
var ErrTooManyRejections = errors.New("agent exceeded rejection limit")

// Report is the outcome of a played turn.
type Report struct {
	Result Result
	Rolls  []RollRecord
}

// Engine plays turns against a roll collaborator and a turn agent.
type Engine struct {
	roller         dice.Roller
	logger         zerolog.Logger
	observers      []Observer
	rejectionLimit int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver adds an observer notified of every roll and turn end.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRejectionLimit ends a turn with ErrTooManyRejections once an agent
// has made n consecutive invalid decisions for one request. Zero means no
// limit.
func WithRejectionLimit(n int) Option {
	return func(e *Engine) { e.rejectionLimit = n }
}

// NewEngine returns an engine rolling dice with roller.
func NewEngine(roller dice.Roller, opts ...Option) *Engine {
	e := &Engine{roller: roller, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Play runs a turn for p, starting with bonus extra white dice, until it
// busts or scores. Decisions come from agent; decisions rejected as invalid
// input are requested again. Agent errors and context cancellation end the
// turn early with an error.
func (e *Engine) Play(ctx context.Context, p Participant, bonus int, agent Agent) (Report, error) {
	if agent == nil {
		return Report{}, fmt.Errorf("turn agent is required")
	}
	t, err := NewTurn(p, bonus)
	if err != nil {
		return Report{}, err
	}
	log := e.logger.With().Str("participant", p.Name).Logger()
	span := trace.SpanFromContext(ctx)

	for !t.Phase().Terminal() {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		switch t.Phase() {
		case PhaseRolling:
			rec, err := t.Roll(e.roller)
			if err != nil {
				return Report{}, err
			}
			log.Debug().
				Int("roll", rec.Roll).
				Str("white", dice.Format(rec.White)).
				Str("black", dice.Format(rec.Black)).
				Int("lucky_hits", rec.LuckyHits).
				Int("wildcards_cancelled", rec.WildcardsCancelled).
				Int("eliminated", len(rec.Eliminated)).
				Str("phase", rec.Phase.String()).
				Msg("roll resolved")
			span.AddEvent("roll", trace.WithAttributes(
				attribute.Int("naasii.roll", rec.Roll),
				attribute.Int("naasii.white", len(rec.White)),
				attribute.Int("naasii.black", len(rec.Black)),
				attribute.String("naasii.phase", rec.Phase.String()),
			))
			for _, o := range e.observers {
				o.RollResolved(ctx, p, rec)
			}
		case PhaseAwaitingDecision:
			if err := e.decide(ctx, t, agent, log); err != nil {
				return Report{}, err
			}
		case PhaseReadyToScore:
			if err := e.score(ctx, t, agent, log); err != nil {
				return Report{}, err
			}
		default:
			return Report{}, apperrors.New(apperrors.CodeInvalidPhase, fmt.Sprintf("unexpected phase %s", t.Phase()))
		}
	}

	result, _ := t.Result()
	log.Debug().
		Str("outcome", result.Outcome.String()).
		Int("score", result.Score).
		Int("nizi", result.Nizi).
		Int("eliminated", result.Eliminated).
		Msg("turn finished")
	for _, o := range e.observers {
		o.TurnFinished(ctx, result)
	}
	return Report{Result: result, Rolls: t.Transcript()}, nil
}

func (e *Engine) decide(ctx context.Context, t *Turn, agent Agent, log zerolog.Logger) error {
	for attempt := 0; ; attempt++ {
		if err := e.checkRetry(ctx, attempt); err != nil {
			return err
		}
		choice, err := agent.ChooseRollOrStop(ctx, t.State())
		if err != nil {
			return fmt.Errorf("choose roll or stop: %w", err)
		}
		switch choice {
		case ChoiceStop:
			return t.Stop()
		case ChoiceContinue:
			if len(t.pool.unlocked) == 0 {
				log.Info().Msg("no unlocked dice to lock, scoring instead")
				return t.Continue(nil)
			}
			return e.lock(ctx, t, agent, log)
		default:
			e.reject(ctx, agent, log, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("unknown choice %d", choice)))
		}
	}
}

func (e *Engine) lock(ctx context.Context, t *Turn, agent Agent, log zerolog.Logger) error {
	for attempt := 0; ; attempt++ {
		if err := e.checkRetry(ctx, attempt); err != nil {
			return err
		}
		indices, err := agent.ChooseLocks(ctx, t.pool.Unlocked())
		if err != nil {
			return fmt.Errorf("choose locks: %w", err)
		}
		err = t.Continue(indices)
		if err != nil && apperrors.CodeOf(err).Retryable() {
			e.reject(ctx, agent, log, err)
			continue
		}
		return err
	}
}

func (e *Engine) score(ctx context.Context, t *Turn, agent Agent, log zerolog.Logger) error {
	for attempt := 0; ; attempt++ {
		if err := e.checkRetry(ctx, attempt); err != nil {
			return err
		}
		pattern, err := agent.ChoosePattern(ctx, t.pool.Locked())
		if err != nil {
			return fmt.Errorf("choose pattern: %w", err)
		}
		err = t.Score(pattern)
		if err != nil && apperrors.CodeOf(err).Retryable() {
			e.reject(ctx, agent, log, err)
			continue
		}
		return err
	}
}

func (e *Engine) checkRetry(ctx context.Context, attempt int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.rejectionLimit > 0 && attempt >= e.rejectionLimit {
		return ErrTooManyRejections
	}
	return nil
}

func (e *Engine) reject(ctx context.Context, agent Agent, log zerolog.Logger, err error) {
	log.Warn().Err(err).Msg("decision rejected")
	if h, ok := agent.(RejectionHandler); ok {
		h.Rejected(ctx, err)
	}
}
