package round

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/storage"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	"github.com/louisbranch/naasii/internal/platform/id"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TurnPlayer plays one turn to completion. *turn.Engine implements it.
type TurnPlayer interface {
	Play(ctx context.Context, p turn.Participant, bonus int, agent turn.Agent) (turn.Report, error)
}

// Seat pairs a player with the agent making their decisions.
type Seat struct {
	Player Player
	Agent  turn.Agent
}

// TurnLog is one completed turn in play order.
type TurnLog struct {
	Round  int
	Seat   int
	Bonus  int
	Report turn.Report
}

// TurnStart describes a turn about to be played.
type TurnStart struct {
	Round  int
	Rounds int
	Seat   int
	Player Player
	Bonus  int
}

// TurnEnd describes a completed turn and where its eliminated dice go.
type TurnEnd struct {
	Log       TurnLog
	NiziTotal int
	Next      Player
}

// Observer receives game progress for display.
type Observer interface {
	TurnStarting(ctx context.Context, start TurnStart)
	TurnCompleted(ctx context.Context, end TurnEnd)
}

// Game is the outcome of a full game.
type Game struct {
	ID        string
	Rounds    int
	Records   []PlayerRecord
	Turns     []TurnLog
	Standings []Standing
}

// Controller runs a game over a fixed cyclic seat order.
type Controller struct {
	player TurnPlayer
	seats  []Seat
	rounds int

	store     storage.GameStore
	observers []Observer
	seed      int64

	logger zerolog.Logger
	tracer trace.Tracer
	meter  metric.Meter
	turns  metric.Int64Counter
	now    func() time.Time
	newID  func() (string, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithStore records the game, every turn, and the standings in store.
func WithStore(store storage.GameStore) Option {
	return func(c *Controller) { c.store = store }
}

// WithObserver adds an observer notified around every turn.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithSeed records the dice seed alongside the stored game.
func WithSeed(seed int64) Option {
	return func(c *Controller) { c.seed = seed }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMeter overrides the global meter.
func WithMeter(m metric.Meter) Option {
	return func(c *Controller) {
		if m != nil {
			c.meter = m
		}
	}
}

// WithClock overrides the wall clock used for stored timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides how game and player identifiers are generated.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewController validates the seats and returns a controller that plays
// turns through player.
func NewController(player TurnPlayer, seats []Seat, opts ...Option) (*Controller, error) {
	if player == nil {
		return nil, fmt.Errorf("turn player is required")
	}
	c := &Controller{
		player: player,
		logger: zerolog.Nop(),
		tracer: tracer(),
		meter:  meter(),
		now:    time.Now,
		newID:  id.NewID,
	}
	for _, opt := range opts {
		opt(c)
	}

	players := make([]Player, len(seats))
	for i, s := range seats {
		players[i] = s.Player
	}
	if err := ValidatePlayers(players); err != nil {
		return nil, err
	}
	c.rounds, _ = RoundsFor(len(seats))

	c.seats = make([]Seat, len(seats))
	for i, s := range seats {
		if s.Agent == nil {
			return nil, fmt.Errorf("seat %d has no agent", i+1)
		}
		if s.Player.ID == "" {
			playerID, err := c.newID()
			if err != nil {
				return nil, fmt.Errorf("player id: %w", err)
			}
			s.Player.ID = playerID
		}
		c.seats[i] = s
	}

	var err error
	c.turns, err = c.meter.Int64Counter(
		"naasii.turns",
		metric.WithDescription("Turns played by outcome"),
		metric.WithUnit("{turn}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}
	return c, nil
}

// Rounds returns the number of rounds the game lasts.
func (c *Controller) Rounds() int { return c.rounds }

// Play runs every round. Each turn's eliminated dice become the starting
// bonus of the next seat, wrapping from the last seat to the first.
func (c *Controller) Play(ctx context.Context) (Game, error) {
	gameID, err := c.newID()
	if err != nil {
		return Game{}, fmt.Errorf("game id: %w", err)
	}
	ctx, span := c.tracer.Start(ctx, "naasii.game", trace.WithAttributes(
		attribute.String("naasii.game_id", gameID),
		attribute.Int("naasii.players", len(c.seats)),
		attribute.Int("naasii.rounds", c.rounds),
	))
	defer span.End()

	log := c.logger.With().Str("game_id", gameID).Logger()
	log.Info().Int("players", len(c.seats)).Int("rounds", c.rounds).Msg("game started")

	game, err := c.play(ctx, gameID, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Game{}, err
	}
	return game, nil
}

func (c *Controller) play(ctx context.Context, gameID string, log zerolog.Logger) (Game, error) {
	if c.store != nil {
		if err := c.store.CreateGame(ctx, c.storedGame(gameID)); err != nil {
			return Game{}, fmt.Errorf("create game: %w", err)
		}
	}

	n := len(c.seats)
	game := Game{
		ID:      gameID,
		Rounds:  c.rounds,
		Records: make([]PlayerRecord, n),
		Turns:   make([]TurnLog, 0, n*c.rounds),
	}
	for i, s := range c.seats {
		game.Records[i] = PlayerRecord{Player: s.Player, Scores: make([]int, 0, c.rounds)}
	}

	pending := make([]int, n)
	for round := 1; round <= c.rounds; round++ {
		for seat := range c.seats {
			bonus := pending[seat]
			pending[seat] = 0
			for _, o := range c.observers {
				o.TurnStarting(ctx, TurnStart{Round: round, Rounds: c.rounds, Seat: seat, Player: c.seats[seat].Player, Bonus: bonus})
			}

			report, err := c.playTurn(ctx, round, seat, bonus)
			if err != nil {
				return Game{}, err
			}
			result := report.Result
			game.Records[seat].apply(result)
			next := (seat + 1) % n
			pending[next] += result.Eliminated
			entry := TurnLog{Round: round, Seat: seat, Bonus: bonus, Report: report}
			game.Turns = append(game.Turns, entry)
			for _, o := range c.observers {
				o.TurnCompleted(ctx, TurnEnd{Log: entry, NiziTotal: game.Records[seat].Nizi, Next: c.seats[next].Player})
			}

			log.Info().
				Int("round", round).
				Str("player", result.Participant.Name).
				Int("bonus", bonus).
				Str("outcome", result.Outcome.String()).
				Int("score", result.Score).
				Int("nizi", result.Nizi).
				Int("eliminated", result.Eliminated).
				Msg("turn complete")

			if c.store != nil {
				if err := c.store.RecordTurn(ctx, storedTurn(gameID, round, seat, bonus, result)); err != nil {
					return Game{}, fmt.Errorf("record turn: %w", err)
				}
			}
		}
	}

	game.Standings = Standings(game.Records)
	for _, s := range game.Standings {
		log.Info().
			Str("player", s.Player.Name).
			Int("round_total", s.RoundTotal).
			Int("nizi_bonus", s.NiziBonus).
			Int("final", s.Final).
			Bool("winner", s.Winner).
			Msg("final standing")
	}
	if c.store != nil {
		if err := c.store.FinishGame(ctx, gameID, c.now().UTC(), storedStandings(game.Standings)); err != nil {
			return Game{}, fmt.Errorf("finish game: %w", err)
		}
	}
	return game, nil
}

func (c *Controller) playTurn(ctx context.Context, round, seat, bonus int) (turn.Report, error) {
	s := c.seats[seat]
	ctx, span := c.tracer.Start(ctx, "naasii.turn", trace.WithAttributes(
		attribute.Int("naasii.round", round),
		attribute.Int("naasii.seat", seat),
		attribute.String("naasii.player", s.Player.Name),
		attribute.Int("naasii.bonus", bonus),
	))
	defer span.End()

	report, err := c.player.Play(ctx, s.Player.Participant(), bonus, s.Agent)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return turn.Report{}, fmt.Errorf("round %d, %s: %w", round, s.Player.Name, err)
	}
	result := report.Result
	span.SetAttributes(
		attribute.String("naasii.outcome", result.Outcome.String()),
		attribute.Int("naasii.score", result.Score),
		attribute.Int("naasii.nizi", result.Nizi),
		attribute.Int("naasii.eliminated", result.Eliminated),
	)
	c.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result.Outcome.String())))
	return report, nil
}

func (c *Controller) storedGame(gameID string) storage.Game {
	players := make([]storage.Player, len(c.seats))
	for i, s := range c.seats {
		players[i] = storage.Player{Seat: i, ID: s.Player.ID, Name: s.Player.Name, Lucky: int(s.Player.Lucky)}
	}
	return storage.Game{
		ID:        gameID,
		Seed:      c.seed,
		Rounds:    c.rounds,
		Players:   players,
		StartedAt: c.now().UTC(),
	}
}

func storedTurn(gameID string, round, seat, bonus int, result turn.Result) storage.Turn {
	pattern := ""
	if result.Outcome != turn.OutcomeBust && result.Pattern.Kind != scoring.KindUnspecified {
		pattern = result.Pattern.String()
	}
	return storage.Turn{
		GameID:     gameID,
		Round:      round,
		Seat:       seat,
		PlayerID:   result.Participant.ID,
		Bonus:      bonus,
		Outcome:    result.Outcome.String(),
		Pattern:    pattern,
		Score:      result.Score,
		Nizi:       result.Nizi,
		Eliminated: result.Eliminated,
		Rolls:      result.Rolls,
	}
}

func storedStandings(standings []Standing) []storage.Standing {
	out := make([]storage.Standing, len(standings))
	for i, s := range standings {
		out[i] = storage.Standing{
			Seat:       s.Seat,
			PlayerID:   s.Player.ID,
			Name:       s.Player.Name,
			RoundTotal: s.RoundTotal,
			Nizi:       s.Nizi,
			NiziBonus:  s.NiziBonus,
			Final:      s.Final,
			Winner:     s.Winner,
		}
	}
	return out
}
