package round

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/storage"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type playCall struct {
	name  string
	bonus int
}

// scriptedPlayer returns queued results per player name.
type scriptedPlayer struct {
	t       *testing.T
	results map[string][]turn.Result
	calls   []playCall
	failOn  int
}

func (p *scriptedPlayer) Play(_ context.Context, part turn.Participant, bonus int, _ turn.Agent) (turn.Report, error) {
	p.calls = append(p.calls, playCall{name: part.Name, bonus: bonus})
	if p.failOn > 0 && len(p.calls) == p.failOn {
		return turn.Report{}, errors.New("agent hung up")
	}
	queue := p.results[part.Name]
	if len(queue) == 0 {
		p.t.Fatalf("no scripted result for %s", part.Name)
	}
	r := queue[0]
	p.results[part.Name] = queue[1:]
	r.Participant = part
	return turn.Report{Result: r}, nil
}

type nopAgent struct{}

func (nopAgent) ChooseRollOrStop(context.Context, turn.State) (turn.Choice, error) {
	return turn.ChoiceStop, nil
}

func (nopAgent) ChooseLocks(context.Context, []dice.Face) ([]int, error) { return []int{0}, nil }

func (nopAgent) ChoosePattern(context.Context, []dice.Face) (scoring.Pattern, error) {
	return scoring.Set(1), nil
}

type memStore struct {
	games     []storage.Game
	turns     []storage.Turn
	finished  string
	standings []storage.Standing
}

func (s *memStore) CreateGame(_ context.Context, g storage.Game) error {
	s.games = append(s.games, g)
	return nil
}

func (s *memStore) RecordTurn(_ context.Context, t storage.Turn) error {
	s.turns = append(s.turns, t)
	return nil
}

func (s *memStore) FinishGame(_ context.Context, gameID string, _ time.Time, st []storage.Standing) error {
	s.finished = gameID
	s.standings = st
	return nil
}

func (s *memStore) GetGame(context.Context, string) (storage.GameSummary, error) {
	return storage.GameSummary{}, storage.ErrNotFound
}

func (s *memStore) ListGames(context.Context, int) ([]storage.GameSummary, error) { return nil, nil }

func (s *memStore) ListTurns(context.Context, string) ([]storage.Turn, error) { return nil, nil }

func seats(names ...string) []Seat {
	out := make([]Seat, len(names))
	for i, n := range names {
		out[i] = Seat{Player: Player{ID: "id-" + n, Name: n, Lucky: dice.Face(i + 1)}, Agent: nopAgent{}}
	}
	return out
}

func scored(score, nizi, eliminated int) turn.Result {
	return turn.Result{Outcome: turn.OutcomeScored, Score: score, Nizi: nizi, Eliminated: eliminated, Pattern: scoring.Set(3)}
}

func fixedID(ids ...string) func() (string, error) {
	return func() (string, error) {
		if len(ids) == 0 {
			return "", errors.New("out of ids")
		}
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}
}

func TestControllerFourPlayerSharedWin(t *testing.T) {
	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": {scored(5, 1, 0), scored(5, 0, 0), scored(5, 2, 0), scored(5, 0, 0), scored(0, 0, 0), scored(0, 0, 0)},
		"B": {scored(10, 4, 0), scored(0, 0, 0), scored(10, 1, 0), scored(0, 0, 0), scored(0, 0, 0), scored(0, 0, 0)},
		"C": {scored(6, 0, 0), scored(6, 2, 0), scored(6, 0, 0), scored(0, 0, 0), scored(0, 0, 0), scored(0, 0, 0)},
		"D": {scored(15, 0, 0), scored(0, 0, 0), scored(0, 0, 0), scored(0, 0, 0), scored(0, 0, 0), scored(0, 0, 0)},
	}}
	c, err := NewController(player, seats("A", "B", "C", "D"), WithIDGenerator(fixedID("game-1")))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if c.Rounds() != 6 {
		t.Fatalf("rounds = %d, want 6", c.Rounds())
	}

	game, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if game.ID != "game-1" {
		t.Fatalf("game id = %q", game.ID)
	}
	if len(game.Turns) != 24 {
		t.Fatalf("turns = %d, want 24", len(game.Turns))
	}
	for _, r := range game.Records {
		if len(r.Scores) != 6 {
			t.Fatalf("%s scores = %d, want 6", r.Player.Name, len(r.Scores))
		}
	}
	wantFinal := []int{21, 21, 18, 15}
	for i, s := range game.Standings {
		if s.Final != wantFinal[i] {
			t.Fatalf("%s final = %d, want %d", s.Player.Name, s.Final, wantFinal[i])
		}
	}
	winners := Winners(game.Standings)
	if len(winners) != 2 {
		t.Fatalf("winners = %d, want 2", len(winners))
	}
}

func TestControllerCarriesEliminatedDiceToSuccessor(t *testing.T) {
	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": {scored(3, 0, 2), scored(3, 0, 0), scored(3, 0, 1), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0)},
		"B": {scored(3, 0, 1), scored(3, 0, 4), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0)},
		"C": {scored(3, 0, 3), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 0), scored(3, 0, 5)},
	}}
	c, err := NewController(player, seats("A", "B", "C"), WithIDGenerator(fixedID("game-1")))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	game, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	want := []playCall{
		{"A", 0}, {"B", 2}, {"C", 1},
		{"A", 3}, {"B", 0}, {"C", 4},
		{"A", 0}, {"B", 1}, {"C", 0},
	}
	for i, w := range want {
		if player.calls[i] != w {
			t.Fatalf("call %d = %+v, want %+v", i, player.calls[i], w)
		}
	}

	// Each turn's eliminations are exactly the next turn's bonus.
	for i := 0; i+1 < len(game.Turns); i++ {
		elim := game.Turns[i].Report.Result.Eliminated
		if next := game.Turns[i+1].Bonus; next != elim {
			t.Fatalf("turn %d eliminated %d but turn %d started with %d", i, elim, i+1, next)
		}
	}
}

func TestControllerCarryOverConservedAcrossRounds(t *testing.T) {
	results := map[string][]turn.Result{}
	names := []string{"A", "B", "C", "D", "E"}
	for i, n := range names {
		for r := 0; r < 5; r++ {
			results[n] = append(results[n], scored(0, 0, (i+r)%4))
		}
	}
	player := &scriptedPlayer{t: t, results: results}
	c, err := NewController(player, seats(names...), WithIDGenerator(fixedID("game-1")))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	game, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	n := len(names)
	for start := 0; start+n < len(game.Turns); start++ {
		emitted, applied := 0, 0
		for k := start; k < start+n; k++ {
			emitted += game.Turns[k].Report.Result.Eliminated
			applied += game.Turns[k+1].Bonus
		}
		if emitted != applied {
			t.Fatalf("window %d: emitted %d, applied %d", start, emitted, applied)
		}
	}
}

func TestControllerRecordsToStore(t *testing.T) {
	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": repeat(scored(4, 1, 0), 11),
		"B": repeat(turn.Result{Outcome: turn.OutcomeBust, Nizi: 3, Eliminated: 1}, 11),
	}}
	store := &memStore{}
	now := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	c, err := NewController(player, seats("A", "B"),
		WithStore(store),
		WithSeed(99),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(fixedID("game-1")),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if _, err := c.Play(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}

	if len(store.games) != 1 {
		t.Fatalf("games = %d, want 1", len(store.games))
	}
	g := store.games[0]
	if g.ID != "game-1" || g.Seed != 99 || g.Rounds != 11 || !g.StartedAt.Equal(now) {
		t.Fatalf("stored game = %+v", g)
	}
	if len(g.Players) != 2 || g.Players[1].Name != "B" || g.Players[1].Lucky != 2 {
		t.Fatalf("stored players = %+v", g.Players)
	}
	if len(store.turns) != 22 {
		t.Fatalf("turns = %d, want 22", len(store.turns))
	}
	if first := store.turns[0]; first.Pattern != "set of 3s" || first.Outcome != "scored" || first.PlayerID != "id-A" {
		t.Fatalf("first turn = %+v", first)
	}
	if second := store.turns[1]; second.Pattern != "" || second.Outcome != "bust" || second.Nizi != 3 {
		t.Fatalf("second turn = %+v", second)
	}
	if store.finished != "game-1" || len(store.standings) != 2 {
		t.Fatalf("finished = %q standings = %d", store.finished, len(store.standings))
	}
	if !store.standings[0].Winner || store.standings[0].Final != 44+3 {
		t.Fatalf("standing A = %+v", store.standings[0])
	}
	if store.standings[1].Final != 11 {
		t.Fatalf("standing B = %+v", store.standings[1])
	}
}

func TestControllerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": repeat(scored(3, 0, 0), 11),
		"B": repeat(scored(3, 0, 0), 11),
	}}
	c, err := NewController(player, seats("A", "B"),
		WithTracer(provider.Tracer("test")),
		WithIDGenerator(fixedID("game-1")),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if _, err := c.Play(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}

	counts := map[string]int{}
	for _, s := range recorder.Ended() {
		counts[s.Name()]++
	}
	if counts["naasii.game"] != 1 || counts["naasii.turn"] != 22 {
		t.Fatalf("span counts = %v", counts)
	}
}

func TestControllerCountsTurnsByOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bust := turn.Result{Outcome: turn.OutcomeBust, Nizi: 3}
	noScore := turn.Result{Outcome: turn.OutcomeNoScore, Nizi: 4}
	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": append(repeat(scored(3, 0, 0), 9), bust, bust),
		"B": append(repeat(scored(3, 0, 0), 10), noScore),
	}}
	c, err := NewController(player, seats("A", "B"),
		WithMeter(provider.Meter("test")),
		WithIDGenerator(fixedID("game-1")),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if _, err := c.Play(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "naasii.turns" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("naasii.turns data = %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				got[outcome.AsString()] += dp.Value
			}
		}
	}
	want := map[string]int64{"scored": 19, "bust": 2, "no score": 1}
	if len(got) != len(want) {
		t.Fatalf("turn counts = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("turn counts = %v, want %v", got, want)
		}
	}
}

func TestControllerTurnError(t *testing.T) {
	player := &scriptedPlayer{t: t, failOn: 3, results: map[string][]turn.Result{
		"A": repeat(scored(3, 0, 0), 11),
		"B": repeat(scored(3, 0, 0), 11),
	}}
	c, err := NewController(player, seats("A", "B"), WithIDGenerator(fixedID("game-1")))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if _, err := c.Play(context.Background()); err == nil {
		t.Fatal("expected turn error")
	}
}

func TestControllerAssignsPlayerIDs(t *testing.T) {
	s := seats("A", "B")
	s[0].Player.ID = ""
	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": repeat(scored(3, 0, 0), 11),
		"B": repeat(scored(3, 0, 0), 11),
	}}
	c, err := NewController(player, s, WithIDGenerator(fixedID("player-a", "game-1")))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	game, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if game.Records[0].Player.ID != "player-a" {
		t.Fatalf("player id = %q", game.Records[0].Player.ID)
	}
	if player.calls[0].name != "A" {
		t.Fatalf("first call = %+v", player.calls[0])
	}
}

func TestNewControllerRejectsBadSetup(t *testing.T) {
	tests := []struct {
		name   string
		player TurnPlayer
		seats  []Seat
	}{
		{name: "nil player", seats: seats("A", "B")},
		{name: "one seat", player: &scriptedPlayer{}, seats: seats("A")},
		{name: "six seats", player: &scriptedPlayer{}, seats: seats("A", "B", "C", "D", "E", "F")},
		{name: "missing agent", player: &scriptedPlayer{}, seats: []Seat{
			{Player: Player{Name: "A", Lucky: 1}, Agent: nopAgent{}},
			{Player: Player{Name: "B", Lucky: 2}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewController(tt.player, tt.seats); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestControllerWithEngine(t *testing.T) {
	engine := turn.NewEngine(dice.NewSeededRoller(7), turn.WithRejectionLimit(5))
	c, err := NewController(engine, seats("A", "B", "C"))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	game, err := c.Play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(game.Turns) != 3*8 {
		t.Fatalf("turns = %d, want 24", len(game.Turns))
	}
	for i, tl := range game.Turns {
		r := tl.Report.Result
		switch r.Outcome {
		case turn.OutcomeScored, turn.OutcomeNoScore, turn.OutcomeBust:
		default:
			t.Fatalf("turn %d outcome = %s", i, r.Outcome)
		}
		if i > 0 && tl.Bonus != game.Turns[i-1].Report.Result.Eliminated {
			t.Fatalf("turn %d bonus = %d, want %d", i, tl.Bonus, game.Turns[i-1].Report.Result.Eliminated)
		}
	}
	if len(Winners(game.Standings)) == 0 {
		t.Fatal("expected at least one winner")
	}
}

func repeat(r turn.Result, n int) []turn.Result {
	out := make([]turn.Result, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func ExampleStandings() {
	standings := Standings([]PlayerRecord{
		{Player: Player{Name: "Ann"}, Scores: []int{7, 5}, Nizi: 4},
		{Player: Player{Name: "Ben"}, Scores: []int{9, 4}},
	})
	for _, s := range standings {
		fmt.Println(s.Player.Name, s.Final, s.Winner)
	}
	// Output:
	// Ann 13 true
	// Ben 13 true
}

type recordingGameObserver struct {
	starts []TurnStart
	ends   []TurnEnd
}

func (o *recordingGameObserver) TurnStarting(_ context.Context, start TurnStart) {
	o.starts = append(o.starts, start)
}

func (o *recordingGameObserver) TurnCompleted(_ context.Context, end TurnEnd) {
	o.ends = append(o.ends, end)
}

func TestControllerNotifiesObservers(t *testing.T) {
	player := &scriptedPlayer{t: t, results: map[string][]turn.Result{
		"A": repeat(scored(3, 2, 1), 11),
		"B": repeat(scored(3, 1, 0), 11),
	}}
	obs := &recordingGameObserver{}
	c, err := NewController(player, seats("A", "B"), WithObserver(obs), WithIDGenerator(fixedID("game-1")))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if _, err := c.Play(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(obs.starts) != 22 || len(obs.ends) != 22 {
		t.Fatalf("starts = %d ends = %d, want 22", len(obs.starts), len(obs.ends))
	}
	if s := obs.starts[1]; s.Round != 1 || s.Rounds != 11 || s.Player.Name != "B" || s.Bonus != 1 {
		t.Fatalf("second start = %+v", s)
	}
	if e := obs.ends[2]; e.NiziTotal != 4 || e.Next.Name != "B" {
		t.Fatalf("third end = %+v", e)
	}
	if e := obs.ends[3]; e.Next.Name != "A" {
		t.Fatalf("fourth end next = %q, want A", e.Next.Name)
	}
}
