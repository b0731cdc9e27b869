// Package render prints game progress and results as localized console text.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/round"
	"github.com/louisbranch/naasii/internal/naasii/storage"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	"golang.org/x/text/message"
)

const historyTimeLayout = "2006-01-02 15:04"

// Renderer writes a transcript of the game to out. It observes both turns
// and the round controller.
type Renderer struct {
	out io.Writer
	p   *message.Printer
}

var (
	_ turn.Observer  = (*Renderer)(nil)
	_ round.Observer = (*Renderer)(nil)
)

// New returns a renderer writing to out with printer p.
func New(out io.Writer, p *message.Printer) *Renderer {
	return &Renderer{out: out, p: p}
}

func (r *Renderer) line(key string, args ...any) {
	r.p.Fprintf(r.out, key, args...)
	fmt.Fprintln(r.out)
}

// TurnStarting prints the turn header.
func (r *Renderer) TurnStarting(_ context.Context, start round.TurnStart) {
	fmt.Fprintln(r.out)
	r.line("game.turn.header", start.Round, start.Rounds, start.Player.Name, turn.StartingDice+start.Bonus)
}

// RollResolved prints one roll of a turn.
func (r *Renderer) RollResolved(_ context.Context, p turn.Participant, rec turn.RollRecord) {
	r.line("game.roll.header", rec.Roll)
	if len(rec.LockedBefore) > 0 {
		r.line("game.roll.locked", dice.Format(rec.LockedBefore))
	}
	r.line("game.roll.white", dice.Format(rec.White))
	if len(rec.Black) > 0 {
		r.line("game.roll.black", dice.Format(rec.Black))
	}
	if rec.LuckyHits > 0 {
		r.line("game.roll.lucky", int(p.Lucky), rec.LuckyHits, rec.LuckyHits)
	}
	if rec.WildcardsCancelled > 0 {
		r.line("game.roll.cancelled", rec.WildcardsCancelled)
	}
	if len(rec.Eliminated) > 0 {
		r.line("game.roll.eliminated", dice.Format(rec.Eliminated))
	}
	switch {
	case rec.Bust != turn.BustNone:
		r.line("game.roll.bust", r.bustReason(rec.Bust))
	case rec.Roll == turn.MaxRolls:
		r.line("game.roll.autolock")
	}
}

// TurnFinished prints how the turn ended.
func (r *Renderer) TurnFinished(_ context.Context, result turn.Result) {
	name := result.Participant.Name
	switch result.Outcome {
	case turn.OutcomeScored:
		r.line("game.turn.scored", name, result.Score, r.Pattern(result.Pattern), result.Nizi)
	case turn.OutcomeNoScore:
		r.line("game.turn.noscore", name, result.Nizi)
	case turn.OutcomeBust:
		r.line("game.turn.bust", name, result.Nizi)
	}
}

// TurnCompleted prints the running Nizi total and any carried dice.
func (r *Renderer) TurnCompleted(_ context.Context, end round.TurnEnd) {
	result := end.Log.Report.Result
	r.line("game.turn.nizi", result.Participant.Name, end.NiziTotal)
	if result.Eliminated > 0 {
		r.line("game.turn.passes", result.Participant.Name, result.Eliminated, end.Next.Name)
	}
}

// Standings prints the final scoring table with every round score and the
// winner line.
func (r *Renderer) Standings(records []round.PlayerRecord) {
	standings := round.Standings(records)
	fmt.Fprintln(r.out)
	r.line("game.standings.header")
	for i, s := range standings {
		r.line("game.standings.row", s.Player.Name, joinScores(records[i].Scores), s.RoundTotal, s.Nizi, s.NiziBonus, s.Final)
	}
	var names []string
	for _, w := range round.Winners(standings) {
		names = append(names, w.Player.Name)
	}
	r.winners(names)
}

func (r *Renderer) winners(names []string) {
	switch len(names) {
	case 0:
	case 1:
		r.line("game.standings.winner", names[0])
	default:
		r.line("game.standings.tie", strings.Join(names, ", "))
	}
}

// History prints one line per stored game.
func (r *Renderer) History(games []storage.GameSummary) {
	if len(games) == 0 {
		r.line("game.history.empty")
		return
	}
	for _, g := range games {
		result := r.p.Sprintf("game.history.unfinished")
		if g.Game.Finished() {
			var names []string
			for _, s := range g.Standings {
				if s.Winner {
					names = append(names, fmt.Sprintf("%s (%d)", s.Name, s.Final))
				}
			}
			result = strings.Join(names, ", ")
		}
		r.line("game.history.row", g.Game.ID, g.Game.StartedAt.UTC().Format(historyTimeLayout), g.Game.Rounds, result)
	}
}

// Game prints a stored game: its seats, every recorded turn grouped by
// round, and the final standings when the game finished.
func (r *Renderer) Game(summary storage.GameSummary, turns []storage.Turn) {
	g := summary.Game
	r.line("game.detail.header", g.ID, g.Seed, g.Rounds, g.StartedAt.UTC().Format(historyTimeLayout))
	names := make(map[string]string, len(g.Players))
	for _, p := range g.Players {
		names[p.ID] = p.Name
		r.line("game.detail.player", p.Seat+1, p.Name, p.Lucky)
	}

	lastRound := 0
	for _, t := range turns {
		if t.Round != lastRound {
			fmt.Fprintln(r.out)
			r.line("game.detail.round", t.Round)
			lastRound = t.Round
		}
		name := names[t.PlayerID]
		if t.Bonus > 0 {
			r.line("game.detail.bonus", name, t.Bonus)
		}
		switch t.Outcome {
		case turn.OutcomeScored.String():
			r.line("game.turn.scored", name, t.Score, t.Pattern, t.Nizi)
		case turn.OutcomeNoScore.String():
			r.line("game.turn.noscore", name, t.Nizi)
		default:
			r.line("game.turn.bust", name, t.Nizi)
		}
		if t.Eliminated > 0 {
			next := ""
			if len(g.Players) > 0 {
				next = g.Players[(t.Seat+1)%len(g.Players)].Name
			}
			r.line("game.turn.passes", name, t.Eliminated, next)
		}
	}

	fmt.Fprintln(r.out)
	if !g.Finished() {
		r.line("game.history.unfinished")
		return
	}
	r.line("game.standings.header")
	var winners []string
	for _, s := range summary.Standings {
		r.line("game.detail.standing", s.Name, s.RoundTotal, s.Nizi, s.NiziBonus, s.Final)
		if s.Winner {
			winners = append(winners, s.Name)
		}
	}
	r.winners(winners)
}

// Pattern names a scoring pattern.
func (r *Renderer) Pattern(p scoring.Pattern) string {
	switch p.Kind {
	case scoring.KindSet:
		return r.p.Sprintf("game.pattern.set", int(p.Value))
	case scoring.KindRun:
		return r.p.Sprintf("game.pattern.run", int(p.Value))
	default:
		return p.String()
	}
}

func (r *Renderer) bustReason(reason turn.BustReason) string {
	switch reason {
	case turn.BustWildcards:
		return r.p.Sprintf("game.bust.wildcards")
	case turn.BustNoDice:
		return r.p.Sprintf("game.bust.nodice")
	default:
		return reason.String()
	}
}

func joinScores(scores []int) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, " ")
}
