// Package round sequences Naasii turns across players and rounds, hands
// eliminated dice to the next seat, and computes final standings.
package round

import (
	"fmt"
	"strings"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
)

const (
	MinPlayers = 2
	MaxPlayers = 5
	// NiziPerPoint is how many Nizi convert into one final point.
	NiziPerPoint = 3
)

var roundsByPlayers = map[int]int{
	2: 11,
	3: 8,
	4: 6,
	5: 5,
}

// RoundsFor returns the number of rounds played by n players.
func RoundsFor(n int) (int, error) {
	rounds, ok := roundsByPlayers[n]
	if !ok {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidConfig,
			fmt.Sprintf("a game needs %d to %d players", MinPlayers, MaxPlayers),
			map[string]string{"players": fmt.Sprint(n)})
	}
	return rounds, nil
}

// Player is a seated participant.
type Player struct {
	ID    string
	Name  string
	Lucky dice.Face
}

// Participant returns the turn identity of p.
func (p Player) Participant() turn.Participant {
	return turn.Participant{ID: p.ID, Name: p.Name, Lucky: p.Lucky}
}

// DefaultPlayerName names the player at a zero-based seat when none was given.
func DefaultPlayerName(seat int) string {
	return fmt.Sprintf("Player %d", seat+1)
}

// ValidatePlayers checks seat count, names, and lucky numbers.
func ValidatePlayers(players []Player) error {
	if _, err := RoundsFor(len(players)); err != nil {
		return err
	}
	seen := make(map[string]int, len(players))
	for i, p := range players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "player name is required",
				map[string]string{"seat": fmt.Sprint(i + 1)})
		}
		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "player names must be unique",
				map[string]string{"name": name, "seat": fmt.Sprint(i + 1), "previous_seat": fmt.Sprint(prev + 1)})
		}
		seen[key] = i
		if !p.Lucky.IsPlain() {
			return apperrors.WithMetadata(apperrors.CodeInvalidConfig,
				fmt.Sprintf("lucky number must be between %d and %d", dice.MinPlain, dice.MaxPlain),
				map[string]string{"name": name, "lucky": fmt.Sprint(int(p.Lucky))})
		}
	}
	return nil
}

// PlayerRecord accumulates one player's results. Scores holds one entry per
// completed turn.
type PlayerRecord struct {
	Player Player
	Scores []int
	Nizi   int
}

// RoundTotal sums the recorded turn scores.
func (r PlayerRecord) RoundTotal() int {
	total := 0
	for _, s := range r.Scores {
		total += s
	}
	return total
}

func (r *PlayerRecord) apply(result turn.Result) {
	r.Scores = append(r.Scores, result.Score)
	r.Nizi += result.Nizi
}

// Standing is a player's final line.
type Standing struct {
	Seat       int
	Player     Player
	RoundTotal int
	Nizi       int
	NiziBonus  int
	Final      int
	Winner     bool
}

// Standings computes final scores in seat order. Every player tied at the
// highest final score is a winner.
func Standings(records []PlayerRecord) []Standing {
	out := make([]Standing, len(records))
	best := 0
	for i, r := range records {
		total := r.RoundTotal()
		bonus := r.Nizi / NiziPerPoint
		out[i] = Standing{
			Seat:       i,
			Player:     r.Player,
			RoundTotal: total,
			Nizi:       r.Nizi,
			NiziBonus:  bonus,
			Final:      total + bonus,
		}
		if i == 0 || out[i].Final > best {
			best = out[i].Final
		}
	}
	for i := range out {
		out[i].Winner = out[i].Final == best
	}
	return out
}

// Winners returns the winning standings in seat order.
func Winners(standings []Standing) []Standing {
	var winners []Standing
	for _, s := range standings {
		if s.Winner {
			winners = append(winners, s)
		}
	}
	return winners
}
