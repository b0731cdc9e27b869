// Package storage defines persistence contracts for finished Naasii games.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
)

var (
	// ErrNotFound indicates a requested game record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")
)

// Game stores the setup of one game.
type Game struct {
	ID         string
	Seed       int64
	Rounds     int
	Players    []Player
	StartedAt  time.Time
	FinishedAt time.Time
}

// Finished reports whether standings were recorded for the game.
func (g Game) Finished() bool { return !g.FinishedAt.IsZero() }

// Player stores one seat of a game.
type Player struct {
	Seat  int
	ID    string
	Name  string
	Lucky int
}

// Turn stores the result of one turn.
type Turn struct {
	GameID     string
	Round      int
	Seat       int
	PlayerID   string
	Bonus      int
	Outcome    string
	Pattern    string
	Score      int
	Nizi       int
	Eliminated int
	Rolls      int
}

// Standing stores one player's final line.
type Standing struct {
	Seat       int
	PlayerID   string
	Name       string
	RoundTotal int
	Nizi       int
	NiziBonus  int
	Final      int
	Winner     bool
}

// GameSummary pairs a game with its standings, which are empty until the
// game finishes.
type GameSummary struct {
	Game      Game
	Standings []Standing
}

// GameStore persists games as they are played.
type GameStore interface {
	CreateGame(ctx context.Context, game Game) error
	RecordTurn(ctx context.Context, turn Turn) error
	FinishGame(ctx context.Context, gameID string, finishedAt time.Time, standings []Standing) error
	GetGame(ctx context.Context, gameID string) (GameSummary, error)
	ListGames(ctx context.Context, limit int) ([]GameSummary, error)
	ListTurns(ctx context.Context, gameID string) ([]Turn, error)
}
