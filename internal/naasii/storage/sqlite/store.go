// Package sqlite provides a SQLite-backed game ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/naasii/internal/naasii/storage"
	"github.com/louisbranch/naasii/internal/naasii/storage/sqlite/migrations"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
	"github.com/louisbranch/naasii/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/naasii/internal/platform/timeouts"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists games, turns, and standings in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.GameStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite game ledger and applies embedded migrations. A ledger
// whose applied migrations no longer match is reported as invalid config.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidConfig, "storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		cleanPath, timeouts.LedgerBusy.Milliseconds())
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		if errors.Is(err, sqlitemigrate.ErrDrift) {
			return nil, apperrors.Wrap(apperrors.CodeInvalidConfig, "game ledger "+cleanPath, err)
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// CreateGame inserts a game and its seats.
func (s *Store) CreateGame(ctx context.Context, game storage.Game) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	gameID := strings.TrimSpace(game.ID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	if len(game.Players) == 0 {
		return fmt.Errorf("game players are required")
	}
	startedAt := game.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create game: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (id, seed, rounds, started_at) VALUES (?, ?, ?, ?)`,
		gameID, game.Seed, game.Rounds, toMillis(startedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create game: %w", err)
	}
	for _, p := range game.Players {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, seat, player_id, name, lucky) VALUES (?, ?, ?, ?, ?)`,
			gameID, p.Seat, p.ID, p.Name, p.Lucky,
		); err != nil {
			return fmt.Errorf("create game player %d: %w", p.Seat, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create game: %w", err)
	}
	return nil
}

// RecordTurn inserts one turn result.
func (s *Store) RecordTurn(ctx context.Context, turn storage.Turn) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(turn.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_turns (
		   game_id, round, seat, player_id, bonus, outcome, pattern, score, nizi, eliminated, rolls
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.GameID, turn.Round, turn.Seat, turn.PlayerID, turn.Bonus, turn.Outcome,
		turn.Pattern, turn.Score, turn.Nizi, turn.Eliminated, turn.Rolls,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// FinishGame stores final standings and marks the game finished.
func (s *Store) FinishGame(ctx context.Context, gameID string, finishedAt time.Time, standings []storage.Standing) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if finishedAt.IsZero() {
		finishedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finish game: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE games SET finished_at = ? WHERE id = ?`, toMillis(finishedAt), gameID)
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("finish game rows: %w", err)
	} else if n == 0 {
		return storage.ErrNotFound
	}
	for _, st := range standings {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO game_standings (
			   game_id, seat, player_id, name, round_total, nizi, nizi_bonus, final, winner
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			gameID, st.Seat, st.PlayerID, st.Name, st.RoundTotal, st.Nizi, st.NiziBonus, st.Final, boolToInt(st.Winner),
		); err != nil {
			return fmt.Errorf("store standing %d: %w", st.Seat, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish game: %w", err)
	}
	return nil
}

// GetGame returns one game with its seats and standings.
func (s *Store) GetGame(ctx context.Context, gameID string) (storage.GameSummary, error) {
	if err := s.ready(ctx); err != nil {
		return storage.GameSummary{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, seed, rounds, started_at, finished_at FROM games WHERE id = ?`, gameID)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.GameSummary{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.GameSummary{}, fmt.Errorf("get game: %w", err)
	}
	return s.loadSummary(ctx, game)
}

// ListGames returns the most recently started games, newest first.
func (s *Store) ListGames(ctx context.Context, limit int) ([]storage.GameSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []storage.GameSummary{}, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, seed, rounds, started_at, finished_at FROM games
		 ORDER BY started_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	var games []storage.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	_ = rows.Close()

	summaries := make([]storage.GameSummary, 0, len(games))
	for _, game := range games {
		summary, err := s.loadSummary(ctx, game)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ListTurns returns a game's turns in play order.
func (s *Store) ListTurns(ctx context.Context, gameID string) ([]storage.Turn, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT game_id, round, seat, player_id, bonus, outcome, pattern, score, nizi, eliminated, rolls
		 FROM game_turns WHERE game_id = ? ORDER BY round ASC, seat ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := []storage.Turn{}
	for rows.Next() {
		var t storage.Turn
		if err := rows.Scan(&t.GameID, &t.Round, &t.Seat, &t.PlayerID, &t.Bonus, &t.Outcome,
			&t.Pattern, &t.Score, &t.Nizi, &t.Eliminated, &t.Rolls); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func (s *Store) loadSummary(ctx context.Context, game storage.Game) (storage.GameSummary, error) {
	players, err := s.listPlayers(ctx, game.ID)
	if err != nil {
		return storage.GameSummary{}, err
	}
	game.Players = players
	standings, err := s.listStandings(ctx, game.ID)
	if err != nil {
		return storage.GameSummary{}, err
	}
	return storage.GameSummary{Game: game, Standings: standings}, nil
}

func (s *Store) listPlayers(ctx context.Context, gameID string) ([]storage.Player, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seat, player_id, name, lucky FROM game_players WHERE game_id = ? ORDER BY seat ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []storage.Player{}
	for rows.Next() {
		var p storage.Player
		if err := rows.Scan(&p.Seat, &p.ID, &p.Name, &p.Lucky); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *Store) listStandings(ctx context.Context, gameID string) ([]storage.Standing, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seat, player_id, name, round_total, nizi, nizi_bonus, final, winner
		 FROM game_standings WHERE game_id = ? ORDER BY seat ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	defer rows.Close()

	standings := []storage.Standing{}
	for rows.Next() {
		var st storage.Standing
		var winner int
		if err := rows.Scan(&st.Seat, &st.PlayerID, &st.Name, &st.RoundTotal, &st.Nizi,
			&st.NiziBonus, &st.Final, &winner); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		st.Winner = winner != 0
		standings = append(standings, st)
	}
	return standings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (storage.Game, error) {
	var (
		game       storage.Game
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&game.ID, &game.Seed, &game.Rounds, &startedAt, &finishedAt); err != nil {
		return storage.Game{}, err
	}
	game.StartedAt = fromMillis(startedAt)
	if finishedAt.Valid {
		game.FinishedAt = fromMillis(finishedAt.Int64)
	}
	return game, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
