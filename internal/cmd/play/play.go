// Package play parses game flags and runs a Naasii game on the console.
package play

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/naasii/agent"
	"github.com/louisbranch/naasii/internal/naasii/render"
	"github.com/louisbranch/naasii/internal/naasii/round"
	"github.com/louisbranch/naasii/internal/naasii/storage/sqlite"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	entrypoint "github.com/louisbranch/naasii/internal/platform/cmd"
	"github.com/louisbranch/naasii/internal/platform/config"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
	"github.com/louisbranch/naasii/internal/platform/i18n/catalog"
	"github.com/louisbranch/naasii/internal/platform/logging"
	"github.com/louisbranch/naasii/internal/random"
)

// Config holds play command configuration.
type Config struct {
	Players        string `env:"PLAYERS"`
	Scripts        string `env:"SCRIPTS"`
	Seed           int64  `env:"SEED"`
	DBPath         string `env:"DB_PATH"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	Locale         string `env:"LOCALE" envDefault:"en-US"`
	History        int    `env:"HISTORY"`
	Game           string `env:"GAME"`
	RejectionLimit int    `env:"REJECTION_LIMIT" envDefault:"20"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Players, "players", cfg.Players, "comma-separated Name:lucky seats, e.g. Ann:7,Ben:3")
	fs.StringVar(&cfg.Scripts, "scripts", cfg.Scripts, "comma-separated Name=strategy seats played by Lua (file path or builtin:<name>)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "dice seed for a replayable game (0 = random)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite game ledger path (empty disables persistence)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "display language (en-US, pt-BR)")
	fs.IntVar(&cfg.History, "history", cfg.History, "list the N most recent stored games and exit")
	fs.StringVar(&cfg.Game, "game", cfg.Game, "show the stored turns and standings of one game and exit")
	fs.IntVar(&cfg.RejectionLimit, "rejection-limit", cfg.RejectionLimit, "invalid answers allowed per decision (0 = unlimited)")
	fs.Usage = func() { usage(fs) }
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage of %s:\n", fs.Name())
	fs.PrintDefaults()
	vars, err := config.Variables(&Config{})
	if err != nil {
		return
	}
	fmt.Fprintln(w, "\nEnvironment (flags win):")
	for _, v := range vars {
		if v.Default != "" {
			fmt.Fprintf(w, "  %s (default %s)\n", v.Name, v.Default)
			continue
		}
		fmt.Fprintf(w, "  %s\n", v.Name)
	}
}

// ParsePlayers parses "Name:lucky" entries. A blank name falls back to the
// default seat name.
func ParsePlayers(value string) ([]round.Player, error) {
	var players []round.Player
	for i, entry := range splitList(value) {
		name, luckyText, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidConfig,
				"player entries must look like Name:lucky", map[string]string{"entry": entry}).
				With("seat", strconv.Itoa(i+1))
		}
		lucky, err := strconv.Atoi(strings.TrimSpace(luckyText))
		if err != nil {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidConfig,
				"lucky number must be a number", map[string]string{"entry": entry}).
				With("seat", strconv.Itoa(i+1))
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = round.DefaultPlayerName(i)
		}
		players = append(players, round.Player{Name: name, Lucky: dice.Face(lucky)})
	}
	if err := round.ValidatePlayers(players); err != nil {
		return nil, err
	}
	return players, nil
}

// ParseScripts parses "Name=strategy" entries into a map keyed by name.
func ParseScripts(value string) (map[string]string, error) {
	scripts := map[string]string{}
	for _, entry := range splitList(value) {
		name, ref, ok := strings.Cut(entry, "=")
		name, ref = strings.TrimSpace(name), strings.TrimSpace(ref)
		if !ok || name == "" || ref == "" {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidConfig,
				"script entries must look like Name=strategy", map[string]string{"entry": entry})
		}
		scripts[strings.ToLower(name)] = ref
	}
	return scripts, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Run plays one game, or lists stored games when cfg.History is set.
// Prompts and the game transcript go to out; logs go to errOut.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	logger, err := logging.New(errOut, logging.Options{Level: cfg.LogLevel, Console: true})
	if err != nil {
		return err
	}
	bundle, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	printer := bundle.Printer(cfg.Locale)
	if missing := bundle.Missing(bundle.Tag(cfg.Locale).String()); len(missing) > 0 {
		logger.Debug().Str("locale", cfg.Locale).Strs("keys", missing).Msg("untranslated messages fall back to " + catalog.BaseLocale)
	}
	renderer := render.New(out, printer)

	var store *sqlite.Store
	if strings.TrimSpace(cfg.DBPath) != "" {
		store, err = sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open game ledger: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("close game ledger")
			}
		}()
	}

	if id := strings.TrimSpace(cfg.Game); id != "" {
		if store == nil {
			return errors.New("showing a game needs a game ledger (-db)")
		}
		summary, err := store.GetGame(ctx, id)
		if err != nil {
			return fmt.Errorf("game %s: %w", id, err)
		}
		turns, err := store.ListTurns(ctx, id)
		if err != nil {
			return fmt.Errorf("game %s turns: %w", id, err)
		}
		renderer.Game(summary, turns)
		return nil
	}

	if cfg.History > 0 {
		if store == nil {
			return errors.New("history needs a game ledger (-db)")
		}
		games, err := store.ListGames(ctx, cfg.History)
		if err != nil {
			return fmt.Errorf("list games: %w", err)
		}
		renderer.History(games)
		return nil
	}

	players, err := ParsePlayers(cfg.Players)
	if err != nil {
		return err
	}
	scripts, err := ParseScripts(cfg.Scripts)
	if err != nil {
		return err
	}
	seed, err := random.ResolveSeed(cfg.Seed)
	if err != nil {
		return err
	}

	terminal := agent.NewTerminal(in, out, printer)
	seats := make([]round.Seat, len(players))
	for i, p := range players {
		key := strings.ToLower(p.Name)
		if ref, ok := scripts[key]; ok {
			lua, err := agent.LoadStrategy(ref, agent.WithLuaLogger(logger))
			if err != nil {
				return err
			}
			seats[i] = round.Seat{Player: p, Agent: lua}
			delete(scripts, key)
			continue
		}
		seats[i] = round.Seat{Player: p, Agent: terminal.Agent(p.Name)}
	}
	if len(scripts) > 0 {
		names := make([]string, 0, len(scripts))
		for name := range scripts {
			names = append(names, name)
		}
		sort.Strings(names)
		return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "script names a player who is not seated",
			map[string]string{"names": strings.Join(names, ",")})
	}

	engine := turn.NewEngine(dice.NewSeededRoller(seed),
		turn.WithLogger(logger),
		turn.WithObserver(renderer),
		turn.WithRejectionLimit(cfg.RejectionLimit),
	)
	opts := []round.Option{
		round.WithLogger(logger),
		round.WithObserver(renderer),
		round.WithSeed(seed),
	}
	if store != nil {
		opts = append(opts, round.WithStore(store))
	}
	controller, err := round.NewController(engine, seats, opts...)
	if err != nil {
		return err
	}

	logger.Info().Int64("seed", seed).Int("players", len(seats)).Msg("starting game")
	command := entrypoint.Command{Service: entrypoint.ServicePlay, Logger: logger}
	return command.Run(ctx, func(ctx context.Context) error {
		game, err := controller.Play(ctx)
		if err != nil {
			return err
		}
		renderer.Standings(game.Records)
		logger.Info().Str("game_id", game.ID).Int64("seed", seed).Msg("game finished")
		return nil
	})
}
