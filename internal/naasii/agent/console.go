package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
	"golang.org/x/text/message"
)

// ErrInputClosed is returned when the console input ends mid-game.
var ErrInputClosed = errors.New("console input closed")

// Terminal is the input and output shared by every console seat.
type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
	p   *message.Printer
}

// NewTerminal reads answers from in and writes prompts to out.
func NewTerminal(in io.Reader, out io.Writer, p *message.Printer) *Terminal {
	return &Terminal{in: bufio.NewScanner(in), out: out, p: p}
}

// Agent returns an interactive agent for the named player.
func (t *Terminal) Agent(name string) *Console {
	return &Console{term: t, name: name}
}

// Console asks a player for each decision on the terminal. Malformed
// answers are asked again without reaching the engine.
type Console struct {
	term *Terminal
	name string
}

var (
	_ turn.Agent            = (*Console)(nil)
	_ turn.RejectionHandler = (*Console)(nil)
)

// ChooseRollOrStop asks whether to score or roll again.
func (c *Console) ChooseRollOrStop(ctx context.Context, st turn.State) (turn.Choice, error) {
	c.println("prompt.state", c.name, st.Roll, dice.Format(st.Locked), dice.Format(st.Unlocked), dice.Format(st.Black))
	for {
		line, err := c.ask(ctx, "prompt.roll_or_stop")
		if err != nil {
			return turn.ChoiceUnspecified, err
		}
		if choice, ok := parseChoice(line); ok {
			return choice, nil
		}
		c.println("prompt.roll_or_stop.invalid")
	}
}

// ChooseLocks asks for 1-based positions of the dice to lock.
func (c *Console) ChooseLocks(ctx context.Context, unlocked []dice.Face) ([]int, error) {
	for i, f := range unlocked {
		c.println("prompt.die", i+1, int(f))
	}
	for {
		line, err := c.ask(ctx, "prompt.locks", len(unlocked))
		if err != nil {
			return nil, err
		}
		if indices, ok := parseLocks(line); ok {
			return indices, nil
		}
		c.println("prompt.locks.invalid")
	}
}

// ChoosePattern asks for a set or run and its number.
func (c *Console) ChoosePattern(ctx context.Context, locked []dice.Face) (scoring.Pattern, error) {
	c.println("prompt.locked", c.name, dice.Format(locked))
	for {
		line, err := c.ask(ctx, "prompt.pattern")
		if err != nil {
			return scoring.Pattern{}, err
		}
		if p, ok := parsePattern(line); ok {
			return p, nil
		}
		c.println("prompt.pattern.invalid")
	}
}

// Rejected tells the player why the last answer was not accepted.
func (c *Console) Rejected(_ context.Context, err error) {
	msg := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.println("prompt.rejected", msg)
}

func (c *Console) ask(ctx context.Context, key string, args ...any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.term.p.Fprintf(c.term.out, key, args...)
	if !c.term.in.Scan() {
		if err := c.term.in.Err(); err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(c.term.in.Text()), nil
}

func (c *Console) println(key string, args ...any) {
	c.term.p.Fprintf(c.term.out, key, args...)
	fmt.Fprintln(c.term.out)
}

func parseChoice(line string) (turn.Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "s", "stop", "score":
		return turn.ChoiceStop, true
	case "r", "roll", "continue":
		return turn.ChoiceContinue, true
	default:
		return turn.ChoiceUnspecified, false
	}
}

// parseLocks converts 1-based positions to indices. An empty answer is
// returned as an empty selection for the engine to reject.
func parseLocks(line string) ([]int, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
	indices := make([]int, 0, len(fields))
	for _, f := range fields {
		pos, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		indices = append(indices, pos-1)
	}
	return indices, true
}

func parsePattern(line string) (scoring.Pattern, bool) {
	line = strings.ToLower(strings.TrimSpace(line))
	split := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsLetter(r) })
	if split <= 0 {
		return scoring.Pattern{}, false
	}
	word, rest := line[:split], strings.TrimSpace(line[split:])
	value, err := strconv.Atoi(rest)
	if err != nil {
		return scoring.Pattern{}, false
	}
	switch word {
	case "s", "set":
		return scoring.Set(dice.Face(value)), true
	case "r", "run":
		return scoring.Run(dice.Face(value)), true
	default:
		return scoring.Pattern{}, false
	}
}
