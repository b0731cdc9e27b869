package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	"github.com/rs/zerolog"
)

const (
	fnRollOrStop = "roll_or_stop"
	fnLock       = "lock"
	fnPattern    = "pattern"
	fnRejected   = "rejected"
)

// Lua is a turn agent backed by a Lua strategy script. The script defines
// global functions:
//
//	roll_or_stop(state) -> "roll" | "stop"
//	lock(unlocked)      -> table of 1-based positions
//	pattern(locked)     -> "set" | "run", number
//	rejected(message)   -- optional
//
// and may call set_score(dice, target) and run_score(dice, start).
type Lua struct {
	mu     sync.Mutex
	name   string
	state  *lua.State
	logger zerolog.Logger
}

// LuaOption configures a Lua agent.
type LuaOption func(*Lua)

// WithLuaLogger sets the logger that receives failures of the optional
// rejected hook.
func WithLuaLogger(logger zerolog.Logger) LuaOption {
	return func(a *Lua) { a.logger = logger }
}

var (
	_ turn.Agent            = (*Lua)(nil)
	_ turn.RejectionHandler = (*Lua)(nil)
)

// LoadLua loads a strategy from a file.
func LoadLua(path string, opts ...LuaOption) (*Lua, error) {
	return newLua(path, func(state *lua.State) error {
		return lua.LoadFile(state, path, "")
	}, opts)
}

// NewLua loads a strategy from source. name is used in error messages.
func NewLua(name, source string, opts ...LuaOption) (*Lua, error) {
	return newLua(name, func(state *lua.State) error {
		return lua.LoadBuffer(state, source, name, "")
	}, opts)
}

func newLua(name string, load func(*lua.State) error, opts []LuaOption) (*Lua, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerHelpers(state)

	if err := load(state); err != nil {
		return nil, fmt.Errorf("load lua strategy %s: %w", name, err)
	}
	if err := state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run lua strategy %s: %w", name, err)
	}
	for _, fn := range []string{fnRollOrStop, fnLock, fnPattern} {
		state.Global(fn)
		ok := state.IsFunction(-1)
		state.Pop(1)
		if !ok {
			return nil, fmt.Errorf("lua strategy %s must define function %s", name, fn)
		}
	}
	a := &Lua{name: name, state: state, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ChooseRollOrStop calls roll_or_stop with the turn state.
func (a *Lua) ChooseRollOrStop(ctx context.Context, st turn.State) (turn.Choice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.call(ctx, fnRollOrStop, 1, func(l *lua.State) { pushState(l, st) }); err != nil {
		return turn.ChoiceUnspecified, err
	}
	defer a.state.Pop(1)

	switch a.state.TypeOf(-1) {
	case lua.TypeBoolean:
		if a.state.ToBoolean(-1) {
			return turn.ChoiceContinue, nil
		}
		return turn.ChoiceStop, nil
	case lua.TypeString:
		value, _ := a.state.ToString(-1)
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "roll", "r", "continue":
			return turn.ChoiceContinue, nil
		case "stop", "s", "score":
			return turn.ChoiceStop, nil
		}
		return turn.ChoiceUnspecified, fmt.Errorf("lua %s: %s returned %q", a.name, fnRollOrStop, value)
	default:
		return turn.ChoiceUnspecified, fmt.Errorf("lua %s: %s must return a string", a.name, fnRollOrStop)
	}
}

// ChooseLocks calls lock with the unlocked dice and converts the returned
// positions to indices.
func (a *Lua) ChooseLocks(ctx context.Context, unlocked []dice.Face) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.call(ctx, fnLock, 1, func(l *lua.State) { pushFaces(l, unlocked) }); err != nil {
		return nil, err
	}
	defer a.state.Pop(1)

	if a.state.TypeOf(-1) != lua.TypeTable {
		return nil, fmt.Errorf("lua %s: %s must return a table", a.name, fnLock)
	}
	positions, err := intsFromTable(a.state, -1)
	if err != nil {
		return nil, fmt.Errorf("lua %s: %s: %w", a.name, fnLock, err)
	}
	indices := make([]int, len(positions))
	for i, pos := range positions {
		indices[i] = pos - 1
	}
	return indices, nil
}

// ChoosePattern calls pattern with the locked dice.
func (a *Lua) ChoosePattern(ctx context.Context, locked []dice.Face) (scoring.Pattern, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.call(ctx, fnPattern, 2, func(l *lua.State) { pushFaces(l, locked) }); err != nil {
		return scoring.Pattern{}, err
	}
	defer a.state.Pop(2)

	if a.state.TypeOf(-2) != lua.TypeString {
		return scoring.Pattern{}, fmt.Errorf("lua %s: %s must return a kind string", a.name, fnPattern)
	}
	kind, _ := a.state.ToString(-2)
	value, ok := a.state.ToInteger(-1)
	if !ok || a.state.TypeOf(-1) != lua.TypeNumber {
		return scoring.Pattern{}, fmt.Errorf("lua %s: %s must return a number", a.name, fnPattern)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "set", "s":
		return scoring.Set(dice.Face(value)), nil
	case "run", "r":
		return scoring.Run(dice.Face(value)), nil
	default:
		return scoring.Pattern{}, fmt.Errorf("lua %s: %s returned kind %q", a.name, fnPattern, kind)
	}
}

// Rejected calls the optional rejected function with the error message. A
// failing hook is logged and does not end the turn.
func (a *Lua) Rejected(ctx context.Context, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state.Global(fnRejected)
	defined := a.state.IsFunction(-1)
	a.state.Pop(1)
	if !defined {
		return
	}
	if hookErr := a.call(ctx, fnRejected, 0, func(l *lua.State) { l.PushString(err.Error()) }); hookErr != nil {
		a.logger.Warn().Err(hookErr).Str("strategy", a.name).Msg("rejected hook failed")
	}
}

func (a *Lua) call(ctx context.Context, fn string, results int, push func(*lua.State)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	top := a.state.Top()
	a.state.Global(fn)
	push(a.state)
	if err := a.state.ProtectedCall(1, results, 0); err != nil {
		// The error value is left on the stack.
		a.state.SetTop(top)
		return fmt.Errorf("lua %s: %s: %w", a.name, fn, err)
	}
	return nil
}

func pushFaces(l *lua.State, faces []dice.Face) {
	l.CreateTable(len(faces), 0)
	for i, f := range faces {
		l.PushInteger(int(f))
		l.RawSetInt(-2, i+1)
	}
}

func pushState(l *lua.State, st turn.State) {
	l.NewTable()
	l.PushString(st.Participant.Name)
	l.SetField(-2, "name")
	l.PushInteger(int(st.Participant.Lucky))
	l.SetField(-2, "lucky")
	l.PushInteger(st.Roll)
	l.SetField(-2, "roll")
	pushFaces(l, st.Locked)
	l.SetField(-2, "locked")
	pushFaces(l, st.Unlocked)
	l.SetField(-2, "unlocked")
	pushFaces(l, st.Black)
	l.SetField(-2, "black")
	l.PushInteger(st.WhiteDice)
	l.SetField(-2, "white_dice")
	l.PushInteger(st.BlackDice)
	l.SetField(-2, "black_dice")
	l.PushInteger(st.Nizi)
	l.SetField(-2, "nizi")
	l.PushInteger(st.Eliminated)
	l.SetField(-2, "eliminated")
}

func intsFromTable(l *lua.State, index int) ([]int, error) {
	index = l.AbsIndex(index)
	n := l.RawLength(index)
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		l.RawGetInt(index, i)
		v, ok := l.ToInteger(-1)
		isNumber := l.TypeOf(-1) == lua.TypeNumber
		l.Pop(1)
		if !ok || !isNumber {
			return nil, fmt.Errorf("entry %d is not a number", i)
		}
		out = append(out, v)
	}
	return out, nil
}

func registerHelpers(l *lua.State) {
	l.Register("set_score", func(l *lua.State) int {
		return scoreHelper(l, scoring.SetScore)
	})
	l.Register("run_score", func(l *lua.State) int {
		return scoreHelper(l, scoring.RunScore)
	})
}

func scoreHelper(l *lua.State, score func([]dice.Face, dice.Face) (int, error)) int {
	lua.CheckType(l, 1, lua.TypeTable)
	value := lua.CheckInteger(l, 2)
	values, err := intsFromTable(l, 1)
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
		return 0
	}
	pool := make([]dice.Face, len(values))
	for i, v := range values {
		pool[i] = dice.Face(v)
	}
	result, err := score(pool, dice.Face(value))
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
		return 0
	}
	l.PushInteger(result)
	return 1
}
