package agent

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/louisbranch/naasii/internal/core/dice"
	"github.com/louisbranch/naasii/internal/core/scoring"
	"github.com/louisbranch/naasii/internal/naasii/turn"
	apperrors "github.com/louisbranch/naasii/internal/platform/errors"
	"github.com/rs/zerolog"
)

const echoStrategy = `
rejections = {}

function roll_or_stop(state)
  if state.roll == 1 and #state.unlocked == 3 then return "roll" end
  return "stop"
end

function lock(unlocked)
  return {1, 3}
end

function pattern(locked)
  if #rejections == 0 then return "set", 0 end
  return "run", set_score(locked, 2)
end

function rejected(message)
  rejections[#rejections + 1] = message
end
`

func TestLuaDecisions(t *testing.T) {
	agent, err := NewLua("echo", echoStrategy)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	ctx := context.Background()

	choice, err := agent.ChooseRollOrStop(ctx, turn.State{Roll: 1, Unlocked: []dice.Face{1, 2, 3}})
	if err != nil {
		t.Fatalf("roll or stop: %v", err)
	}
	if choice != turn.ChoiceContinue {
		t.Fatalf("choice = %s, want continue", choice)
	}
	choice, err = agent.ChooseRollOrStop(ctx, turn.State{Roll: 2, Unlocked: []dice.Face{1}})
	if err != nil {
		t.Fatalf("roll or stop: %v", err)
	}
	if choice != turn.ChoiceStop {
		t.Fatalf("choice = %s, want stop", choice)
	}

	locks, err := agent.ChooseLocks(ctx, []dice.Face{4, 5, 6})
	if err != nil {
		t.Fatalf("locks: %v", err)
	}
	if !reflect.DeepEqual(locks, []int{0, 2}) {
		t.Fatalf("locks = %v, want [0 2]", locks)
	}

	p, err := agent.ChoosePattern(ctx, []dice.Face{2, 2, 12})
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if p != scoring.Set(0) {
		t.Fatalf("pattern = %v, want set 0", p)
	}
	agent.Rejected(ctx, errors.New("bad value"))
	p, err = agent.ChoosePattern(ctx, []dice.Face{2, 2, 12})
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	if p != scoring.Run(3) {
		t.Fatalf("pattern = %v, want run from 3", p)
	}
}

func TestLuaStackStaysBalanced(t *testing.T) {
	agent, err := NewLua("echo", echoStrategy)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	ctx := context.Background()
	top := agent.state.Top()
	for i := 0; i < 5; i++ {
		if _, err := agent.ChooseRollOrStop(ctx, turn.State{Roll: 1}); err != nil {
			t.Fatalf("roll or stop: %v", err)
		}
		if _, err := agent.ChooseLocks(ctx, []dice.Face{1, 2, 3}); err != nil {
			t.Fatalf("locks: %v", err)
		}
		if _, err := agent.ChoosePattern(ctx, []dice.Face{1, 2, 3}); err != nil {
			t.Fatalf("pattern: %v", err)
		}
		agent.Rejected(ctx, errors.New("x"))
	}
	if got := agent.state.Top(); got != top {
		t.Fatalf("stack top = %d, want %d", got, top)
	}
}

func TestLuaLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "syntax", source: "function roll_or_stop(", want: "load lua strategy"},
		{name: "runtime", source: "error('boom')", want: "run lua strategy"},
		{name: "missing function", source: "function roll_or_stop() return 'stop' end", want: "must define function lock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLua(tt.name, tt.source)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLuaBadReturnValues(t *testing.T) {
	agent, err := NewLua("bad", `
function roll_or_stop() return "maybe" end
function lock() return "all" end
function pattern() return "pair", 3 end
`)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	ctx := context.Background()
	if _, err := agent.ChooseRollOrStop(ctx, turn.State{}); err == nil {
		t.Fatal("expected roll_or_stop error")
	}
	if _, err := agent.ChooseLocks(ctx, []dice.Face{1}); err == nil {
		t.Fatal("expected lock error")
	}
	if _, err := agent.ChoosePattern(ctx, []dice.Face{1}); err == nil {
		t.Fatal("expected pattern error")
	}
}

func TestLuaRuntimeErrorIsWrapped(t *testing.T) {
	agent, err := NewLua("crash", `
function roll_or_stop() error("no idea") end
function lock() return {1} end
function pattern() return "set", 1 end
`)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	_, err = agent.ChooseRollOrStop(context.Background(), turn.State{})
	if err == nil || !strings.Contains(err.Error(), "roll_or_stop") {
		t.Fatalf("error = %v", err)
	}
}

func TestLuaScoreHelperRejectsBadTarget(t *testing.T) {
	agent, err := NewLua("helper", `
function roll_or_stop() return "stop" end
function lock() return {1} end
function pattern(locked) return "set", set_score(locked, 12) end
`)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	if _, err := agent.ChoosePattern(context.Background(), []dice.Face{1, 2, 3}); err == nil {
		t.Fatal("expected helper error")
	}
}

func TestLoadLuaFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.lua")
	if err := os.WriteFile(path, []byte(echoStrategy), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if _, err := LoadLua(path); err != nil {
		t.Fatalf("load lua: %v", err)
	}
	if _, err := LoadLua(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestLuaInvalidLocksAreRetried(t *testing.T) {
	roller := dice.NewScriptedRoller(
		3, 3, 7,
		3, 12, 7, 1,
	)
	agent, err := NewLua("retry", `
attempts = 0
function roll_or_stop(state)
  if state.roll == 1 then return "roll" end
  return "stop"
end
function lock(unlocked)
  attempts = attempts + 1
  if attempts == 1 then return {9} end
  return {1, 2}
end
function pattern(locked) return "set", 3 end
`)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	report, err := turn.NewEngine(roller, turn.WithRejectionLimit(3)).Play(context.Background(), ann, 0, agent)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if report.Result.Score != 4 {
		t.Fatalf("score = %d, want 4", report.Result.Score)
	}
}

func TestLuaOutOfRangePatternHitsRejectionLimit(t *testing.T) {
	roller := dice.NewScriptedRoller(3, 3, 3)
	agent, err := NewLua("stubborn", `
function roll_or_stop() return "stop" end
function lock() return {1} end
function pattern() return "set", 12 end
`)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	_, err = turn.NewEngine(roller, turn.WithRejectionLimit(2)).Play(context.Background(), ann, 0, agent)
	if !errors.Is(err, turn.ErrTooManyRejections) {
		t.Fatalf("error = %v, want too many rejections", err)
	}
}

func TestLuaRejectedReceivesMessage(t *testing.T) {
	agent, err := NewLua("echo", echoStrategy)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	agent.Rejected(context.Background(), apperrors.New(apperrors.CodeInvalidInput, "nope"))
	agent.state.Global("rejections")
	n := agent.state.RawLength(-1)
	agent.state.Pop(1)
	if n != 1 {
		t.Fatalf("rejections = %d, want 1", n)
	}
}

func TestLuaFailingRejectedHookIsLoggedAndLeavesStackClean(t *testing.T) {
	var logs bytes.Buffer
	agent, err := NewLua("grumpy", `
function roll_or_stop() return "stop" end
function lock() return {1} end
function pattern() return "set", 3 end
function rejected(message) error("boom") end
`, WithLuaLogger(zerolog.New(&logs)))
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}

	before := agent.state.Top()
	for i := 0; i < 5; i++ {
		agent.Rejected(context.Background(), apperrors.New(apperrors.CodeInvalidInput, "nope"))
	}
	if after := agent.state.Top(); after != before {
		t.Fatalf("stack top = %d after rejections, want %d", after, before)
	}
	if got := strings.Count(logs.String(), "rejected hook failed"); got != 5 {
		t.Fatalf("logged %d hook failures, want 5: %s", got, logs.String())
	}
	if !strings.Contains(logs.String(), "boom") {
		t.Fatalf("expected hook error in logs, got %s", logs.String())
	}
}

func TestLuaFailedCallLeavesStackClean(t *testing.T) {
	agent, err := NewLua("crashy", `
function roll_or_stop() error("no idea") end
function lock() return {1} end
function pattern() return "set", 3 end
`)
	if err != nil {
		t.Fatalf("new lua: %v", err)
	}
	before := agent.state.Top()
	for i := 0; i < 3; i++ {
		if _, err := agent.ChooseRollOrStop(context.Background(), turn.State{Participant: ann}); err == nil {
			t.Fatal("expected script error")
		}
	}
	if after := agent.state.Top(); after != before {
		t.Fatalf("stack top = %d, want %d", after, before)
	}
}
