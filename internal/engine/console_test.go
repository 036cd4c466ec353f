package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func runConsole(t *testing.T, e *Engine, input string) string {
	t.Helper()
	var out bytes.Buffer
	c := NewConsole(e, strings.NewReader(input), &out, zap.NewNop())
	c.Run(context.Background())
	return out.String()
}

func TestConsoleUnknownCommand(t *testing.T) {
	e := newTestEngine(t, testConfig())
	out := runConsole(t, e, "bogus\nexit\n")
	if !strings.Contains(out, "Unknown command: bogus") {
		t.Errorf("missing unknown-command reply:\n%s", out)
	}
}

func TestConsoleHelp(t *testing.T) {
	e := newTestEngine(t, testConfig())
	out := runConsole(t, e, "help\nexit\n")
	for _, want := range []string{"narrate", "pause", "resume", "interrogate", "exit"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleNarrate(t *testing.T) {
	e := newTestEngine(t, testConfig())
	out := runConsole(t, e, "narrate The river floods the lower fields.\nexit\n")
	if !strings.Contains(out, "Narrated.") {
		t.Errorf("narrate not acknowledged:\n%s", out)
	}
	if e.mgr.LastNarration().Message() != "The river floods the lower fields." {
		t.Errorf("narration not dispatched: %q", e.mgr.LastNarration().Message())
	}

	out = runConsole(t, e, "narrate\nexit\n")
	if !strings.Contains(out, "Usage: narrate") {
		t.Errorf("empty narrate not rejected:\n%s", out)
	}
}

func TestConsoleClock(t *testing.T) {
	e := newTestEngine(t, testConfig())
	out := runConsole(t, e, "clock\nexit\n")
	if !strings.Contains(out, "Monday January 1, 2024, 05:00:00 (day 0)") {
		t.Errorf("clock not reported:\n%s", out)
	}
}

func TestConsoleInterrogateRequiresPause(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.Start(context.Background())
	defer e.Stop()

	out := runConsole(t, e, "interrogate Hank Thompson\nexit\n")
	if !strings.Contains(out, "Pause the simulation before interrogating.") {
		t.Errorf("interrogation allowed while running:\n%s", out)
	}
}

func TestConsoleInterrogation(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.Start(context.Background())
	defer e.Stop()

	input := "pause\ninterrogate Hank Thompson\nWhat did you do today?\ndone\nresume\nexit\n"
	out := runConsole(t, e, input)

	if !strings.Contains(out, "Simulation paused.") {
		t.Errorf("pause not acknowledged:\n%s", out)
	}
	if !strings.Contains(out, "Interrogating Hank Thompson") {
		t.Errorf("interrogation did not start:\n%s", out)
	}
	if !strings.Contains(out, "Hank Thompson: I'm Hank Thompson.") {
		t.Errorf("no persona answer in output:\n%s", out)
	}
	if !strings.Contains(out, "Simulation resumed.") {
		t.Errorf("resume not acknowledged:\n%s", out)
	}
}

func TestConsoleInterrogateUnknownAgent(t *testing.T) {
	e := newTestEngine(t, testConfig())
	e.Start(context.Background())
	defer e.Stop()

	out := runConsole(t, e, "pause\ninterrogate Nobody Home\nresume\nexit\n")
	if !strings.Contains(out, `No agent named "Nobody Home".`) {
		t.Errorf("unknown agent not reported:\n%s", out)
	}
}
