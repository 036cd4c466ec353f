package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const consoleHelp = `Commands:
  narrate <message>      announce something to every agent
  clock                  show the simulated date and time
  pause                  pause the simulation timers
  resume                 resume a paused simulation
  interrogate <agent>    question an agent (simulation must be paused)
  help                   show this help
  exit                   stop the simulation`

// Console is the interactive operator prompt. It reads commands from in and
// writes replies to out, which makes it testable without a terminal.
type Console struct {
	engine *Engine
	in     io.Reader
	out    io.Writer
	logger *zap.Logger
}

// NewConsole creates a console bound to the engine.
func NewConsole(e *Engine, in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	return &Console{engine: e, in: in, out: out, logger: logger}
}

// Run processes commands until exit, EOF or engine stop. Blocks; run it on
// the main goroutine while the timers do the work.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	c.printf("Type 'help' for commands.\n")

	for {
		c.printf("> ")
		if !scanner.Scan() {
			return
		}
		select {
		case <-c.engine.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "exit":
			c.engine.Stop()
			return
		case "help":
			c.printf("%s\n", consoleHelp)
		case "narrate":
			if rest == "" {
				c.printf("Usage: narrate <message>\n")
				continue
			}
			c.engine.Narrate(rest)
			c.printf("Narrated.\n")
		case "clock":
			clk := c.engine.Clock()
			c.printf("%s, %s (day %d)\n", clk.DateString(), clk.TimeString(), clk.DayCount())
		case "pause":
			c.engine.Pause()
			c.printf("Simulation paused.\n")
		case "resume":
			c.engine.Resume()
			c.printf("Simulation resumed.\n")
		case "interrogate":
			c.interrogate(ctx, scanner, rest)
		default:
			c.printf("Unknown command: %s\n", cmd)
		}
	}
}

// interrogate runs the nested question loop against one agent. Refused
// while the simulation is running so answers are not raced by new memories.
func (c *Console) interrogate(ctx context.Context, scanner *bufio.Scanner, name string) {
	if name == "" {
		c.printf("Usage: interrogate <agent>\n")
		return
	}
	if !c.engine.Paused() {
		c.printf("Pause the simulation before interrogating.\n")
		return
	}
	a, ok := c.engine.Manager().Agent(name)
	if !ok {
		c.printf("No agent named %q.\n", name)
		return
	}

	c.printf("Interrogating %s. Empty line or 'done' to finish.\n", name)
	var history strings.Builder
	for {
		c.printf("%s> ", name)
		if !scanner.Scan() {
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" || question == "done" {
			return
		}

		answer, err := a.Interrogate(ctx, question, history.String())
		if err != nil {
			c.printf("(no answer: %v)\n", err)
			c.logger.Warn("interrogation failed",
				zap.String("agent", name), zap.Error(err))
			continue
		}
		c.printf("%s: %s\n", name, answer)
		fmt.Fprintf(&history, "Q: %s\nA: %s\n", question, answer)
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
