package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/librescoot/timeout"
	"github.com/librescoot/timeout/internal/config"
)

// lineReader is the part of *readline.Instance the shell drives
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// levelControl adjusts the log level at runtime
type levelControl interface {
	Level() slog.Level
	SetLevel(slog.Level)
}

// shell is the interactive command loop of timerctl.
type shell struct {
	app   *app
	level levelControl
	rl    lineReader
	out   io.Writer

	closeOnce sync.Once
}

func newShell() (*shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "timer> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &shell{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until exit, EOF or ctx is done. The readline instance
// is closed when ctx is done, which unblocks a pending Readline and restores
// the terminal.
func (s *shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.close()
	stop := context.AfterFunc(ctx, s.close)
	defer stop()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.exec(line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

func (s *shell) close() {
	s.closeOnce.Do(func() {
		s.rl.Close()
	})
}

// exec runs one command line. It returns false on exit.
func (s *shell) exec(line string) bool {
	out := s.out

	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "start":
		s.cmdStart(out, args)

	case "stop":
		s.cmdStop(out, args)

	case "status", "ls":
		s.cmdStatus(out)

	case "state":
		s.cmdState(out)

	case "level":
		s.cmdLevel(out, args)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, `
Timer Commands:
  start <manager> <timer-id> [interval] - Start a timer (ms, Go duration or "inf")
  stop <manager>                        - Cancel the running timer
  status                                - List managers and their timers
  state                                 - Print the store state
  level [debug|info|warn|error]         - Show or change the log level
  help                                  - Show this help
  exit                                  - Quit`)
}

func (s *shell) cmdStart(out io.Writer, args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(out, "Usage: start <manager> <timer-id> [interval]")
		fmt.Fprintln(out, "  Example: start DEFAULT T1 1500")
		return
	}

	var interval string
	if len(args) == 3 {
		interval = args[2]
	}

	if err := s.app.start(timeout.ManagerID(args[0]), interval, timeout.TimerID(args[1])); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func (s *shell) cmdStop(out io.Writer, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: stop <manager>")
		return
	}

	if err := s.app.stop(timeout.ManagerID(args[0])); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func (s *shell) cmdStatus(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MANAGER\tRUNNING\tTIMER\tINTERVAL")
	for _, st := range s.app.statuses() {
		timer := string(st.Timer)
		if timer == "" {
			timer = "-"
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", st.Manager, st.Running, timer, st.Interval)
	}
	w.Flush()
}

func (s *shell) cmdState(out io.Writer) {
	data, err := json.MarshalIndent(s.app.store.State(), "", "  ")
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(data))
}

func (s *shell) cmdLevel(out io.Writer, args []string) {
	if s.level == nil {
		fmt.Fprintln(out, "Error: log level cannot be changed")
		return
	}

	switch len(args) {
	case 0:
		fmt.Fprintf(out, "Log level: %s\n", s.level.Level())
	case 1:
		level, err := config.ParseLevel(args[0])
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		s.level.SetLevel(level)
		fmt.Fprintf(out, "Log level set to %s\n", level)
	default:
		fmt.Fprintln(out, "Usage: level [debug|info|warn|error]")
	}
}
