// Package shell provides the interactive mode of bootkit applications.
//
// The shell reads one command line at a time, parses it against the command
// tree of the application and dispatches it. Per-line failures are reported
// and the loop continues; only end of input or an interrupt at the prompt
// ends it. Lines are flat: no pipes, quoting, variables or scripting.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/logging"
)

// ErrInterrupt is returned by a LineReader when input is interrupted (Ctrl-C).
var ErrInterrupt = errors.New("interrupted")

// LineReader reads lines of interactive input. Readline returns io.EOF at end
// of input and ErrInterrupt when interrupted.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Shell is the read-eval loop over a command tree.
type Shell struct {
	tree   *command.Tree
	name   string
	prompt string
	reader LineReader
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Shell.
type Option func(*Shell)

// WithReader replaces the terminal line reader, typically with scripted input.
func WithReader(r LineReader) Option {
	return func(s *Shell) { s.reader = r }
}

// WithStdout sets where help, version and notices are printed.
func WithStdout(w io.Writer) Option {
	return func(s *Shell) { s.stdout = w }
}

// WithStderr sets the error output of the terminal line reader.
func WithStderr(w io.Writer) Option {
	return func(s *Shell) { s.stderr = w }
}

// WithPrompt replaces the styled default prompt.
func WithPrompt(prompt string) Option {
	return func(s *Shell) { s.prompt = prompt }
}

// promptStyle renders the default "<name> $ " prompt.
var promptStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#1DCF84")).
	Italic(true)

// New creates a shell for tree. name is shown in the prompt.
func New(tree *command.Tree, name string, opts ...Option) *Shell {
	s := &Shell{
		tree:   tree,
		name:   name,
		prompt: promptStyle.Render(name + " $ "),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads and executes lines until end of input, an interrupt at the
// prompt, an exit or quit line, or cancellation of ctx. All of these end the
// loop with status 0. An error is returned only if the terminal cannot be set up
// or reading fails.
func (s *Shell) Run(ctx context.Context) (int, error) {
	if s.reader == nil {
		r, err := NewReadlineReader(s.prompt, s.tree.Root().Completions(), s.stdout, s.stderr)
		if err != nil {
			return -1, err
		}
		s.reader = r
	}
	defer s.reader.Close()

	// Unblocks a pending Readline when ctx ends
	stop := context.AfterFunc(ctx, func() { s.reader.Close() })
	defer stop()

	for {
		if ctx.Err() != nil {
			return 0, nil
		}

		line, err := s.reader.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) || ctx.Err() != nil {
				logging.Info("Exiting...")
				return 0, nil
			}
			return -1, fmt.Errorf("failed to read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s.isExitWord(line) {
			logging.Info("Exiting...")
			return 0, nil
		}

		s.Execute(ctx, line)
	}
}

// isExitWord reports whether line ends the shell. Registered commands named
// exit or quit take precedence.
func (s *Shell) isExitWord(line string) bool {
	if line != "exit" && line != "quit" {
		return false
	}
	_, err := s.tree.FindSubcommand(line)
	return err != nil
}

// Execute parses and dispatches one line. Every failure is reported and
// swallowed. An interrupt while the handler runs cancels only this command.
func (s *Shell) Execute(ctx context.Context, line string) {
	logging.Debug("Entered command: %s", line)

	res := s.tree.Parse(strings.Fields(line), command.Strict)
	switch res.Kind {
	case command.ResultHelpRequested:
		if err := s.tree.WriteHelp(s.stdout, res.Command); err != nil {
			logging.Error("Failed to print help: %v", err)
		}
		return
	case command.ResultVersionRequested:
		if err := s.tree.WriteVersion(s.stdout); err != nil {
			logging.Error("Failed to print version: %v", err)
		}
		return
	case command.ResultParseError:
		if errors.Is(res.Err, command.ErrSubcommandNotAvailable) {
			fmt.Fprintf(s.stdout, "Command unavailable: '%s'\n", line)
			return
		}
		logging.Error("%v", res.Err)
		return
	}

	if res.Command == s.tree.Root() {
		fmt.Fprintf(s.stdout, "Already in interactive mode, enter a subcommand (try --help)\n")
		return
	}

	cmdCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	// A second interrupt terminates a handler that ignores cmdCtx
	context.AfterFunc(cmdCtx, stop)

	defer func() {
		if r := recover(); r != nil {
			logging.Error("%s: panic: %v", res.Command.Path(), r)
			logging.Debug("%s", debug.Stack())
		}
	}()

	status, err := s.tree.Dispatch(cmdCtx, res.Args)
	switch {
	case cmdCtx.Err() != nil && ctx.Err() == nil:
		logging.Info("Command aborted...")
	case err != nil:
		logging.Error("%s: %v", res.Command.Path(), err)
	case status != 0:
		logging.Debug("Command '%s' returned status %d", line, status)
	}
}
