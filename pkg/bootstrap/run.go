package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/logging"
	"github.com/concave-dev/bootkit/pkg/shell"
)

// Start runs the startup sequence with argv (without the program name) and
// then the selected command. It returns the process status: 0 on success,
// help, version or interrupt, the handler's status otherwise, and -1 for
// fatal startup errors and uncaught failures.
func (a *Application) Start(ctx context.Context, argv []string) int {
	if a.stage != StageNone {
		logging.Error("%v", ErrAlreadyStarted)
		return -1
	}
	a.startedAt = time.Now()
	defer func() { a.stage = StageTerminated }()

	stages := []func() error{
		func() error { return a.stageOne(argv) },
		a.stageTwo,
		a.stageThree,
	}
	for _, stage := range stages {
		if err := runStage(stage); err != nil {
			return a.exit(err)
		}
	}

	return a.running(ctx)
}

// runStage turns a panic inside a stage, including its hooks, into an error
// for the exit path.
func runStage(stage func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return stage()
}

// exit is the single exit path of the startup sequence.
func (a *Application) exit(err error) int {
	var ee *exitError
	if errors.As(err, &ee) && ee.err == nil {
		return ee.status
	}

	a.ensureLogging()
	logging.Error("Error during %s: %v", a.stage, err)

	if ee != nil {
		return ee.status
	}
	return -1
}

// running dispatches the parsed command line to its handler.
func (a *Application) running(ctx context.Context) (status int) {
	a.stage = StageRunning

	logging.Debug("********************************************")
	logging.Debug("      Passing control to user code!")
	logging.Debug("============================================")

	if a.args == nil || !a.args.Command.HasHandler() {
		logging.Error("No Run operation provided. Exiting!")
		return -1
	}

	// The shell handles interrupts itself, per line and per command
	if !a.enteringShell() {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		// A second interrupt terminates a handler that ignores ctx
		context.AfterFunc(ctx, stop)
	}

	if !a.quiet() {
		a.logger.Info("%s (version=%s) started!", a.cfg.ApplicationName, a.cfg.Version)
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Uncaught panic in %s: %v", a.args.Command.Path(), r)
			logging.Error("%s", debug.Stack())
			status = -1
		}
	}()

	code, err := a.tree.Dispatch(ctx, a.args)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		logging.Debug("Interrupted by user. Exiting...")
		return 0
	}
	if err != nil {
		logging.Error("Error in %s: %v", a.args.Command.Path(), err)
		return -1
	}
	return code
}

func (a *Application) enteringShell() bool {
	return a.cfg.ShellEnabled && a.args.Command == a.tree.Root()
}

// runShell is the root handler of applications with the shell enabled.
func (a *Application) runShell(ctx context.Context, _ *command.Args) (int, error) {
	opts := []shell.Option{shell.WithStdout(a.cfg.Stdout), shell.WithStderr(a.cfg.Stderr)}
	if a.shellReader != nil {
		opts = append(opts, shell.WithReader(a.shellReader))
	}
	sh := shell.New(a.tree, a.cfg.ApplicationName, opts...)

	status, err := sh.Run(ctx)
	if err != nil {
		return status, fmt.Errorf("interactive shell failed: %w", err)
	}
	return status, nil
}
