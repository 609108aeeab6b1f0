// Package bootstrap drives the startup of bootkit applications.
//
// An Application runs a fixed sequence of stages before handing control to
// application code:
//
//   - STAGE ONE: reserved and application flags are registered and the command
//     line is parsed. Help and version requests end the run with status 0.
//   - STAGE TWO: logging is initialized from a custom configuration, falling
//     back to the built-in one, then the application config is resolved and
//     validated.
//   - STAGE THREE: a diagnostic dump of the process, the effective
//     configuration and the resolved files is logged at debug level.
//   - RUNNING: the handler of the selected command runs. Applications with
//     the shell enabled enter the interactive shell when no subcommand is given.
//
// Each stage runs its registered hooks, in registration order, after its core
// work. Every fatal condition goes through a single exit path that activates
// default logging first, so failures are never silent.
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/concave-dev/bootkit/internal/utils"
	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/configfile"
	"github.com/concave-dev/bootkit/pkg/logging"
	"github.com/concave-dev/bootkit/pkg/shell"
)

var (
	// ErrArgument marks malformed or conflicting command line arguments.
	ErrArgument = errors.New("argument error")

	// ErrStagePassed is returned when registering something for a stage that already ran.
	ErrStagePassed = errors.New("bootstrap stage already passed")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("application already started")
)

// Stage is a step of the startup sequence. Stages only move forward.
type Stage int

const (
	StageNone Stage = iota
	StageOne
	StageTwo
	StageThree
	StageRunning
	StageTerminated
)

func (s Stage) String() string {
	switch s {
	case StageOne:
		return "STAGE_ONE"
	case StageTwo:
		return "STAGE_TWO"
	case StageThree:
		return "STAGE_THREE"
	case StageRunning:
		return "RUNNING"
	case StageTerminated:
		return "TERMINATED"
	default:
		return "NONE"
	}
}

// Hook runs at the end of a stage. A returned error is fatal.
type Hook func(app *Application) error

// Operations are the optional entry points an application provides.
type Operations struct {
	// AddArguments registers application flags and subcommands on the root
	// command during stage one, before the command line is parsed.
	AddArguments func(app *Application, root *command.Command) error

	// Run is the handler of the root command. Mutually exclusive with the shell.
	Run command.Handler
}

// Application is a bootstrapped command line application.
type Application struct {
	cfg    Config
	ops    Operations
	tree   *command.Tree
	logger *logging.Logger
	runID  string

	stage     Stage
	startedAt time.Time
	hooks     map[Stage][]Hook
	parsed    bool
	args      *command.Args

	appConfig       configfile.Document
	appConfigPath   string
	appConfigSource configfile.Source

	loggingConfigPath   string
	loggingConfigSource configfile.Source
	loggingConfigType   logging.ConfigType
	logfilePath         string
	defaultLoggingTried bool

	shellReader shell.LineReader
}

// New validates cfg and creates an application. Run and the interactive
// shell both claim the root command, so enabling both is rejected.
func New(cfg Config, ops Operations) (*Application, error) {
	cfg = cfg.clone()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bootstrap config: %w", err)
	}
	if ops.Run != nil && cfg.ShellEnabled {
		return nil, fmt.Errorf("invalid bootstrap config: Run cannot be combined with ShellEnabled")
	}

	app := &Application{
		cfg:    cfg,
		ops:    ops,
		logger: logging.Get(cfg.ApplicationName),
		runID:  utils.GenerateRunID(),
		hooks:  make(map[Stage][]Hook),
	}

	app.tree = command.NewTree(cfg.ApplicationName, nil)
	app.tree.SetVersion(cfg.Version)
	switch {
	case cfg.ShellEnabled:
		app.tree.SetRootHandler(app.runShell)
	case ops.Run != nil:
		app.tree.SetRootHandler(ops.Run)
	}
	return app, nil
}

func (a *Application) addHook(stage Stage, h Hook) error {
	if h == nil {
		return fmt.Errorf("hook cannot be nil")
	}
	if a.stage > stage {
		return fmt.Errorf("%w: %s", ErrStagePassed, stage)
	}
	a.hooks[stage] = append(a.hooks[stage], h)
	return nil
}

// AddStageOneHook registers h to run after arguments are parsed.
func (a *Application) AddStageOneHook(h Hook) error {
	return a.addHook(StageOne, h)
}

// AddStageTwoHook registers h to run after logging and the application config are initialized.
func (a *Application) AddStageTwoHook(h Hook) error {
	return a.addHook(StageTwo, h)
}

// AddStageThreeHook registers h to run after the diagnostic dump.
func (a *Application) AddStageThreeHook(h Hook) error {
	return a.addHook(StageThree, h)
}

// runHooks runs the hooks of stage by index, so hooks may register further
// hooks for the same stage.
func (a *Application) runHooks(stage Stage) error {
	for i := 0; i < len(a.hooks[stage]); i++ {
		if err := a.hooks[stage][i](a); err != nil {
			return fmt.Errorf("%s hook #%d failed: %w", stage, i+1, err)
		}
	}
	return nil
}

// AddSubcommand registers a subcommand below the root. Subcommands must be
// registered before the command line is parsed, either before Start or from
// Operations.AddArguments.
func (a *Application) AddSubcommand(path string, handler command.Handler, opts ...command.Option) (*command.Command, error) {
	if a.parsed {
		return nil, fmt.Errorf("%w: subcommands must be added before arguments are parsed", ErrStagePassed)
	}
	return a.tree.AddSubcommand(path, handler, opts...)
}

// SetShellReader replaces the terminal line reader of the interactive shell.
func (a *Application) SetShellReader(r shell.LineReader) {
	a.shellReader = r
}

// Name returns the application name.
func (a *Application) Name() string { return a.cfg.ApplicationName }

// Version returns the application version.
func (a *Application) Version() string { return a.cfg.Version }

// Config returns a copy of the application's bootstrap configuration.
func (a *Application) Config() Config { return a.cfg.clone() }

// Stage returns the current stage.
func (a *Application) Stage() Stage { return a.stage }

// Tree returns the command tree.
func (a *Application) Tree() *command.Tree { return a.tree }

// Args returns the parsed command line, or nil before stage one completed.
func (a *Application) Args() *command.Args { return a.args }

// Logger returns the logger named after the application.
func (a *Application) Logger() *logging.Logger { return a.logger }

// RunID returns the identifier of this run.
func (a *Application) RunID() string { return a.runID }

// ApplicationConfig returns the loaded application config, or nil if disabled
// or not loaded yet.
func (a *Application) ApplicationConfig() configfile.Document { return a.appConfig }

func (a *Application) ApplicationConfigFilepath() string { return a.appConfigPath }

func (a *Application) ApplicationConfigSource() configfile.Source { return a.appConfigSource }

func (a *Application) LoggingConfigFilepath() string { return a.loggingConfigPath }

func (a *Application) LoggingConfigSource() configfile.Source { return a.loggingConfigSource }

func (a *Application) LoggingConfigType() logging.ConfigType { return a.loggingConfigType }

// LogfileFilepath returns the file the activated logging configuration writes
// to, or "" if it has no file handler.
func (a *Application) LogfileFilepath() string { return a.logfilePath }
