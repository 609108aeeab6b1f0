package bootstrap

import (
	"errors"
	"fmt"

	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/configfile"
	"github.com/concave-dev/bootkit/pkg/logging"
)

// Reserved flags, registered on the root command in stage one.
const (
	flagVerbose       = "verbose"
	flagQuiet         = "quiet"
	flagLoggingConfig = "logging-config"
	flagLoggingDir    = "logging-dir"
	flagConfig        = "config"
)

// exitError ends the startup sequence with status. A nil err is a regular
// early exit, such as a help request.
type exitError struct {
	status int
	err    error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.status)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func fatal(err error) error {
	return &exitError{status: -1, err: err}
}

// stageOne registers flags, runs AddArguments and parses the command line.
func (a *Application) stageOne(argv []string) error {
	a.stage = StageOne

	flags := a.tree.Root().PersistentFlags()
	flags.Bool(flagVerbose, false, "run with verbose logging (debug level), also -vv; incompatible with --quiet")
	flags.BoolP(flagQuiet, "q", false, "run quietly without unnecessary output; incompatible with --verbose")
	flags.String(flagLoggingConfig, "", "logging config file to use")
	flags.String(flagLoggingDir, "", "directory for the logfile")
	flags.StringP(flagConfig, "c", "", "application config file to use")

	if a.ops.AddArguments != nil {
		if err := a.addArguments(); err != nil {
			return fatal(fmt.Errorf("%w: error during AddArguments: %w", ErrArgument, err))
		}
	}

	res := a.tree.Parse(argv, command.Lenient)
	a.parsed = true

	switch res.Kind {
	case command.ResultHelpRequested:
		if err := a.tree.WriteHelp(a.cfg.Stdout, res.Command); err != nil {
			return fatal(err)
		}
		return &exitError{status: 0}
	case command.ResultVersionRequested:
		if err := a.tree.WriteVersion(a.cfg.Stdout); err != nil {
			return fatal(err)
		}
		return &exitError{status: 0}
	case command.ResultParseError:
		return fatal(fmt.Errorf("%w: %w", ErrArgument, res.Err))
	}

	a.args = res.Args
	if a.verbose() && a.quiet() {
		return fatal(fmt.Errorf("%w: --verbose and --quiet are incompatible", ErrArgument))
	}

	return a.runHooks(StageOne)
}

// addArguments calls Operations.AddArguments and turns panics into errors.
// Redefining a reserved flag panics inside pflag, for example.
func (a *Application) addArguments() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.ops.AddArguments(a, a.tree.Root())
}

// stageTwo initializes logging and the application config.
func (a *Application) stageTwo() error {
	a.stage = StageTwo

	switch {
	case a.cfg.CustomLoggingEnabled:
		if err := a.initCustomLogging(); err != nil {
			return err
		}
	case a.cfg.DefaultLoggingEnabled:
		if err := a.initDefaultLogging(); err != nil {
			return err
		}
	default:
		if level := a.forcedLevel(); level != "" {
			logging.SetLevel(level)
		}
	}

	if a.cfg.ApplicationConfigEnabled {
		if err := a.initApplicationConfig(); err != nil {
			return err
		}
	}

	return a.runHooks(StageTwo)
}

// initCustomLogging activates the resolved custom logging configuration and
// falls back to the default one when none is found or it fails to activate.
func (a *Application) initCustomLogging() error {
	path, source, err := configfile.Resolve(
		a.flagString(flagLoggingConfig),
		a.cfg.LoggingConfigFilepath,
		a.cfg.LoggingConfigSearchPaths,
		a.cfg.LoggingConfigSearchFilenames,
	)
	if err != nil {
		var nf *configfile.NotFoundError
		explicit := errors.As(err, &nf) && nf.Path != ""
		if fallbackErr := a.initDefaultLogging(); fallbackErr != nil {
			return fallbackErr
		}
		if explicit {
			logging.Warn("Using default logging config: %v", err)
		} else {
			logging.Debug("No custom logging config found, using default logging config")
		}
		return nil
	}

	doc, err := logging.LoadDocument(path)
	if err == nil {
		err = a.activateLogging(doc)
	}
	if err != nil {
		if fallbackErr := a.initDefaultLogging(); fallbackErr != nil {
			return fallbackErr
		}
		logging.Error("Error reading logging config (%s), using default logging config: %v", path, err)
		return nil
	}

	a.loggingConfigType = logging.ConfigTypeCustom
	a.loggingConfigPath = path
	a.loggingConfigSource = source
	return nil
}

// initDefaultLogging activates the default logging configuration. Failing to
// do so is fatal.
func (a *Application) initDefaultLogging() error {
	a.defaultLoggingTried = true

	var (
		doc  logging.Document
		path = logging.DefaultDocumentName
		err  error
	)
	if a.cfg.LoggingDefaultConfigFilepath != "" {
		path = a.cfg.LoggingDefaultConfigFilepath
		doc, err = logging.LoadDocument(path)
	} else {
		doc = logging.DefaultDocument()
	}
	if err == nil {
		err = a.activateLogging(doc)
	}
	if err != nil {
		return fatal(fmt.Errorf("failed to initialize default logging from %s: %w", path, err))
	}

	a.loggingConfigType = logging.ConfigTypeDefault
	a.loggingConfigPath = path
	a.loggingConfigSource = configfile.SourceNone
	return nil
}

// activateLogging applies the forced level and the logfile destination to doc
// and activates it.
func (a *Application) activateLogging(doc logging.Document) error {
	if level := a.forcedLevel(); level != "" {
		doc.ForceLevel(level)
	}

	logfile := ""
	if len(doc.FileHandlerFilenames()) > 0 {
		path, err := logging.LogfilePath(
			a.flagString(flagLoggingDir),
			a.cfg.LoggingLogfileOutputDir,
			a.cfg.LoggingLogfileFilename,
			a.cfg.ApplicationName,
			a.startedAt,
		)
		if err != nil {
			return err
		}
		doc.SetFileHandlerFilename(path)
		logfile = path
	}

	if err := logging.ActivateDocument(doc); err != nil {
		return err
	}
	a.logfilePath = logfile
	return nil
}

// ensureLogging makes sure a logging configuration is active before a fatal
// error is reported. Stage one failures happen before stage two ran.
func (a *Application) ensureLogging() {
	if a.loggingConfigType != logging.ConfigTypeNone || a.defaultLoggingTried {
		return
	}
	if err := a.initDefaultLogging(); err != nil {
		// Pre-activation console logging stays in place
		logging.Error("%v", err)
	}
}

// initApplicationConfig resolves, loads and validates the application config.
// Every failure is fatal.
func (a *Application) initApplicationConfig() error {
	path, source, err := configfile.Resolve(
		a.flagString(flagConfig),
		a.cfg.ApplicationConfigFilepath,
		a.cfg.ApplicationConfigSearchPaths,
		a.cfg.ApplicationConfigSearchFilenames,
	)
	if err != nil {
		var nf *configfile.NotFoundError
		if errors.As(err, &nf) && nf.Path == "" {
			logging.Error("Unable to find application config in the following directories with the following filenames:")
			logging.Error("Directories: %v", nf.Dirs)
			logging.Error("Filenames: %v", nf.Filenames)
		}
		return fatal(err)
	}

	doc, err := configfile.LoadJSON(path, a.cfg.ApplicationConfigSchemaFilepath)
	if err != nil {
		logging.Error("Error reading application config (%s), source %s", path, source)
		return fatal(err)
	}

	a.appConfig = doc
	a.appConfigPath = path
	a.appConfigSource = source
	return nil
}

// stageThree logs the diagnostic dump.
func (a *Application) stageThree() error {
	a.stage = StageThree
	if logging.Get("").DebugEnabled() {
		a.logDiagnostics()
	}
	return a.runHooks(StageThree)
}

// forcedLevel returns the level every logger is forced to: DEBUG for
// --verbose, else the configured level, else "".
func (a *Application) forcedLevel() string {
	if a.verbose() {
		return "DEBUG"
	}
	return a.cfg.LoggingForceLogLevel
}

func (a *Application) verbose() bool {
	return a.flagBool(flagVerbose)
}

func (a *Application) quiet() bool {
	return a.flagBool(flagQuiet)
}

// flagBool reads a reserved flag. Reserved flags are persistent on the root,
// so they are read from there regardless of the selected command.
func (a *Application) flagBool(name string) bool {
	v, err := a.tree.Root().PersistentFlags().GetBool(name)
	return err == nil && v
}

func (a *Application) flagString(name string) string {
	v, err := a.tree.Root().PersistentFlags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}
