package bootstrap

import (
	"os"
	"os/user"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/concave-dev/bootkit/internal/version"
	"github.com/concave-dev/bootkit/pkg/logging"
)

// logDiagnostics logs process identity, environment, effective configuration
// and the provenance of every resolved file.
func (a *Application) logDiagnostics() {
	logging.Debug("********************************************")
	logging.Debug("bootkit framework started!")
	logging.Debug("********************************************")

	logging.Debug("system information:")
	logging.Debug("- bootkit framework version = %s", version.FrameworkVersion)
	logging.Debug("- go version = %s", runtime.Version())
	logging.Debug("- operating system = %s/%s", runtime.GOOS, runtime.GOARCH)
	if hostname, err := os.Hostname(); err == nil {
		logging.Debug("- hostname = %s", hostname)
	}

	logging.Debug("environment information:")
	if exe, err := os.Executable(); err == nil {
		logging.Debug("- executable = %s", exe)
	}
	logging.Debug("- modules = [")
	for _, dep := range buildDependencies() {
		logging.Debug("    %s", dep)
	}
	logging.Debug("  ]")

	logging.Debug("process information:")
	logging.Debug("- run id = %s", logging.FormatID(a.runID))
	logging.Debug("- argv = %v", os.Args)
	logging.Debug("- pid = %d", os.Getpid())
	if u, err := user.Current(); err == nil {
		logging.Debug("- user = %s (uid=%s,gid=%s)", u.Username, u.Uid, u.Gid)
	}
	if cwd, err := os.Getwd(); err == nil {
		logging.Debug("- cwd = %s", cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		logging.Debug("- home dir = %s", home)
	}

	cfg := a.cfg
	logging.Debug("framework config:")
	logging.Debug("- config parameter = [")
	logging.Debug("    application name = %s", cfg.ApplicationName)
	logging.Debug("    version = %s", cfg.Version)
	logging.Debug("    custom logging enabled = %t", cfg.CustomLoggingEnabled)
	logging.Debug("    default logging enabled = %t", cfg.DefaultLoggingEnabled)
	logging.Debug("    application config enabled = %t", cfg.ApplicationConfigEnabled)
	logging.Debug("    application config schema = %s", cfg.ApplicationConfigSchemaFilepath)
	logging.Debug("    shell enabled = %t", cfg.ShellEnabled)
	logging.Debug("  ]")
	logging.Debug("- AddArguments available = %t", a.ops.AddArguments != nil)
	logging.Debug("- Run available = %t", a.ops.Run != nil)

	logging.Debug("logging config:")
	logging.Debug("- logfile = %s", a.logfilePath)
	logging.Debug("- logging config type = %s", a.loggingConfigType)
	logging.Debug("- logging config filepath = %s", a.loggingConfigPath)
	logging.Debug("- logging config filepath source = %s", a.loggingConfigSource)
	logging.Debug("- logging config search paths = [%s]", strings.Join(cfg.LoggingConfigSearchPaths, ", "))
	logging.Debug("- logging config search filenames = [%s]", strings.Join(cfg.LoggingConfigSearchFilenames, ", "))
	logging.Debug("- forced log level = %s", a.forcedLevel())

	logging.Debug("application config:")
	logging.Debug("- application config filepath = %s", a.appConfigPath)
	logging.Debug("- application config filepath source = %s", a.appConfigSource)
	logging.Debug("- application config search paths = [%s]", strings.Join(cfg.ApplicationConfigSearchPaths, ", "))
	logging.Debug("- application config search filenames = [%s]", strings.Join(cfg.ApplicationConfigSearchFilenames, ", "))
}

// buildDependencies lists the modules compiled into the binary.
func buildDependencies() []string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(info.Deps))
	for _, dep := range info.Deps {
		deps = append(deps, dep.Path+"@"+dep.Version)
	}
	return deps
}
