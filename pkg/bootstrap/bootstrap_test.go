package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/configfile"
	"github.com/concave-dev/bootkit/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a config that keeps every file inside temporary
// directories: no custom logging config is found and the application config
// is searched in an empty directory.
func testConfig(t *testing.T) (Config, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg := DefaultConfig("testapp", "1.0.0")
	cfg.LoggingConfigSearchPaths = []string{t.TempDir()}
	cfg.LoggingLogfileOutputDir = t.TempDir()
	cfg.ApplicationConfigSearchPaths = []string{t.TempDir()}
	cfg.Stdout = out
	cfg.Stderr = io.Discard
	return cfg, out
}

func withoutAppConfig(t *testing.T) (Config, *bytes.Buffer) {
	cfg, out := testConfig(t)
	cfg.ApplicationConfigEnabled = false
	return cfg, out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runReturning(calls *int, status int, err error) command.Handler {
	return func(context.Context, *command.Args) (int, error) {
		*calls++
		return status, err
	}
}

func TestStartWithoutApplicationConfig(t *testing.T) {
	cfg, _ := testConfig(t)
	calls := 0
	app, err := New(cfg, Operations{Run: runReturning(&calls, 0, nil)})
	require.NoError(t, err)

	status := app.Start(context.Background(), nil)

	assert.NotEqual(t, 0, status)
	assert.Equal(t, 0, calls)
	assert.Equal(t, StageTerminated, app.Stage())
	assert.Equal(t, logging.ConfigTypeDefault, app.LoggingConfigType())
}

func TestStartRunStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   int
	}{
		{"zero", 0, nil, 0},
		{"explicit status", 7, nil, 7},
		{"handler error", 3, errors.New("failed"), -1},
		{"cancellation error without interrupt", 0, context.Canceled, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := withoutAppConfig(t)
			calls := 0
			app, err := New(cfg, Operations{Run: runReturning(&calls, tt.status, tt.err)})
			require.NoError(t, err)

			assert.Equal(t, tt.want, app.Start(context.Background(), nil))
			assert.Equal(t, 1, calls)
		})
	}
}

func TestStartHelpAndVersion(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"long version", []string{"--version"}, "testapp 1.0.0"},
		{"short version", []string{"-v"}, "testapp 1.0.0"},
		{"help", []string{"--help"}, "--logging-config"},
		{"short help", []string{"-h"}, "--config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, out := testConfig(t)
			calls := 0
			app, err := New(cfg, Operations{Run: runReturning(&calls, 5, nil)})
			require.NoError(t, err)

			assert.Equal(t, 0, app.Start(context.Background(), tt.argv))
			assert.Equal(t, 0, calls)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestVerboseAndQuietRejected(t *testing.T) {
	for _, argv := range [][]string{{"--verbose", "--quiet"}, {"-vv", "-q"}} {
		cfg, _ := withoutAppConfig(t)
		calls := 0
		app, err := New(cfg, Operations{Run: runReturning(&calls, 0, nil)})
		require.NoError(t, err)

		stageTwoRan := false
		require.NoError(t, app.AddStageTwoHook(func(*Application) error {
			stageTwoRan = true
			return nil
		}))

		assert.Equal(t, -1, app.Start(context.Background(), argv), "%v", argv)
		assert.False(t, stageTwoRan)
		assert.Equal(t, 0, calls)
	}
}

func TestVerboseForcesDebug(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	debugEnabled := false
	app, err := New(cfg, Operations{Run: func(context.Context, *command.Args) (int, error) {
		debugEnabled = logging.Get("").DebugEnabled()
		return 0, nil
	}})
	require.NoError(t, err)

	assert.Equal(t, 0, app.Start(context.Background(), []string{"-vv"}))
	assert.True(t, debugEnabled)
}

func TestHooksRunInOrder(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	var order []string
	app, err := New(cfg, Operations{
		AddArguments: func(app *Application, root *command.Command) error {
			order = append(order, "add-arguments:"+app.Stage().String())
			return nil
		},
		Run: func(context.Context, *command.Args) (int, error) {
			order = append(order, "run")
			return 0, nil
		},
	})
	require.NoError(t, err)

	record := func(name string) Hook {
		return func(app *Application) error {
			order = append(order, name+":"+app.Stage().String())
			return nil
		}
	}
	require.NoError(t, app.AddStageThreeHook(record("three")))
	require.NoError(t, app.AddStageOneHook(record("one-a")))
	require.NoError(t, app.AddStageTwoHook(record("two")))
	require.NoError(t, app.AddStageOneHook(record("one-b")))

	require.Equal(t, 0, app.Start(context.Background(), nil))
	assert.Equal(t, []string{
		"add-arguments:STAGE_ONE",
		"one-a:STAGE_ONE",
		"one-b:STAGE_ONE",
		"two:STAGE_TWO",
		"three:STAGE_THREE",
		"run",
	}, order)

	assert.True(t, errors.Is(app.AddStageOneHook(record("late")), ErrStagePassed))
	assert.Equal(t, -1, app.Start(context.Background(), nil), "second start")
}

func TestFailingHookIsFatal(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	calls := 0
	app, err := New(cfg, Operations{Run: runReturning(&calls, 0, nil)})
	require.NoError(t, err)
	require.NoError(t, app.AddStageTwoHook(func(*Application) error { return errors.New("hook failed") }))

	assert.Equal(t, -1, app.Start(context.Background(), nil))
	assert.Equal(t, 0, calls)
}

func TestPanicInHookIsFatal(t *testing.T) {
	tests := []struct {
		name string
		add  func(*Application, Hook) error
	}{
		{"stage one", (*Application).AddStageOneHook},
		{"stage two", (*Application).AddStageTwoHook},
		{"stage three", (*Application).AddStageThreeHook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := withoutAppConfig(t)
			calls := 0
			app, err := New(cfg, Operations{Run: runReturning(&calls, 0, nil)})
			require.NoError(t, err)
			require.NoError(t, tt.add(app, func(*Application) error { panic("hook exploded") }))

			assert.Equal(t, -1, app.Start(context.Background(), nil))
			assert.Equal(t, 0, calls)
			assert.Equal(t, StageTerminated, app.Stage())
		})
	}
}

func TestAddArgumentsFailures(t *testing.T) {
	tests := []struct {
		name string
		add  func(*Application, *command.Command) error
	}{
		{"error", func(*Application, *command.Command) error { return errors.New("bad arguments") }},
		{"panic", func(*Application, *command.Command) error { panic("bad arguments") }},
		{"reserved flag", func(_ *Application, root *command.Command) error {
			root.PersistentFlags().String("config", "", "clashes with the reserved flag")
			return nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := withoutAppConfig(t)
			calls := 0
			app, err := New(cfg, Operations{AddArguments: tt.add, Run: runReturning(&calls, 0, nil)})
			require.NoError(t, err)

			assert.Equal(t, -1, app.Start(context.Background(), nil))
			assert.Equal(t, 0, calls)
			assert.Equal(t, logging.ConfigTypeDefault, app.LoggingConfigType())
		})
	}
}

func TestInterruptIsSuccess(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := New(cfg, Operations{Run: func(ctx context.Context, _ *command.Args) (int, error) {
		cancel()
		<-ctx.Done()
		return 9, ctx.Err()
	}})
	require.NoError(t, err)

	assert.Equal(t, 0, app.Start(ctx, nil))
}

func TestPanicInRun(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	app, err := New(cfg, Operations{Run: func(context.Context, *command.Args) (int, error) {
		panic("run exploded")
	}})
	require.NoError(t, err)

	assert.Equal(t, -1, app.Start(context.Background(), nil))
	assert.Equal(t, StageTerminated, app.Stage())
}

func TestNoRunOperation(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	app, err := New(cfg, Operations{})
	require.NoError(t, err)

	assert.Equal(t, -1, app.Start(context.Background(), nil))
}

func TestApplicationConfigResolution(t *testing.T) {
	cfg, _ := testConfig(t)
	dir := cfg.ApplicationConfigSearchPaths[0]
	searched := writeFile(t, dir, "testapp_config.json", `{"name": "searched"}`)
	cli := writeFile(t, t.TempDir(), "cli.json", `{"name": "cli"}`)
	cfg.ApplicationConfigSchemaFilepath = writeFile(t, t.TempDir(), "schema.json",
		`{"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}}`)

	tests := []struct {
		name       string
		argv       []string
		wantPath   string
		wantSource configfile.Source
		wantName   string
	}{
		{"searched", nil, searched, configfile.SourceSearched, "searched"},
		{"cli argument", []string{"-c", cli}, cli, configfile.SourceCLIArgument, "cli"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen configfile.Document
			app, err := New(cfg, Operations{Run: func(context.Context, *command.Args) (int, error) {
				return 0, nil
			}})
			require.NoError(t, err)
			require.NoError(t, app.AddStageTwoHook(func(app *Application) error {
				seen = app.ApplicationConfig()
				return nil
			}))

			require.Equal(t, 0, app.Start(context.Background(), tt.argv))
			assert.Equal(t, tt.wantPath, app.ApplicationConfigFilepath())
			assert.Equal(t, tt.wantSource, app.ApplicationConfigSource())
			require.NotNil(t, seen)
			assert.Equal(t, tt.wantName, seen["name"])
		})
	}
}

func TestApplicationConfigSchemaViolation(t *testing.T) {
	cfg, _ := testConfig(t)
	writeFile(t, cfg.ApplicationConfigSearchPaths[0], "testapp_config.json", `{"name": 42}`)
	cfg.ApplicationConfigSchemaFilepath = writeFile(t, t.TempDir(), "schema.json",
		`{"type": "object", "properties": {"name": {"type": "string"}}}`)

	calls := 0
	app, err := New(cfg, Operations{Run: runReturning(&calls, 0, nil)})
	require.NoError(t, err)

	assert.Equal(t, -1, app.Start(context.Background(), nil))
	assert.Equal(t, 0, calls)
}

func TestCustomLogging(t *testing.T) {
	custom := `
handlers:
  file: {class: file, filename: placeholder.log}
root:
  level: INFO
  handlers: [file]
`
	cfg, _ := withoutAppConfig(t)
	good := writeFile(t, cfg.LoggingConfigSearchPaths[0], "logging.yaml", custom)
	broken := writeFile(t, t.TempDir(), "broken.yaml", "handlers:\n  h: {class: socket}\n")

	tests := []struct {
		name       string
		argv       []string
		wantType   logging.ConfigType
		wantSource configfile.Source
		wantPath   string
	}{
		{"searched", nil, logging.ConfigTypeCustom, configfile.SourceSearched, good},
		{"cli argument", []string{"--logging-config", good}, logging.ConfigTypeCustom, configfile.SourceCLIArgument, good},
		{"broken falls back", []string{"--logging-config", broken}, logging.ConfigTypeDefault, configfile.SourceNone, logging.DefaultDocumentName},
		{"missing falls back", []string{"--logging-config", broken + ".missing"}, logging.ConfigTypeDefault, configfile.SourceNone, logging.DefaultDocumentName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logDir := t.TempDir()
			app, err := New(cfg, Operations{Run: func(context.Context, *command.Args) (int, error) { return 0, nil }})
			require.NoError(t, err)

			argv := append([]string{"--logging-dir", logDir}, tt.argv...)
			require.Equal(t, 0, app.Start(context.Background(), argv))
			assert.Equal(t, tt.wantType, app.LoggingConfigType())
			assert.Equal(t, tt.wantSource, app.LoggingConfigSource())
			assert.Equal(t, tt.wantPath, app.LoggingConfigFilepath())
			assert.Equal(t, logDir, filepath.Dir(app.LogfileFilepath()))
			assert.FileExists(t, app.LogfileFilepath())
		})
	}
}

func TestDefaultLoggingFailureIsFatal(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	broken := writeFile(t, t.TempDir(), "default.yaml", "handlers:\n  h: {class: socket}\n")
	brokenCustom := writeFile(t, t.TempDir(), "custom.yaml", "root: [not, a, mapping]\n")

	tests := []struct {
		name   string
		custom bool
		argv   []string
	}{
		{"default only", false, nil},
		{"custom not found", true, nil},
		{"custom broken", true, []string{"--logging-config", brokenCustom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cfg
			cfg.CustomLoggingEnabled = tt.custom
			cfg.LoggingDefaultConfigFilepath = broken

			calls := 0
			app, err := New(cfg, Operations{Run: runReturning(&calls, 0, nil)})
			require.NoError(t, err)

			assert.Equal(t, -1, app.Start(context.Background(), tt.argv))
			assert.Equal(t, 0, calls)
			assert.Equal(t, logging.ConfigTypeNone, app.LoggingConfigType())
			assert.Equal(t, StageTerminated, app.Stage())
		})
	}
}

func TestLoggingDisabled(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	cfg.CustomLoggingEnabled = false
	cfg.DefaultLoggingEnabled = false

	app, err := New(cfg, Operations{Run: func(context.Context, *command.Args) (int, error) { return 0, nil }})
	require.NoError(t, err)

	assert.Equal(t, 0, app.Start(context.Background(), nil))
	assert.Equal(t, logging.ConfigTypeNone, app.LoggingConfigType())
	assert.Empty(t, app.LogfileFilepath())
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want int
	}{
		{"leaf", []string{"count", "up", "--start", "2"}, 2},
		{"missing subcommand", nil, -1},
		{"unknown subcommand", []string{"count", "sideways"}, -1},
		{"unknown flag before subcommand", []string{"--unknown", "count", "up", "--start", "4"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := withoutAppConfig(t)
			app, err := New(cfg, Operations{})
			require.NoError(t, err)

			up, err := app.AddSubcommand("count up", func(_ context.Context, args *command.Args) (int, error) {
				return args.Int("start")
			})
			require.NoError(t, err)
			up.Flags().Int("start", 0, "first value")

			assert.Equal(t, tt.want, app.Start(context.Background(), tt.argv))

			_, err = app.AddSubcommand("late", nil)
			assert.True(t, errors.Is(err, ErrStagePassed))
		})
	}
}

type lines struct {
	queue []string
}

func (l *lines) Readline() (string, error) {
	if len(l.queue) == 0 {
		return "", io.EOF
	}
	line := l.queue[0]
	l.queue = l.queue[1:]
	return line, nil
}

func (l *lines) Close() error { return nil }

func TestShellMode(t *testing.T) {
	cfg, out := withoutAppConfig(t)
	cfg.ShellEnabled = true

	app, err := New(cfg, Operations{})
	require.NoError(t, err)

	calls := 0
	_, err = app.AddSubcommand("count up", runReturning(&calls, 0, nil))
	require.NoError(t, err)
	app.SetShellReader(&lines{queue: []string{"unregistered line", "count up", "count up"}})

	assert.Equal(t, 0, app.Start(context.Background(), nil))
	assert.Contains(t, out.String(), "Command unavailable: 'unregistered line'")
	assert.Equal(t, 2, calls)
}

func TestShellModeDirectSubcommand(t *testing.T) {
	cfg, _ := withoutAppConfig(t)
	cfg.ShellEnabled = true

	app, err := New(cfg, Operations{})
	require.NoError(t, err)

	calls := 0
	_, err = app.AddSubcommand("count up", runReturning(&calls, 4, nil))
	require.NoError(t, err)
	app.SetShellReader(&lines{queue: []string{"count up"}})

	assert.Equal(t, 4, app.Start(context.Background(), []string{"count", "up"}))
	assert.Equal(t, 1, calls, "the shell is not entered when a subcommand is given")
}

func TestNewValidation(t *testing.T) {
	run := func(context.Context, *command.Args) (int, error) { return 0, nil }

	tests := []struct {
		name   string
		mutate func(*Config)
		ops    Operations
	}{
		{"run with shell", func(c *Config) { c.ShellEnabled = true }, Operations{Run: run}},
		{"empty name", func(c *Config) { c.ApplicationName = "" }, Operations{}},
		{"name with spaces", func(c *Config) { c.ApplicationName = "my app" }, Operations{}},
		{"empty version", func(c *Config) { c.Version = "" }, Operations{}},
		{"bad forced level", func(c *Config) { c.LoggingForceLogLevel = "TRACE" }, Operations{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("testapp", "1.0.0")
			tt.mutate(&cfg)
			_, err := New(cfg, tt.ops)
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("myapp", "2.0.0")

	assert.True(t, cfg.CustomLoggingEnabled)
	assert.True(t, cfg.DefaultLoggingEnabled)
	assert.True(t, cfg.ApplicationConfigEnabled)
	assert.False(t, cfg.ShellEnabled)
	assert.Equal(t, []string{"myapp_config.json", ".myapp_config.json"}, cfg.ApplicationConfigSearchFilenames)
	assert.Contains(t, cfg.LoggingConfigSearchFilenames, "myapp_logging.yaml")
	assert.NoError(t, cfg.Validate())
}
