// Package main implements counter, a demo bootkit application with a
// single operation.
//
// counter logs every value from --start to --end, waiting --delay seconds
// between values. --forever counts until interrupted; exactly one of --end
// and --forever is required. The default delay can be set in the
// application config (resources/counter_config.json).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/concave-dev/bootkit/internal/counter"
	"github.com/concave-dev/bootkit/pkg/bootstrap"
	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/configfile"
)

const (
	appName = "counter"
	Version = "0.1.0-dev" // Version information
)

func main() {
	app, err := newApplication()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(app.Start(context.Background(), os.Args[1:]))
}

// newApplication wires the counter into a bootstrapped application that also
// searches the shipped resources directory for its config files.
func newApplication() (*bootstrap.Application, error) {
	cfg := bootstrap.DefaultConfig(appName, Version)

	resources := counter.ResourceDirs(appName)
	cfg.LoggingConfigSearchPaths = append(cfg.LoggingConfigSearchPaths, resources...)
	cfg.ApplicationConfigSearchPaths = append(cfg.ApplicationConfigSearchPaths, resources...)
	if schema, err := configfile.FindFile(resources, []string{appName + "_config_schema.json"}); err == nil {
		cfg.ApplicationConfigSchemaFilepath = schema
	}

	var app *bootstrap.Application
	app, err := bootstrap.New(cfg, bootstrap.Operations{
		AddArguments: func(_ *bootstrap.Application, root *command.Command) error {
			counter.RegisterFlags(root)
			return nil
		},
		Run: func(ctx context.Context, args *command.Args) (int, error) {
			return count(ctx, app, args)
		},
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// count runs the counter with the parsed flags and the configured defaults.
func count(ctx context.Context, app *bootstrap.Application, args *command.Args) (int, error) {
	settings, err := counter.LoadSettings(app.ApplicationConfig())
	if err != nil {
		return 0, err
	}
	opts, err := counter.OptionsFromArgs(args, counter.Up, settings)
	if err != nil {
		return 0, err
	}

	logger := app.Logger()
	if opts.Forever {
		logger.Debug("Counting from %d until interrupted, delay %s", opts.Start, opts.Delay)
	} else {
		logger.Debug("Counting from %d to %d, delay %s", opts.Start, opts.End, opts.Delay)
	}

	if err := counter.Run(ctx, opts, func(i int) { logger.Info("%d", i) }); err != nil {
		return 0, err
	}
	return 0, nil
}
