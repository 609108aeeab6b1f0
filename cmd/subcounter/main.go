// Package main implements subcounter, a demo bootkit application with
// subcommands and an interactive shell.
//
// Started with a subcommand, subcounter runs it and exits:
//
//	subcounter count up --start 3 --end 10
//	subcounter count down --start 10 --end 0 --delay 0.2
//
// Started without one, it enters the interactive shell where the same command
// lines can be entered repeatedly, with tab completion and history.
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
	appName = "subcounter"
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

func newApplication() (*bootstrap.Application, error) {
	cfg := bootstrap.DefaultConfig(appName, Version)
	cfg.ShellEnabled = true

	resources := counter.ResourceDirs(appName)
	cfg.LoggingConfigSearchPaths = append(cfg.LoggingConfigSearchPaths, resources...)
	cfg.ApplicationConfigSearchPaths = append(cfg.ApplicationConfigSearchPaths, resources...)
	if schema, err := configfile.FindFile(resources, []string{appName + "_config_schema.json"}); err == nil {
		cfg.ApplicationConfigSchemaFilepath = schema
	}

	return bootstrap.New(cfg, bootstrap.Operations{
		AddArguments: addCommands,
	})
}

// addCommands registers "count up" and "count down".
func addCommands(app *bootstrap.Application, _ *command.Command) error {
	if _, err := app.AddSubcommand("count", nil, command.WithHelp("count up or down")); err != nil {
		return err
	}

	for _, dir := range []counter.Direction{counter.Up, counter.Down} {
		cmd, err := app.AddSubcommand("count "+dir.String(), countHandler(app, dir),
			command.WithHelp(fmt.Sprintf("count %s from --start to --end", dir)))
		if err != nil {
			return err
		}
		counter.RegisterFlags(cmd)
	}
	return nil
}

func countHandler(app *bootstrap.Application, dir counter.Direction) command.Handler {
	return func(ctx context.Context, args *command.Args) (int, error) {
		settings, err := counter.LoadSettings(app.ApplicationConfig())
		if err != nil {
			return 0, err
		}
		opts, err := counter.OptionsFromArgs(args, dir, settings)
		if err != nil {
			return 0, err
		}

		logger := app.Logger()
		logger.Debug("Counting %s from %d, delay %s", dir, opts.Start, opts.Delay)
		return 0, counter.Run(ctx, opts, func(i int) { logger.Info("%d", i) })
	}
}
