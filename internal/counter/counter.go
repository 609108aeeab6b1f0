// Package counter implements the counting loop shared by the counter and subcounter applications.
//
// A counter emits every value from Start towards End, waiting Delay between
// values. Forever is the explicit infinite mode: End is ignored and the loop
// only ends when its context is cancelled.
package counter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/concave-dev/bootkit/internal/validate"
	"github.com/concave-dev/bootkit/pkg/command"
	"github.com/concave-dev/bootkit/pkg/configfile"
)

// Direction selects whether the counter increments or decrements.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// Flag names registered by RegisterFlags.
const (
	FlagStart   = "start"
	FlagEnd     = "end"
	FlagDelay   = "delay"
	FlagForever = "forever"
)

// DefaultDelay is used when neither the command line nor the application
// config sets a delay.
const DefaultDelay = time.Second

// Options configures one counting run.
type Options struct {
	Start     int
	End       int
	Forever   bool
	Delay     time.Duration
	Direction Direction
}

// Validate checks that the options describe a run that can be executed.
func (o Options) Validate() error {
	return validate.ValidateNonNegativeDuration(o.Delay, "delay")
}

// Settings is the counter section of the application config.
type Settings struct {
	DefaultDelaySeconds float64 `mapstructure:"default_delay_seconds"`
}

// LoadSettings decodes Settings from the "counter" section of doc. A missing
// section yields zero Settings.
func LoadSettings(doc configfile.Document) (Settings, error) {
	var s Settings
	section, ok := doc["counter"]
	if !ok {
		return s, nil
	}
	m, ok := section.(map[string]any)
	if !ok {
		return s, fmt.Errorf("counter section must be an object")
	}
	if err := configfile.Document(m).Decode(&s); err != nil {
		return s, fmt.Errorf("invalid counter section: %w", err)
	}
	return s, nil
}

// RegisterFlags adds the counter flags to cmd. Exactly one of --end and
// --forever must be given.
func RegisterFlags(cmd *command.Command) {
	flags := cmd.Flags()
	flags.Int(FlagStart, 0, "counter start")
	flags.Int(FlagEnd, 0, "counter end (inclusive)")
	flags.Float64(FlagDelay, DefaultDelay.Seconds(), "delay between values in seconds")
	flags.Bool(FlagForever, false, "count until interrupted")

	cmd.Cobra().MarkFlagsMutuallyExclusive(FlagEnd, FlagForever)
	cmd.Cobra().MarkFlagsOneRequired(FlagEnd, FlagForever)
}

// OptionsFromArgs builds Options from flags registered by RegisterFlags. When
// --delay is not given, a positive configured default delay takes its place.
func OptionsFromArgs(args *command.Args, dir Direction, settings Settings) (Options, error) {
	opts := Options{Direction: dir}

	var err error
	if opts.Start, err = args.Int(FlagStart); err != nil {
		return opts, err
	}
	if opts.End, err = args.Int(FlagEnd); err != nil {
		return opts, err
	}
	if opts.Forever, err = args.Bool(FlagForever); err != nil {
		return opts, err
	}

	delay, err := args.Float64(FlagDelay)
	if err != nil {
		return opts, err
	}
	if !args.Changed(FlagDelay) && settings.DefaultDelaySeconds > 0 {
		delay = settings.DefaultDelaySeconds
	}
	opts.Delay = time.Duration(delay * float64(time.Second))

	return opts, opts.Validate()
}

// Run emits values until the end is passed or ctx is cancelled, in which case
// ctx's error is returned. The start value is always emitted.
func Run(ctx context.Context, opts Options, emit func(int)) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	step := 1
	if opts.Direction == Down {
		step = -1
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i := opts.Start; ; i += step {
		emit(i)

		next := i + step
		if !opts.Forever && ((step > 0 && next > opts.End) || (step < 0 && next < opts.End)) {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		timer.Reset(opts.Delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ResourceDirs returns the directories the counter applications search for
// their shipped config files: ./resources and cmd/<app>/resources below the
// working directory, then <executable dir>/resources.
func ResourceDirs(app string) []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs,
			filepath.Join(cwd, "resources"),
			filepath.Join(cwd, "cmd", app, "resources"),
		)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "resources"))
	}
	return dirs
}
