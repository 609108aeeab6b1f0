package command

import (
	"github.com/spf13/pflag"
)

// Args is a parsed command line: the selected command and the values of every
// flag visible to it, including inherited ones.
type Args struct {
	Command    *Command
	Positional []string
}

// Flags returns every flag visible to the selected command.
func (a *Args) Flags() *pflag.FlagSet {
	return a.Command.cobra.Flags()
}

// Changed reports whether the flag was set on the command line.
func (a *Args) Changed(name string) bool {
	return flagSet(a.Flags(), name)
}

func (a *Args) Bool(name string) (bool, error) {
	return a.Flags().GetBool(name)
}

func (a *Args) Int(name string) (int, error) {
	return a.Flags().GetInt(name)
}

func (a *Args) Float64(name string) (float64, error) {
	return a.Flags().GetFloat64(name)
}

func (a *Args) String(name string) (string, error) {
	return a.Flags().GetString(name)
}

func (a *Args) StringSlice(name string) ([]string, error) {
	return a.Flags().GetStringSlice(name)
}
