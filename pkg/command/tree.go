package command

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ParseMode controls how unknown flags are treated.
type ParseMode int

const (
	// Lenient ignores unknown flags. Used for the first pass over the command
	// line, before the application has registered all of its commands.
	Lenient ParseMode = iota

	// Strict rejects unknown flags.
	Strict
)

// ResultKind tells what a parse produced.
type ResultKind int

const (
	ResultParsed ResultKind = iota
	ResultHelpRequested
	ResultVersionRequested
	ResultParseError
)

func (k ResultKind) String() string {
	switch k {
	case ResultParsed:
		return "PARSED"
	case ResultHelpRequested:
		return "HELP_REQUESTED"
	case ResultVersionRequested:
		return "VERSION_REQUESTED"
	default:
		return "PARSE_ERROR"
	}
}

// Result is the outcome of Tree.Parse.
type Result struct {
	Kind ResultKind

	// Command is the selected node. Set for every kind except lookup failures.
	Command *Command

	// Args is set when Kind is ResultParsed.
	Args *Args

	// Err is set when Kind is ResultParseError.
	Err error
}

// Tree is the command registry of an application.
type Tree struct {
	root    *Command
	version string
	index   map[*cobra.Command]*Command
}

// NewTree creates a tree whose root is named name and runs handler, which may
// be nil. The root carries the persistent -h/--help flag.
func NewTree(name string, handler Handler) *Tree {
	t := &Tree{index: make(map[*cobra.Command]*Command)}
	t.root = newCommand(t, nil, name)
	if handler != nil {
		t.root.setHandler(handler)
	}
	t.root.cobra.PersistentFlags().BoolP("help", "h", false, "show this help message and exit")
	return t
}

// SetVersion sets the version text and adds the persistent -v/--version flag.
func (t *Tree) SetVersion(version string) {
	t.version = version
	t.root.cobra.Version = version
	if t.root.cobra.PersistentFlags().Lookup("version") == nil {
		t.root.cobra.PersistentFlags().BoolP("version", "v", false, "show program's version number and exit")
	}
}

// Version returns the version text set by SetVersion.
func (t *Tree) Version() string {
	return t.version
}

// Root returns the root node.
func (t *Tree) Root() *Command {
	return t.root
}

// SetRootHandler replaces the handler of the root node.
func (t *Tree) SetRootHandler(handler Handler) {
	if handler == nil {
		t.root.handler = nil
		t.root.cobra.Run = nil
		return
	}
	t.root.setHandler(handler)
}

// AddSubcommand registers a command below the root. See Command.AddSubcommand.
func (t *Tree) AddSubcommand(path string, handler Handler, opts ...Option) (*Command, error) {
	return t.root.AddSubcommand(path, handler, opts...)
}

// FindSubcommand looks up a command below the root. See Command.FindSubcommand.
func (t *Tree) FindSubcommand(path string) (*Command, error) {
	return t.root.FindSubcommand(path)
}

// Parse selects the command named by argv and parses its flags.
//
// Flag values are reset to their defaults first, so repeated parses never see
// values from an earlier command line. A help request wins over every other
// outcome, then a version request, then parse errors.
func (t *Tree) Parse(argv []string, mode ParseMode) Result {
	argv = normalizeArgs(argv)
	if mode == Lenient {
		argv = t.skipUnknownFlags(argv)
	}
	t.resetFlags()

	target, rest, err := t.root.cobra.Find(argv)
	if err != nil {
		return Result{Kind: ResultParseError, Err: &NotAvailableError{Path: strings.Join(argv, " ")}}
	}
	cmd, ok := t.index[target]
	if !ok {
		return Result{Kind: ResultParseError, Err: fmt.Errorf("command '%s' is not part of this tree", target.CommandPath())}
	}

	target.FParseErrWhitelist = cobra.FParseErrWhitelist{UnknownFlags: mode == Lenient}
	parseErr := target.ParseFlags(rest)
	t.restoreSliceDefaults()

	if flagSet(target.Flags(), "help") {
		return Result{Kind: ResultHelpRequested, Command: cmd}
	}
	if t.version != "" && flagSet(target.Flags(), "version") {
		return Result{Kind: ResultVersionRequested, Command: cmd}
	}
	if parseErr != nil {
		return Result{Kind: ResultParseError, Command: cmd, Err: fmt.Errorf("%s: %w", cmd.Path(), parseErr)}
	}

	positional := target.Flags().Args()
	if len(cmd.children) > 0 && len(positional) > 0 {
		path := strings.TrimSpace(strings.TrimPrefix(cmd.Path(), t.root.Name()) + " " + positional[0])
		return Result{Kind: ResultParseError, Command: cmd, Err: &NotAvailableError{Path: path}}
	}
	if cmd.childSelection && cmd.handler == nil {
		return Result{Kind: ResultParseError, Command: cmd,
			Err: fmt.Errorf("%s: %w, choose from: %s", cmd.Path(), ErrSubcommandRequired, strings.Join(childNames(cmd), ", "))}
	}

	if mode == Strict && !cmd.positionalArgs && len(positional) > 0 {
		return Result{Kind: ResultParseError, Command: cmd,
			Err: fmt.Errorf("%s: %w: %s", cmd.Path(), ErrUnrecognizedArguments, strings.Join(positional, " "))}
	}

	checks := []func() error{
		func() error { return target.ValidateArgs(positional) },
		target.ValidateRequiredFlags,
		target.ValidateFlagGroups,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return Result{Kind: ResultParseError, Command: cmd, Err: fmt.Errorf("%s: %w", cmd.Path(), err)}
		}
	}

	return Result{
		Kind:    ResultParsed,
		Command: cmd,
		Args:    &Args{Command: cmd, Positional: positional},
	}
}

// Dispatch runs the handler of the command selected in args.
func (t *Tree) Dispatch(ctx context.Context, args *Args) (int, error) {
	if args == nil || args.Command == nil || args.Command.handler == nil {
		path := t.root.Name()
		if args != nil && args.Command != nil {
			path = args.Command.Path()
		}
		return 0, fmt.Errorf("%w: '%s'", ErrNoHandler, path)
	}
	return args.Command.handler(ctx, args)
}

// WriteHelp renders the help text of cmd to w.
func (t *Tree) WriteHelp(w io.Writer, cmd *Command) error {
	if cmd == nil {
		cmd = t.root
	}
	cmd.cobra.SetOut(w)
	return cmd.cobra.Help()
}

// WriteVersion renders the version text to w.
func (t *Tree) WriteVersion(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s\n", t.root.Name(), t.version)
	return err
}

// normalizeArgs rewrites the "-vv" spelling of --verbose, which pflag would
// otherwise read as a repeated -v.
func normalizeArgs(argv []string) []string {
	out := make([]string, 0, len(argv))
	for i, arg := range argv {
		if arg == "--" {
			out = append(out, argv[i:]...)
			break
		}
		if arg == "-vv" {
			arg = "--verbose"
		}
		out = append(out, arg)
	}
	return out
}

// skipUnknownFlags drops unknown flags that are directly followed by a
// command token. Left in place, cobra would take the command token as the
// value of the unknown flag.
func (t *Tree) skipUnknownFlags(argv []string) []string {
	out := make([]string, 0, len(argv))
	node := t.root
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			return append(out, argv[i:]...)
		}

		if len(arg) < 2 || arg[0] != '-' {
			out = append(out, arg)
			child, ok := node.children[arg]
			if !ok {
				return append(out, argv[i+1:]...)
			}
			node = child
			continue
		}

		hasNext := i+1 < len(argv)
		flag := node.lookupFlag(arg)
		if flag == nil && hasNext && node.children[argv[i+1]] != nil {
			continue
		}

		out = append(out, arg)
		if hasNext && takesSeparateValue(flag, arg, argv[i+1]) {
			i++
			out = append(out, argv[i])
		}
	}
	return out
}

// lookupFlag finds the flag spelled by arg among the flags of c and the
// persistent flags of its ancestors.
func (c *Command) lookupFlag(arg string) *pflag.Flag {
	long := strings.HasPrefix(arg, "--")
	name := strings.TrimLeft(arg, "-")
	if i := strings.Index(name, "="); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return nil
	}

	for n := c; n != nil; n = n.parent {
		sets := []*pflag.FlagSet{n.cobra.PersistentFlags()}
		if n == c {
			sets = append(sets, n.cobra.Flags())
		}
		for _, fs := range sets {
			var f *pflag.Flag
			if long {
				f = fs.Lookup(name)
			} else {
				f = fs.ShorthandLookup(name[:1])
			}
			if f != nil {
				return f
			}
		}
	}
	return nil
}

// takesSeparateValue reports whether the token after arg is the value of the
// flag spelled by arg. Unknown flags take the next token unless it looks like
// a flag, matching how cobra strips them.
func takesSeparateValue(flag *pflag.Flag, arg, next string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	if !strings.HasPrefix(arg, "--") && len(arg) > 2 {
		return false
	}
	if flag == nil {
		return !strings.HasPrefix(next, "-")
	}
	return flag.NoOptDefVal == ""
}

// resetFlags restores every flag in the tree to its default value. Slice
// flags are emptied instead, because pflag appends to slices it has set
// before; restoreSliceDefaults puts their defaults back after parsing.
func (t *Tree) resetFlags() {
	for c := range t.index {
		c.Flags().VisitAll(resetFlag)
		c.PersistentFlags().VisitAll(resetFlag)
	}
}

func (t *Tree) restoreSliceDefaults() {
	for c := range t.index {
		c.Flags().VisitAll(restoreSliceDefault)
		c.PersistentFlags().VisitAll(restoreSliceDefault)
	}
}

func resetFlag(f *pflag.Flag) {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		_ = sv.Replace([]string{})
	} else {
		_ = f.Value.Set(f.DefValue)
	}
	f.Changed = false
}

func restoreSliceDefault(f *pflag.Flag) {
	sv, ok := f.Value.(pflag.SliceValue)
	if !ok || f.Changed {
		return
	}
	def := strings.TrimSuffix(strings.TrimPrefix(f.DefValue, "["), "]")
	items := []string{}
	if def != "" {
		items = strings.Split(def, ",")
	}
	_ = sv.Replace(items)
}

func flagSet(fs *pflag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

func childNames(c *Command) []string {
	var names []string
	for _, child := range c.Children() {
		names = append(names, child.Name())
	}
	return names
}
