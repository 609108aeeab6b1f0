// Package command provides the hierarchical command registry shared by
// one-shot argument parsing and the interactive shell.
//
// Every node of the tree wraps a cobra command, which owns the flag namespace
// of that node. Nodes are created from space separated paths ("count up"),
// intermediate nodes are created on demand without a handler, and the terminal
// node receives the handler.
//
// TREE INVARIANTS:
//   - Ownership is strictly top-down; a node never moves or disappears once created
//   - A node with children but no handler requires exactly one child when parsed
//   - A node that has a handler is callable without selecting a child
//
// PARSING:
// Parse returns a Result instead of signalling help, version or errors through
// control flow. Cobra is used for command lookup and flag parsing only; the tree
// never calls cobra's Execute, so nothing in here exits the process.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/concave-dev/bootkit/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// ErrSubcommandNotAvailable is matched by every NotAvailableError.
	ErrSubcommandNotAvailable = errors.New("subcommand not available")

	// ErrDuplicateCommand is returned when a handler is registered twice for the same path.
	ErrDuplicateCommand = errors.New("command already has a handler")

	// ErrSubcommandRequired is returned when a node without handler is selected on its own.
	ErrSubcommandRequired = errors.New("subcommand required")

	// ErrNoHandler is returned by Dispatch for nodes without a handler.
	ErrNoHandler = errors.New("command has no handler")

	// ErrUnrecognizedArguments is returned by strict parses that leave
	// positional arguments on a command that does not accept them.
	ErrUnrecognizedArguments = errors.New("unrecognized arguments")
)

// Handler runs a command. The returned integer is the command status.
type Handler func(ctx context.Context, args *Args) (int, error)

// NotAvailableError reports a command path that is not registered.
type NotAvailableError struct {
	Path string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("subcommand not available: '%s'", e.Path)
}

// Is makes errors.Is(err, ErrSubcommandNotAvailable) hold for every NotAvailableError.
func (e *NotAvailableError) Is(target error) bool {
	return target == ErrSubcommandNotAvailable
}

// Command is one node of the command tree.
type Command struct {
	cobra    *cobra.Command
	handler  Handler
	parent   *Command
	children map[string]*Command

	// Set once the first child is attached
	childSelection bool

	// Set by WithArgs
	positionalArgs bool

	tree *Tree
}

// Option configures a command created by AddSubcommand.
type Option func(*Command)

// WithHelp sets the one-line help shown in the parent's command listing.
func WithHelp(help string) Option {
	return func(c *Command) {
		c.cobra.Short = help
	}
}

// WithDescription sets the long description shown in the command's own help.
func WithDescription(description string) Option {
	return func(c *Command) {
		c.cobra.Long = description
	}
}

// WithArgs lets the command take positional arguments, checked by validator.
// A nil validator accepts any number of them. Commands without this option
// reject positional arguments in strict parses.
func WithArgs(validator cobra.PositionalArgs) Option {
	return func(c *Command) {
		if validator == nil {
			validator = cobra.ArbitraryArgs
		}
		c.cobra.Args = validator
		c.positionalArgs = true
	}
}

func newCommand(tree *Tree, parent *Command, name string) *Command {
	c := &Command{
		cobra: &cobra.Command{
			Use:           name,
			Args:          cobra.ArbitraryArgs,
			SilenceErrors: true,
			SilenceUsage:  true,
		},
		parent:   parent,
		children: make(map[string]*Command),
		tree:     tree,
	}
	tree.index[c.cobra] = c
	return c
}

// setHandler assigns h and marks the cobra command runnable so that help
// output renders a usage line for it.
func (c *Command) setHandler(h Handler) {
	c.handler = h
	c.cobra.Run = func(*cobra.Command, []string) {}
}

// Name returns the token of this node. The root returns the application name.
func (c *Command) Name() string {
	return c.cobra.Name()
}

// Path returns the full command path, starting with the application name.
func (c *Command) Path() string {
	return c.cobra.CommandPath()
}

// Parent returns the parent node, or nil for the root.
func (c *Command) Parent() *Command {
	return c.parent
}

// HasHandler reports whether the node can be dispatched.
func (c *Command) HasHandler() bool {
	return c.handler != nil
}

// Flags returns the flags local to this node.
func (c *Command) Flags() *pflag.FlagSet {
	return c.cobra.Flags()
}

// PersistentFlags returns the flags of this node that are inherited by its descendants.
func (c *Command) PersistentFlags() *pflag.FlagSet {
	return c.cobra.PersistentFlags()
}

// Cobra exposes the underlying cobra command for flag groups, required flags
// and argument validators.
func (c *Command) Cobra() *cobra.Command {
	return c.cobra
}

// Children returns the child nodes sorted by name.
func (c *Command) Children() []*Command {
	names := make([]string, 0, len(c.children))
	for name := range c.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*Command, 0, len(names))
	for _, name := range names {
		out = append(out, c.children[name])
	}
	return out
}

// AddSubcommand registers a command below c. path holds one or more
// whitespace separated tokens; missing intermediate nodes are created without
// a handler. The terminal node receives handler, which may be nil to create a
// pure grouping node. Options are applied to the terminal node.
//
// Registering a handler on a node that already has one fails with
// ErrDuplicateCommand.
func (c *Command) AddSubcommand(path string, handler Handler, opts ...Option) (*Command, error) {
	tokens := strings.Fields(path)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("subcommand path cannot be empty")
	}
	for _, tok := range tokens {
		if err := validate.CommandNameFormat(tok); err != nil {
			return nil, fmt.Errorf("invalid subcommand path '%s': %w", path, err)
		}
	}

	node := c
	for _, tok := range tokens {
		child, ok := node.children[tok]
		if !ok {
			child = newCommand(c.tree, node, tok)
			node.cobra.AddCommand(child.cobra)
			node.children[tok] = child
			node.childSelection = true
		}
		node = child
	}

	if handler != nil {
		if node.handler != nil {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateCommand, node.Path())
		}
		node.setHandler(handler)
	}

	for _, opt := range opts {
		opt(node)
	}
	return node, nil
}

// FindSubcommand walks path from c and returns the node it names. An empty
// path returns c itself. A missing hop yields a *NotAvailableError.
func (c *Command) FindSubcommand(path string) (*Command, error) {
	node := c
	for _, tok := range strings.Fields(path) {
		child, ok := node.children[tok]
		if !ok {
			return nil, &NotAvailableError{Path: strings.TrimSpace(path)}
		}
		node = child
	}
	return node, nil
}

// CompletionTree maps completion candidates to the candidates that may follow
// them. A nil value marks a candidate with nothing after it.
type CompletionTree map[string]CompletionTree

// Completions returns the completion candidates at this node: child command
// names mapped to their own completions, plus "--<flag>" for every visible
// flag declared on this node. Returns nil when there are no candidates.
func (c *Command) Completions() CompletionTree {
	out := make(CompletionTree)
	for name, child := range c.children {
		out[name] = child.Completions()
	}
	c.cobra.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		out["--"+f.Name] = nil
	})
	if len(out) == 0 {
		return nil
	}
	return out
}
