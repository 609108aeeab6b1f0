package shell

import (
	"errors"
	"io"
	"sort"

	"github.com/chzyer/readline"
	"github.com/concave-dev/bootkit/pkg/command"
)

// readlineReader is the terminal LineReader: line editing, in-memory history
// and tab completion over the command tree.
type readlineReader struct {
	inst *readline.Instance
}

// NewReadlineReader creates a terminal LineReader completing from completions.
func NewReadlineReader(prompt string, completions command.CompletionTree, stdout, stderr io.Writer) (LineReader, error) {
	inst, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		AutoComplete:      readline.NewPrefixCompleter(completerItems(completions)...),
		HistoryLimit:      500,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		Stdout:            stdout,
		Stderr:            stderr,
	})
	if err != nil {
		return nil, err
	}
	return &readlineReader{inst: inst}, nil
}

func (r *readlineReader) Readline() (string, error) {
	line, err := r.inst.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupt
	}
	return line, err
}

func (r *readlineReader) Close() error {
	return r.inst.Close()
}

// completerItems converts a completion tree into prefix completer items,
// sorted by name.
func completerItems(tree command.CompletionTree) []readline.PrefixCompleterInterface {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		items = append(items, readline.PcItem(name, completerItems(tree[name])...))
	}
	return items
}
