// Package configfile locates and loads configuration files for bootkit applications.
//
// A configuration file path is resolved from three tiers, highest precedence first:
// a path given on the command line, a path given explicitly in the application
// configuration, and a search over directories and candidate filenames.
//
// SEARCH ORDER:
// Directories form the outer loop and filenames the inner loop, so for
// directories D1, D2 and filenames F1, F2 the candidates are D1/F1, D1/F2,
// D2/F1, D2/F2. The first existing candidate wins.
package configfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("configuration file not found")

// Source records how a configuration file path was obtained.
type Source int

const (
	SourceNone Source = iota
	SourceCLIArgument
	SourceExplicit
	SourceSearched
)

func (s Source) String() string {
	switch s {
	case SourceCLIArgument:
		return "CLI_ARGUMENT"
	case SourceExplicit:
		return "EXPLICIT"
	case SourceSearched:
		return "SEARCHED"
	default:
		return "NONE"
	}
}

// NotFoundError describes a failed resolution and what was tried.
type NotFoundError struct {
	// Path is set when a CLI or explicit path did not exist
	Path      string
	Dirs      []string
	Filenames []string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	}
	return fmt.Sprintf("no configuration file found in [%s] matching [%s]",
		strings.Join(e.Dirs, ", "), strings.Join(e.Filenames, ", "))
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Resolve returns the configuration file path and how it was obtained.
// cliPath wins over explicitPath, which wins over searching dirs for filenames.
// A non-empty cliPath or explicitPath that does not exist is an error; lower
// tiers are not consulted in that case.
func Resolve(cliPath, explicitPath string, dirs, filenames []string) (string, Source, error) {
	if cliPath != "" {
		if !exists(cliPath) {
			return "", SourceNone, &NotFoundError{Path: cliPath}
		}
		return cliPath, SourceCLIArgument, nil
	}

	if explicitPath != "" {
		if !exists(explicitPath) {
			return "", SourceNone, &NotFoundError{Path: explicitPath}
		}
		return explicitPath, SourceExplicit, nil
	}

	path, err := FindFile(dirs, filenames)
	if err != nil {
		return "", SourceNone, err
	}
	return path, SourceSearched, nil
}

// FindFile returns the first existing dir/filename combination, iterating
// directories in the outer loop.
func FindFile(dirs, filenames []string) (string, error) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, name := range filenames {
			candidate := filepath.Join(dir, name)
			if exists(candidate) {
				return candidate, nil
			}
		}
	}
	return "", &NotFoundError{Dirs: dirs, Filenames: filenames}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DefaultSearchPaths returns the current working directory followed by the
// home directory of the user. Directories that cannot be determined are omitted.
func DefaultSearchPaths() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}
