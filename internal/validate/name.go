package validate

import (
	"fmt"
	"regexp"
	"strings"
)

var commandNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// CommandNameFormat validates a single command token of a command path.
// Tokens contain only [a-zA-Z0-9_-] and cannot start with a hyphen, which
// would make them indistinguishable from flags on the command line.
func CommandNameFormat(name string) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	if !commandNameRegex.MatchString(name) {
		return fmt.Errorf("command name '%s' must contain only letters, numbers, hyphens (-), and underscores (_)", name)
	}

	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("command name '%s' cannot start with hyphen (-)", name)
	}

	return nil
}
