package logging

import (
	"github.com/concave-dev/bootkit/internal/utils"
)

// FormatID formats an ID for logging based on the current root log level.
// Returns the full ID when debug logging is enabled, and a truncated 12-character
// ID otherwise to keep operational logs readable.
//
// Usage: logging.Info("Run %s started", logging.FormatID(runID))
func FormatID(id string) string {
	if rootLogger.DebugEnabled() {
		return id
	}
	return utils.TruncateID(id)
}
