package looptracker

import (
	"strings"

	"github.com/Stoneeu/vibe-kanban/internal/logging"
)

// CheckCompletionPromise reports whether output contains promise verbatim.
// The match is case-sensitive with no trimming. An empty promise never
// matches.
func CheckCompletionPromise(output, promise string) bool {
	if promise == "" {
		return false
	}
	found := strings.Contains(output, promise)
	if found {
		logging.Default().Info("completion promise detected", "promise", promise)
	}
	return found
}
