package cache

import (
	"fmt"
)

// formatReport builds a single-line stats summary in the style used by other reporter.Reporter
// implementations in this module (see internal/scanengine and internal/ircpresence).
func formatReport(size, hits, misses, evictions, expired int) string {
	return fmt.Sprintf("size=%d hits=%d misses=%d evictions=%d expired=%d", size, hits, misses, evictions, expired)
}
