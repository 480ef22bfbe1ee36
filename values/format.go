package values

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// SizeOverflowMessage renders the structural "string too large" error
// raised by the concatenation engine when a result would exceed the
// platform limit, favouring a human-readable quantity the way the
// rest of this codebase's error messages do.
func SizeOverflowMessage(attemptedBytes int64) string {
	if attemptedBytes < 0 {
		attemptedBytes = 0
	}
	return fmt.Sprintf("resulting string too large (%s)", humanize.Bytes(uint64(attemptedBytes)))
}
