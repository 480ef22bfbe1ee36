package values

import "github.com/google/uuid"

// NewID mints a correlation id for a new State or Thread. It plays no
// semantic role in the language; it exists purely so debug traces and
// host logs can tell concurrent states and coroutines apart.
func NewID() string {
	return uuid.NewString()
}
