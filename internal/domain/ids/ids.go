// Package ids generates and validates the ULIDs used as RunLog
// identifiers. A time-ordered ULID sorts naturally by run order in the
// logs table, same as a monotonic counter, without a shared sequence.
package ids

import (
	"crypto/rand"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidRegex = regexp.MustCompile(`(?i)^[0-9A-HJKMNP-TV-Z]{26}$`)

	ErrInvalidULID = errors.New("invalid ULID")

	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID generates a new ULID string, using a monotonic entropy source
// so IDs minted within the same millisecond still sort in mint order.
func NewULID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// isULID returns true when value is a valid ULID (case-insensitive
// Crockford Base32).
func isULID(value string) bool {
	return ulidRegex.MatchString(strings.TrimSpace(value))
}

// validateULID validates a ULID string.
func validateULID(value string) error {
	if !isULID(value) {
		return ErrInvalidULID
	}
	return nil
}
