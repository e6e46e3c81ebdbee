/*
Package randx provides identifier generation and validation.

Connection ids are monotonic ULIDs so log lines sort by connection age; object keys
for uploaded covers are UUID v4 based. Client-supplied room and user ids are checked
with IsValidID before they are used as registry keys.
*/
package randx

import (
	"crypto/rand"
	"path"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	// MaxIDLength is the maximum byte length accepted for a client-supplied id.
	MaxIDLength = 128

	// CoverKeyPrefix is the object key prefix under which room covers are stored.
	CoverKeyPrefix = "covers/"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// ConnID returns a new ULID string identifying a transport connection.
func ConnID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// CoverKey returns a fresh object key for a cover image with the given extension (".png").
func CoverKey(ext string) string {
	return path.Join(CoverKeyPrefix, uuid.New().String()+ext)
}

// IsValidID reports whether id is usable as a room or user id: non-empty valid
// UTF-8, at most MaxIDLength bytes, and free of control characters.
func IsValidID(id string) bool {
	if id == "" || len(id) > MaxIDLength || !utf8.ValidString(id) {
		return false
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return false
		}
	}

	return true
}
