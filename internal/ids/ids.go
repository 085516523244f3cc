package ids

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"

	"github.com/segmentio/ksuid"
)

const TempPrefix = "temp-"

var lowerBase32 = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// New returns a sortable unique id.
func New() string {
	return ksuid.New().String()
}

// TempUsername returns a candidate name for an anonymous account. Callers
// must still claim it atomically; collisions are possible in principle.
func TempUsername() (string, error) {
	buf := make([]byte, 7)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate temp username: %w", err)
	}
	return TempPrefix + lowerBase32.EncodeToString(buf)[:10], nil
}

// ValidationCode returns an unguessable single-use registration code.
func ValidationCode() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate validation code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
