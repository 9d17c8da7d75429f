// Package token generates the opaque 22-character credential spec §3
// describes: both the shared secret and the connection identity presented
// in the HELLO frame.
package token

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"
)

// Length is the number of characters in a generated token: 16 random bytes
// base64url-encode (no padding) to exactly 22 characters.
const Length = 22

// Generate returns a fresh, URL-safe, 22-character token.
func Generate() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}

	s := base64.RawURLEncoding.EncodeToString(buf)
	if len(s) != Length {
		// cannot happen for a fixed 16-byte input, but fail loudly rather
		// than hand out a malformed credential.
		return "", errors.Errorf("generated token has unexpected length %d", len(s))
	}
	return s, nil
}
