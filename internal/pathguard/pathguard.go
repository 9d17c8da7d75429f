// Package pathguard normalizes client-supplied paths and rejoins them under
// a server's root directory, per spec §4.B. Every path the server touches
// passes through here first.
package pathguard

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// forbidden holds the characters spec §3 "Valid file name" excludes.
const forbidden = `<>:"/\|?*`

// ErrEscapesRoot is returned by Normalize (and so by Resolve) when a path
// still contains a ".." component after cleaning (defensive: path.Clean
// on a rooted path already strips these, so this should not occur in
// practice).
var ErrEscapesRoot = errors.New("path escapes root directory")

// Normalize strips any leading root marker from a client-supplied path and
// rejects any ".." component that would escape it. The result is a
// slash-separated path relative to the root, with no leading slash.
func Normalize(clientPath string) (string, error) {
	p := path.Clean("/" + clientPath)
	p = strings.TrimPrefix(p, "/")

	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", ErrEscapesRoot
		}
	}

	return p, nil
}

// Rejoin resolves a normalized relative path onto root, producing an
// absolute filesystem path. Callers must pass the output of Normalize.
func Rejoin(root, normalized string) string {
	if normalized == "." || normalized == "" {
		return root
	}
	return path.Join(root, normalized)
}

// Resolve is the common case: normalize then rejoin in one step.
func Resolve(root, clientPath string) (string, error) {
	normalized, err := Normalize(clientPath)
	if err != nil {
		return "", err
	}
	return Rejoin(root, normalized), nil
}

// IsAbsoluteClientPath reports whether p looks like an absolute path from
// the client's point of view (leading "/"), the form every server-facing
// directory argument must take per spec §4.E.
func IsAbsoluteClientPath(p string) bool {
	return strings.HasPrefix(p, "/")
}

// ValidName reports whether name is a valid file/directory name: non-empty
// and free of any character in the forbidden set. "." and ".." are valid
// names in isolation (they are not traversal tokens here, since the caller
// always joins a single name under an already-resolved directory).
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, forbidden)
}
