package ferry

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Resolve joins an untrusted relative path onto a trusted root directory,
// guaranteeing the result cannot lexically escape the root's subtree.
//
// The relative path is rejected with ErrMalformedPath when it contains a
// NUL byte or is absolute in the host path syntax, and with ErrForbiddenPath
// when, after cleaning, it would still climb above the root. The checks are
// purely lexical; no filesystem access occurs, and callers remain
// responsible for permission checks on the returned path.
//
// An empty relative path resolves to the cleaned root itself.
func Resolve(root, relative string) (string, error) {
	if strings.ContainsRune(relative, 0) {
		return "", fmt.Errorf("resolve %q: %w", relative, ErrMalformedPath)
	}

	if filepath.IsAbs(relative) {
		return "", fmt.Errorf("resolve %q: %w", relative, ErrMalformedPath)
	}

	// The traversal check runs against a synthetic "./" root rather than
	// the real one: a configured root may itself contain ".." segments,
	// which would let attacker-controlled segments cancel out against
	// them if the joined path were checked directly.
	candidate := filepath.Clean("." + string(filepath.Separator) + relative)
	if candidate == ".." || strings.HasPrefix(candidate, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resolve %q: %w", relative, ErrForbiddenPath)
	}

	return filepath.Join(root, relative), nil
}

// ResolveLocal resolves a relative path against the current directory. It
// is shorthand for Resolve(".", relative) and returns a cleaned path safe
// to hand to a sandboxed root such as os.Root.
func ResolveLocal(relative string) (string, error) {
	return Resolve(".", relative)
}
