// Package security validates file names and paths that arrive over HTTP.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveWithinDirectory joins name onto dir and returns the resulting path
// if, after resolving symlinks, it still lies inside dir. Absolute names and
// names that climb out of dir are rejected.
func ResolveWithinDirectory(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory: %w", err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	full := filepath.Join(root, filepath.Clean(name))
	canonical := full
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		canonical = resolved
	}

	rel, err := filepath.Rel(root, canonical)
	if err != nil {
		return "", fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s escapes %s", name, dir)
	}
	return canonical, nil
}

// SanitizeFilename makes a safe file name from an arbitrary string such as a
// capture source. Runs of characters other than ASCII letters, digits, dot,
// underscore and dash become a single underscore. The result is at most 128
// bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
