package utils

import (
	"strings"
)

// PathSeparator is the separator used by every virtual and real path.
const PathSeparator = "/"

// SplitPath splits a slash separated path into its components.
//
// An absolute path yields a leading empty component, so "/a/b" splits into
// ["", "a", "b"]. The root path "/" yields a single empty component, which
// keeps "root" distinct from "no components" (an empty input returns nil).
//
// Example usage:
//
//	parts := SplitPath("/data/logs") // ["", "data", "logs"]
func SplitPath(p string) []string {
	if p == "" {
		return nil
	}
	if p == PathSeparator {
		return []string{""}
	}
	return strings.Split(p, PathSeparator)
}

// JoinPath is the inverse of SplitPath.
func JoinPath(parts []string) string {
	if len(parts) == 1 && parts[0] == "" {
		return PathSeparator
	}
	return strings.Join(parts, PathSeparator)
}

// CleanPath collapses repeated separators and drops a trailing separator,
// except for the root path itself. It does not interpret "." or ".."
// components: paths are translated component by component, never resolved.
func CleanPath(p string) string {
	if p == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(p))
	prevSep := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		sb.WriteByte(c)
	}

	cleaned := sb.String()
	if len(cleaned) > 1 && strings.HasSuffix(cleaned, PathSeparator) {
		cleaned = cleaned[:len(cleaned)-1]
	}
	return cleaned
}

// ValidateComponent checks that a single path component can be appended to a
// path without changing its depth.
func ValidateComponent(name string) error {
	if name == "" {
		return errEmptyComponent
	}
	if strings.Contains(name, PathSeparator) {
		return errSeparatorInComponent
	}
	return nil
}
