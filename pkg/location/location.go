// Package location defines the normalized address value used as the
// page and viewport cache key throughout wayfare.
//
// A Location is path + query + fragment with the path canonicalized:
// leading slash ensured, duplicate slashes collapsed, trailing slash
// stripped (except root). Two locations refer to the same cache entry
// iff their Key() strings are equal.
package location

import (
	"errors"
	"strings"
)

// Parse errors.
var (
	// ErrBackslash is returned for paths containing a backslash.
	ErrBackslash = errors.New("location: path contains backslash")

	// ErrNullByte is returned for paths containing a NUL byte.
	ErrNullByte = errors.New("location: path contains null byte")
)

// Location is a normalized in-app address.
// The zero value is not valid; use Parse or MustParse.
type Location struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Fragment is the fragment without the leading "#".
	Fragment string
}

// Parse splits raw into path, query and fragment and canonicalizes the
// path. Raw addresses never fail for shape; only paths containing a
// backslash or NUL byte are rejected.
func Parse(raw string) (Location, error) {
	rest, fragment, _ := strings.Cut(raw, "#")
	path, query, _ := strings.Cut(rest, "?")

	// SECURITY: reject backslash and null before canonicalizing
	if strings.Contains(path, "\\") {
		return Location{}, ErrBackslash
	}
	if strings.Contains(path, "\x00") {
		return Location{}, ErrNullByte
	}

	return Location{
		Path:     canonicalPath(path),
		Query:    query,
		Fragment: fragment,
	}, nil
}

// MustParse is Parse that panics on invalid input.
// Intended for literals in tests and wiring code.
func MustParse(raw string) Location {
	loc, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// canonicalPath normalizes a URL path.
func canonicalPath(path string) string {
	if path == "" {
		return "/"
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	return path
}

// Key returns the canonical string form used as the cache key.
func (l Location) Key() string {
	var b strings.Builder
	b.WriteString(l.Path)
	if l.Query != "" {
		b.WriteByte('?')
		b.WriteString(l.Query)
	}
	if l.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(l.Fragment)
	}
	return b.String()
}

// String returns the same form as Key.
func (l Location) String() string {
	return l.Key()
}

// Base returns the location with query and fragment stripped and the
// path reset to root. It anchors relative redirects.
func (l Location) Base() Location {
	return Location{Path: "/"}
}

// Resolve substitutes path (optionally carrying a query and fragment)
// against this location treated as a base.
func (l Location) Resolve(path string) (Location, error) {
	return Parse(path)
}

// Equal reports whether two locations address the same cache entry.
func (l Location) Equal(other Location) bool {
	return l.Key() == other.Key()
}
