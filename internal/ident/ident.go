// Package ident implements the identifier grammar shared by the registry,
// the graph and the loader.
//
// An identifier is a sequence of segments joined by a separator (default "."),
// optionally ending in the wildcard segment "*":
//
//	app.util.Format
//	app.util.*
//
// The empty identifier names the root of the namespace graph.
package ident

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultSeparator joins identifier segments unless configured otherwise.
	DefaultSeparator = "."

	// Wildcard is the trailing segment that selects every child of a container.
	Wildcard = "*"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid identifier")

// Split returns the segments of id. The root identifier has no segments.
func Split(id, sep string) []string {
	if id == "" {
		return nil
	}
	return strings.Split(id, separator(sep))
}

// Join is the inverse of Split.
func Join(segments []string, sep string) string {
	return strings.Join(segments, separator(sep))
}

// Target splits id into its container identifier and its last segment.
//
//	Target("a.b.c", ".") // "a.b", "c"
//	Target("c", ".")     // "", "c"
func Target(id, sep string) (container, target string) {
	sep = separator(sep)
	i := strings.LastIndex(id, sep)
	if i < 0 {
		return "", id
	}
	return id[:i], id[i+len(sep):]
}

// IsWildcard reports whether id ends in the wildcard segment.
func IsWildcard(id, sep string) bool {
	_, target := Target(id, sep)
	return target == Wildcard
}

// Resolve expands rel against base when rel starts with the separator.
// Any other rel is returned as-is.
//
//	Resolve("a.b", ".c", ".") // "a.b.c"
func Resolve(base, rel, sep string) string {
	if strings.HasPrefix(rel, separator(sep)) {
		return base + rel
	}
	return rel
}

// ToPath replaces every separator with "/".
func ToPath(id, sep string) string {
	return strings.ReplaceAll(id, separator(sep), "/")
}

// Validate checks id against the grammar. Segments must be non-empty and the
// wildcard may only appear as the final segment. The root identifier is valid.
func Validate(id, sep string) error {
	if id == "" {
		return nil
	}
	segments := Split(id, sep)
	for i, seg := range segments {
		if seg == "" {
			return fmt.Errorf("%w: empty segment at position %d in %q", ErrInvalid, i, id)
		}
		if strings.TrimSpace(seg) != seg {
			return fmt.Errorf("%w: segment %q has surrounding whitespace", ErrInvalid, seg)
		}
		if seg == Wildcard && i != len(segments)-1 {
			return fmt.Errorf("%w: wildcard must be the last segment in %q", ErrInvalid, id)
		}
		if seg != Wildcard && strings.Contains(seg, Wildcard) {
			return fmt.Errorf("%w: segment %q mixes wildcard and name", ErrInvalid, seg)
		}
	}
	return nil
}

func separator(sep string) string {
	if sep == "" {
		return DefaultSeparator
	}
	return sep
}
