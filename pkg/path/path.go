// Package path implements the two validation predicates spec §4.A
// requires before any backend call that takes a caller-supplied name:
// content paths used by session operations, and backend keys/listing
// prefixes used by everything else.
package path

import (
	"strings"

	"github.com/codelynx/kronoa/internal/kerrs"
)

// ValidateContentPath checks a session content path: non-empty, no
// leading slash, no "..", ".", or empty segment, and no segment
// beginning with "." (the dot-prefixed namespace is reserved for
// metadata).
func ValidateContentPath(p string) error {
	if p == "" {
		return kerrs.New(kerrs.KindInvalidPath, "content path must not be empty")
	}
	if strings.HasPrefix(p, "/") {
		return kerrs.New(kerrs.KindInvalidPath, "content path must not have a leading slash")
	}
	segments := strings.Split(p, "/")
	for _, seg := range segments {
		if err := validateSegment(seg, true); err != nil {
			return err
		}
	}
	return nil
}

// ValidateKey checks a backend key or listing prefix: the same
// traversal rules as a content path, but the empty string is
// permitted (whole-bucket listing) and a trailing slash is allowed.
func ValidateKey(key string) error {
	if key == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(key, "/")
	if trimmed == "" {
		// key was just "/"
		return kerrs.New(kerrs.KindInvalidPath, "backend key must not be a bare slash")
	}
	segments := strings.Split(trimmed, "/")
	for _, seg := range segments {
		if err := validateSegment(seg, false); err != nil {
			return err
		}
	}
	return nil
}

func validateSegment(seg string, rejectDotPrefixed bool) error {
	switch seg {
	case "":
		return kerrs.New(kerrs.KindInvalidPath, "path must not contain an empty segment")
	case ".":
		return kerrs.New(kerrs.KindInvalidPath, `path must not contain a "." segment`)
	case "..":
		return kerrs.New(kerrs.KindInvalidPath, `path must not contain a ".." segment`)
	}
	if rejectDotPrefixed && strings.HasPrefix(seg, ".") {
		return kerrs.New(kerrs.KindInvalidPath, "path segment must not begin with \".\"")
	}
	return nil
}

// ValidateLabel checks an editing-session label per spec §4.G step 1:
// non-empty, no "/", no "..", no leading ".".
func ValidateLabel(label string) error {
	if label == "" {
		return kerrs.New(kerrs.KindInvalidPath, "label must not be empty")
	}
	if strings.Contains(label, "/") {
		return kerrs.New(kerrs.KindInvalidPath, "label must not contain \"/\"")
	}
	if strings.Contains(label, "..") {
		return kerrs.New(kerrs.KindInvalidPath, "label must not contain \"..\"")
	}
	if strings.HasPrefix(label, ".") {
		return kerrs.New(kerrs.KindInvalidPath, "label must not begin with \".\"")
	}
	return nil
}
