// SPDX-License-Identifier: MPL-2.0

// Package checksum computes and verifies the SHA-256 digests that mod
// catalogs declare for their payloads.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrHashMismatch indicates a payload whose digest differs from the declared one.
var ErrHashMismatch = errors.New("hash mismatch")

// MismatchError carries the mod name and both digests. It wraps
// ErrHashMismatch so callers can use errors.Is for classification.
type MismatchError struct {
	Name     string
	Actual   string
	Expected string
}

// Error returns both digests so the user can compare them.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s\nExpected: %s\nGot:      %s", e.Name, e.Expected, e.Actual)
}

// Unwrap returns ErrHashMismatch so callers can use errors.Is.
func (e *MismatchError) Unwrap() error { return ErrHashMismatch }

// Sum returns the lowercase hex SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Verify checks data against expected. An empty expected digest always
// passes; a malformed one never matches.
func Verify(name string, data []byte, expected string) error {
	if expected == "" {
		return nil
	}
	if got := Sum(data); !IsValidHex(strings.TrimSpace(expected)) || !Equal(got, expected) {
		return &MismatchError{Name: name, Actual: got, Expected: strings.ToLower(expected)}
	}
	return nil
}

// IsValidHex reports whether s looks like a SHA-256 hex digest.
func IsValidHex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
