// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// MustMkdirAll creates path and all parents.
// The test fails immediately if directory creation fails.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes content to path, creating parent directories.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// Exists reports whether path exists. Errors other than not-exist fail the test.
func Exists(t testing.TB, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	t.Fatalf("failed to stat %s: %v", path, err)
	return false
}

// AssertExists fails the test unless path exists.
func AssertExists(t testing.TB, path string) {
	t.Helper()
	if !Exists(t, path) {
		t.Errorf("expected %s to exist", path)
	}
}

// AssertMissing fails the test if path exists.
func AssertMissing(t testing.TB, path string) {
	t.Helper()
	if Exists(t, path) {
		t.Errorf("expected %s to be absent", path)
	}
}
