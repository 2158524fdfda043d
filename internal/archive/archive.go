// SPDX-License-Identifier: MPL-2.0

// Package archive places zip payloads on disk. Every entry is checked
// against the destination before anything is written, and file
// modification times from the archive are kept.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrTraversal is wrapped by TraversalError.
var ErrTraversal = errors.New("archive entry escapes destination")

// TraversalError names the offending entry.
type TraversalError struct {
	Entry string
	Dest  string
}

// Error implements the error interface.
func (e *TraversalError) Error() string {
	return fmt.Sprintf("invalid path in archive: %q escapes %s", e.Entry, e.Dest)
}

// Unwrap returns ErrTraversal for errors.Is.
func (e *TraversalError) Unwrap() error { return ErrTraversal }

// IsZip reports whether data starts with a zip local-file or
// end-of-central-directory signature.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04")) || bytes.HasPrefix(data, []byte("PK\x05\x06"))
}

type entry struct {
	file *zip.File
	dest string
}

// Extract unpacks the zip in data into dest, creating directories as needed.
func Extract(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	entries := make([]entry, 0, len(zr.File))
	for _, f := range zr.File {
		target, err := resolve(absDest, f.Name)
		if err != nil {
			return err
		}
		entries = append(entries, entry{file: f, dest: target})
	}

	if err := os.MkdirAll(absDest, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	var dirs []entry
	for _, e := range entries {
		if e.file.FileInfo().IsDir() {
			if err := os.MkdirAll(e.dest, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			dirs = append(dirs, e)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(e.dest), 0o755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
		if err := extractFile(e.file, e.dest); err != nil {
			return fmt.Errorf("extract %s: %w", e.file.Name, err)
		}
		touch(e.dest, e.file.Modified)
	}

	// Directory times last: writing children bumps them.
	for i := len(dirs) - 1; i >= 0; i-- {
		touch(dirs[i].dest, dirs[i].file.Modified)
	}
	return nil
}

// resolve joins name onto dest and rejects anything that leaves it.
func resolve(dest, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", &TraversalError{Entry: name, Dest: dest}
	}
	target := filepath.Join(dest, clean)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &TraversalError{Entry: name, Dest: dest}
	}
	return target, nil
}

func extractFile(file *zip.File, destPath string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: payload size is bounded by the downloader
	_, err = io.Copy(out, rc)
	return err
}

// touch applies the archived timestamp. Entries without one keep the
// extraction time.
func touch(path string, mod time.Time) {
	if mod.IsZero() {
		return
	}
	_ = os.Chtimes(path, mod, mod) // timestamps are cosmetic
}

// WriteFile places a single-file payload as dir/name.
func WriteFile(dir, name string, data []byte) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return &TraversalError{Entry: name, Dest: dir}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
