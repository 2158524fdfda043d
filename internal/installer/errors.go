// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO classifies filesystem failures during move, extract or delete.
	ErrIO = errors.New("i/o failure")

	// ErrOverwriteDeclined is returned when the user refuses to replace a
	// folder that already occupies a toggle destination.
	ErrOverwriteDeclined = errors.New("overwrite declined")

	// ErrPinConflict is returned when a cascade would touch pinned mods.
	ErrPinConflict = errors.New("pinned mods in cascade")

	// ErrPersist is returned when disk was changed but the registry could
	// not be written. In-memory state then matches disk, not the registry file.
	ErrPersist = errors.New("registry not persisted")

	// ErrNoAPI is returned by API operations when the catalog declares none.
	ErrNoAPI = errors.New("catalog declares no API build")
)

type (
	// IOError carries the failed operation and path so the user can close
	// whatever holds the file or fix its permissions.
	IOError struct {
		Op   string
		Path string
		Err  error
	}

	// PinConflictError lists the pinned mods an operation refused to touch.
	PinConflictError struct {
		Op     string
		Target string
		Pinned []string
	}

	// PersistError wraps a registry write failure after a successful
	// filesystem change.
	PersistError struct {
		Mod string
		Err error
	}
)

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying error (for example a *fs.PathError).
func (e *IOError) Unwrap() error { return e.Err }

// Is makes every IOError match ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *PinConflictError) Error() string {
	return fmt.Sprintf("cannot %s dependencies of %s: pinned mods would be affected: %s",
		e.Op, e.Target, strings.Join(e.Pinned, ", "))
}

// Unwrap returns ErrPinConflict for errors.Is.
func (e *PinConflictError) Unwrap() error { return ErrPinConflict }

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Mod, ErrPersist, e.Err)
}

// Unwrap exposes the registry error.
func (e *PersistError) Unwrap() error { return e.Err }

// Is makes every PersistError match ErrPersist.
func (e *PersistError) Is(target error) bool { return target == ErrPersist }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var existing *IOError
	if errors.As(err, &existing) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
