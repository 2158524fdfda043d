// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// disabledFolder is the folder under Mods that holds disabled mods. A mod
// with this name would alias it.
const disabledFolder = "Disabled"

var (
	// ErrInvalidModName is returned when a mod name cannot be used as a folder name.
	ErrInvalidModName = errors.New("invalid mod name")

	// ErrDuplicateMod is returned when a catalog lists the same name twice.
	ErrDuplicateMod = errors.New("duplicate mod")
)

type (
	// Manifest is one catalog entry, produced by the catalog fetch layer and
	// consumed read-only.
	Manifest struct {
		Name         string   `json:"name"`
		Version      string   `json:"version"`
		Link         string   `json:"link"`
		SHA256       string   `json:"sha256,omitempty"`
		Dependencies []string `json:"dependencies,omitempty"`
		Integrations []string `json:"integrations,omitempty"`
		Description  string   `json:"description,omitempty"`
		Tags         []string `json:"tags,omitempty"`
		Authors      []string `json:"authors,omitempty"`
		Repository   string   `json:"repository,omitempty"`
	}

	// APIManifest describes the host runtime assembly ("API") build.
	APIManifest struct {
		Version string   `json:"version"`
		Link    string   `json:"link"`
		SHA256  string   `json:"sha256,omitempty"`
		Files   []string `json:"files,omitempty"`
	}

	// InvalidModNameError describes why a name was rejected.
	InvalidModNameError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidModNameError) Error() string {
	return fmt.Sprintf("invalid mod name %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidModName for errors.Is.
func (e *InvalidModNameError) Unwrap() error { return ErrInvalidModName }

// ValidateName checks that name is usable as a single directory component
// under the mods folder.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &InvalidModNameError{Name: name, Reason: "must not be empty"}
	case name == "." || name == "..":
		return &InvalidModNameError{Name: name, Reason: "must not be a relative path element"}
	case strings.ContainsAny(name, `/\`):
		return &InvalidModNameError{Name: name, Reason: "must not contain path separators"}
	case strings.ContainsRune(name, 0):
		return &InvalidModNameError{Name: name, Reason: "must not contain NUL"}
	case strings.EqualFold(name, disabledFolder):
		return &InvalidModNameError{Name: name, Reason: "is reserved for the disabled mods folder"}
	}
	return nil
}

// HasHash reports whether the manifest declares an expected digest.
func (m *Manifest) HasHash() bool { return m.SHA256 != "" }

// IntegratesWith reports whether name is listed as an integration.
func (m *Manifest) IntegratesWith(name string) bool {
	for _, d := range m.Integrations {
		if d == name {
			return true
		}
	}
	return false
}
