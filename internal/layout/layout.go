// SPDX-License-Identifier: MPL-2.0

// Package layout names the on-disk locations the installer works with:
//
//	<Managed>/Mods/<name>/            enabled mods
//	<Managed>/Mods/Disabled/<name>/   disabled mods
//	<Managed>/Assembly-CSharp.dll     live host runtime assembly
//	<Managed>/Assembly-CSharp.dll.v   vanilla backup (modded build is live)
//	<Managed>/Assembly-CSharp.dll.m   modded backup (vanilla build is live)
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	ModsDirName     = "Mods"
	DisabledDirName = "Disabled"

	APIFile       = "Assembly-CSharp.dll"
	VanillaBackup = APIFile + ".v"
	ModdedBackup  = APIFile + ".m"
)

type (
	// Location is where a mod folder was found.
	Location int

	// APIVariant is the detected state of the host runtime assembly.
	APIVariant int

	// Layout resolves paths under one managed folder.
	Layout struct {
		Managed string
	}
)

const (
	Absent Location = iota
	InMods
	InDisabled
	InBoth
)

const (
	// APINotInstalled means no backup exists; the live assembly, if any, is vanilla.
	APINotInstalled APIVariant = iota
	// APIEnabled means the modded build is live and vanilla is backed up.
	APIEnabled
	// APIDisabled means vanilla is live and the modded build is backed up.
	APIDisabled
)

func (l Location) String() string {
	switch l {
	case Absent:
		return "absent"
	case InMods:
		return "enabled"
	case InDisabled:
		return "disabled"
	case InBoth:
		return "enabled and disabled"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

func (v APIVariant) String() string {
	switch v {
	case APINotInstalled:
		return "not installed"
	case APIEnabled:
		return "enabled"
	case APIDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("APIVariant(%d)", int(v))
	}
}

// New returns a Layout rooted at managed.
func New(managed string) Layout { return Layout{Managed: managed} }

// ModsDir is the enabled-mods folder.
func (l Layout) ModsDir() string { return filepath.Join(l.Managed, ModsDirName) }

// DisabledDir is the disabled-mods folder.
func (l Layout) DisabledDir() string { return filepath.Join(l.ModsDir(), DisabledDirName) }

// BaseDir returns the folder holding mods with the given enablement.
func (l Layout) BaseDir(enabled bool) string {
	if enabled {
		return l.ModsDir()
	}
	return l.DisabledDir()
}

// ModDir is the folder of name for the given enablement.
func (l Layout) ModDir(name string, enabled bool) string {
	return filepath.Join(l.BaseDir(enabled), name)
}

// EnsureDirs creates the mods and disabled folders.
func (l Layout) EnsureDirs() error {
	if err := os.MkdirAll(l.DisabledDir(), 0o755); err != nil {
		return fmt.Errorf("create mods folders: %w", err)
	}
	return nil
}

// Locate reports where the folder of name currently lives.
func (l Layout) Locate(name string) (Location, error) {
	enabled, err := isDir(l.ModDir(name, true))
	if err != nil {
		return Absent, err
	}
	disabled, err := isDir(l.ModDir(name, false))
	if err != nil {
		return Absent, err
	}
	switch {
	case enabled && disabled:
		return InBoth, nil
	case enabled:
		return InMods, nil
	case disabled:
		return InDisabled, nil
	default:
		return Absent, nil
	}
}

// ListMods returns the sorted folder names under the enabled and disabled
// folders. A missing folder yields an empty list.
func (l Layout) ListMods() (enabled, disabled []string, err error) {
	enabled, err = listDirs(l.ModsDir(), DisabledDirName)
	if err != nil {
		return nil, nil, err
	}
	disabled, err = listDirs(l.DisabledDir(), "")
	if err != nil {
		return nil, nil, err
	}
	return enabled, disabled, nil
}

// APIPath is the live assembly.
func (l Layout) APIPath() string { return filepath.Join(l.Managed, APIFile) }

// VanillaPath is the vanilla backup.
func (l Layout) VanillaPath() string { return filepath.Join(l.Managed, VanillaBackup) }

// ModdedPath is the modded backup.
func (l Layout) ModdedPath() string { return filepath.Join(l.Managed, ModdedBackup) }

// DetectAPI inspects the three assembly files.
func (l Layout) DetectAPI() (APIVariant, error) {
	vanilla, err := isFile(l.VanillaPath())
	if err != nil {
		return APINotInstalled, err
	}
	modded, err := isFile(l.ModdedPath())
	if err != nil {
		return APINotInstalled, err
	}
	switch {
	case vanilla:
		return APIEnabled, nil
	case modded:
		return APIDisabled, nil
	default:
		return APINotInstalled, nil
	}
}

func listDirs(dir, skip string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || (skip != "" && strings.EqualFold(e.Name(), skip)) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
