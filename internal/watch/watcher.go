// SPDX-License-Identifier: MPL-2.0

// Package watch notices mod folders being added, removed or moved by hand
// under Mods/ and Mods/Disabled/ and reports the affected mod names after a
// debounce period, so the registry can be reconciled while scarab runs.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/scarabmm/scarab/internal/layout"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// defaultIgnores excludes editor and OS noise. Patterns match paths
// relative to the Mods folder.
var defaultIgnores = []string{
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
	"**/Thumbs.db",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Layout locates the Mods and Disabled folders.
		Layout layout.Layout

		// Ignore are extra doublestar patterns, relative to the Mods folder,
		// that never trigger callbacks.
		Ignore []string

		// Debounce is the quiet period after the last event. Zero or negative
		// values fall back to 500ms.
		Debounce time.Duration

		// OnChange receives the sorted names of the mods whose folders
		// changed. A nil callback is a no-op.
		OnChange func(ctx context.Context, mods []string) error

		Logger *log.Logger
	}

	// Watcher watches the two mod folders. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		modsDir  string
		started  atomic.Bool
	}
)

// New validates cfg and starts watching Mods/ and Mods/Disabled/. Both
// folders are created if missing.
func New(cfg Config) (*Watcher, error) {
	if cfg.Layout.Managed == "" {
		return nil, errors.New("watch: managed path is required")
	}
	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q", pat)
		}
	}
	if err := cfg.Layout.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("watch: create mod folders: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		modsDir:  cfg.Layout.ModsDir(),
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}

	for _, dir := range []string{cfg.Layout.ModsDir(), cfg.Layout.DisabledDir()} {
		if err := fsw.Add(dir); err != nil {
			fsw.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("watch: add directory %q: %w", dir, err)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, reporting changed mods through
// OnChange. It returns nil on cancellation and an error when the watcher
// breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	b := newBatch(w.debounce, func(mods []string) {
		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("mod folders changed", "mods", mods)
		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, mods); err != nil {
			w.logger.Error("reconcile after change failed", "err", err)
		}
	})
	defer func() {
		b.stop()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if name, ok := w.modName(evt.Name); ok {
				b.add(name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// modName maps an event path to the mod folder it belongs to. Events on
// the Disabled folder itself and ignored paths are dropped.
func (w *Watcher) modName(path string) (string, bool) {
	rel, err := filepath.Rel(w.modsDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.isIgnored(rel) {
		return "", false
	}

	parts := strings.Split(rel, "/")
	if parts[0] == layout.DisabledDirName {
		if len(parts) < 2 {
			return "", false
		}
		return parts[1], true
	}
	return parts[0], true
}

func (w *Watcher) isIgnored(rel string) bool {
	for _, pat := range w.ignores {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}
