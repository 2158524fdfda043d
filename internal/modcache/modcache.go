// SPDX-License-Identifier: MPL-2.0

// Package modcache keeps the last downloaded payload of each mod and of
// the host runtime assembly:
//
//	<root>/mods/<name>/filename.txt   original filename
//	<root>/mods/<name>/<filename>     raw bytes
//	<root>/api/...                    same files for the API build
//
// The cache is advisory. Read and write failures are logged and treated as
// misses, so a broken cache never fails an install.
package modcache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/scarabmm/scarab/internal/checksum"
	"github.com/scarabmm/scarab/internal/fetch"
	"github.com/scarabmm/scarab/internal/metrics"

	"github.com/charmbracelet/log"
)

const (
	// CacheDirEnv overrides the default cache location.
	CacheDirEnv = "SCARAB_CACHE_DIR"

	// APIKey is the cache key of the API build. No mod can be named ""
	// so it never shares an entry with a mod.
	APIKey = ""

	filenameFile = "filename.txt"
	modsDir      = "mods"
	apiDir       = "api"
)

type (
	// Cache is a name-keyed payload cache. A disabled cache (low-storage
	// mode) misses every lookup and stores nothing.
	Cache struct {
		root     string
		disabled bool
		logger   *log.Logger
		metrics  *metrics.Metrics
	}

	// Option configures a Cache.
	Option func(*Cache)
)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithDisabled turns the cache off entirely.
func WithDisabled(disabled bool) Option {
	return func(c *Cache) { c.disabled = disabled }
}

// WithMetrics records lookup outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// DefaultDir returns the cache location from SCARAB_CACHE_DIR, falling back
// to the user cache directory.
func DefaultDir() (string, error) {
	return DefaultDirWith(os.Getenv)
}

// DefaultDirWith is DefaultDir with an injectable getenv.
func DefaultDirWith(getenv func(string) string) (string, error) {
	if p := getenv(CacheDirEnv); p != "" {
		return p, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get cache directory: %w", err)
	}
	return filepath.Join(base, "scarab", "mods"), nil
}

// New creates a Cache rooted at root.
func New(root string, opts ...Option) *Cache {
	c := &Cache{root: root}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// Enabled reports whether the cache is in use.
func (c *Cache) Enabled() bool { return !c.disabled && c.root != "" }

// Get returns the cached payload of name when it exists and, if
// expectedHash is set, still matches it. A mismatching entry is removed.
func (c *Cache) Get(name, expectedHash string) (*fetch.Payload, bool) {
	if !c.Enabled() {
		return nil, false
	}

	p, err := c.read(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		c.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	case err != nil:
		c.logger.Warn("cache read failed", "mod", name, "err", err)
		c.metrics.CacheLookup(metrics.CacheMiss)
		return nil, false
	}

	if err := checksum.Verify(name, p.Data, expectedHash); err != nil {
		c.logger.Info("cached payload no longer matches catalog hash", "mod", name)
		c.metrics.CacheLookup(metrics.CacheInvalid)
		c.Invalidate(name)
		return nil, false
	}

	c.metrics.CacheLookup(metrics.CacheHit)
	return p, true
}

// Put stores p as the payload of name, replacing any previous entry.
func (c *Cache) Put(name string, p *fetch.Payload) {
	if !c.Enabled() || p == nil {
		return
	}
	if err := c.write(name, p); err != nil {
		c.logger.Warn("cache write failed", "mod", name, "err", err)
		c.Invalidate(name)
	}
}

// Invalidate drops the entry of name.
func (c *Cache) Invalidate(name string) {
	if c.root == "" {
		return
	}
	if err := os.RemoveAll(c.entryDir(name)); err != nil {
		c.logger.Warn("cache invalidate failed", "mod", name, "err", err)
	}
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c.root == "" {
		return nil
	}
	if err := os.RemoveAll(c.root); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Size returns the total size of cached files in bytes.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(c.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, infoErr := d.Info()
			if infoErr != nil {
				return infoErr
			}
			total += info.Size()
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("measure cache: %w", err)
	}
	return total, nil
}

func (c *Cache) entryDir(name string) string {
	if name == APIKey {
		return filepath.Join(c.root, apiDir)
	}
	return filepath.Join(c.root, modsDir, name)
}

func (c *Cache) read(name string) (*fetch.Payload, error) {
	dir := c.entryDir(name)
	raw, err := os.ReadFile(filepath.Join(dir, filenameFile))
	if err != nil {
		return nil, err
	}
	filename := strings.TrimSpace(string(raw))
	if !validFilename(filename) {
		return nil, fmt.Errorf("corrupt cache entry: bad filename %q", filename)
	}
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return nil, err
	}
	return &fetch.Payload{Filename: filename, Data: data}, nil
}

func (c *Cache) write(name string, p *fetch.Payload) error {
	if !validFilename(p.Filename) {
		return fmt.Errorf("refusing to cache filename %q", p.Filename)
	}
	dir := c.entryDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, p.Filename), p.Data, 0o644); err != nil {
		return err
	}
	// Written last so a partial entry reads as a miss.
	return os.WriteFile(filepath.Join(dir, filenameFile), []byte(p.Filename), 0o644)
}

func validFilename(name string) bool {
	return name != "" && name != filenameFile && name == filepath.Base(name) && name != "." && name != ".."
}
