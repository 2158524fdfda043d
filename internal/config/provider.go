// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"sync"
)

type (
	// LoadOptions are the explicit inputs of a load. The zero value reads
	// <Dir()>/config.cue and the process environment.
	LoadOptions struct {
		// ConfigFilePath names the file to read; it must exist.
		ConfigFilePath string
		// ConfigDirPath replaces Dir() for the default file and the
		// registry and catalog defaults.
		ConfigDirPath string
		// Getenv supplies SCARAB_* overrides instead of the process
		// environment.
		Getenv func(string) string
	}

	// Provider loads configuration.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// FileProvider loads config.cue files and remembers which file the last
	// successful load read.
	FileProvider struct {
		mu     sync.Mutex
		source string
	}
)

// NewProvider creates a FileProvider.
func NewProvider() *FileProvider {
	return &FileProvider{}
}

// Load implements Provider.
func (p *FileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, path, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.source = path
	p.mu.Unlock()
	return cfg, nil
}

// Source returns the file read by the last successful Load, or "" when
// only defaults and the environment were used.
func (p *FileProvider) Source() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// LoadWithPath loads once without a provider and reports the file read.
func LoadWithPath(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}
