// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scarabmm/scarab/pkg/cueutil"
)

//go:embed catalog_schema.cue
var catalogSchema []byte

type document struct {
	API  *APIManifest `json:"api,omitempty"`
	Mods []Manifest   `json:"mods"`
}

// Parse validates a catalog document (JSON or CUE) against the embedded
// schema and builds a Catalog from it.
func Parse(data []byte, filename string) (*Catalog, error) {
	doc, err := cueutil.Decode[document](catalogSchema, data, "#Catalog", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	c, err := New(doc.Mods, doc.API)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Schema returns the embedded catalog schema source.
func Schema() []byte {
	out := make([]byte, len(catalogSchema))
	copy(out, catalogSchema)
	return out
}
