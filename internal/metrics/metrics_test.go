// SPDX-License-Identifier: MPL-2.0

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveOperation("install", nil)
	m.ObserveOperation("install", nil)
	m.ObserveOperation("install", errors.New("boom"))
	m.CacheLookup(CacheHit)
	m.AddDownloadBytes(512)
	m.AddDownloadBytes(-1)
	m.HashMismatch()

	if got := testutil.ToFloat64(m.operations.WithLabelValues("install", "ok")); got != 2 {
		t.Errorf("install ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("install", "error")); got != 1 {
		t.Errorf("install error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues(CacheHit)); got != 1 {
		t.Errorf("cache hit = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.downloadBytes); got != 512 {
		t.Errorf("download bytes = %v, want 512", got)
	}
	if got := testutil.ToFloat64(m.hashMismatches); got != 1 {
		t.Errorf("hash mismatches = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveOperation("toggle", nil)
	m.CacheLookup(CacheMiss)
	m.AddDownloadBytes(1)
	m.HashMismatch()
	if m.Registry() != nil {
		t.Error("nil Metrics should have no registry")
	}
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("WriteTextfile() on nil = %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveOperation("uninstall", nil)
	path := filepath.Join(t.TempDir(), "scarab.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `scarab_operations_total{op="uninstall",result="ok"} 1`) {
		t.Errorf("textfile missing counter:\n%s", data)
	}
}
