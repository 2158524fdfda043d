// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/scarabmm/scarab/internal/testutil"
)

func TestModName(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	w, err := New(Config{Layout: tree.Layout, Ignore: []string{"**/*.tmp"}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { w.fsw.Close() })

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{filepath.Join(tree.ModsDir(), "Core"), "Core", true},
		{filepath.Join(tree.ModsDir(), "Core", "Core.dll"), "Core", true},
		{filepath.Join(tree.DisabledDir(), "Lib"), "Lib", true},
		{tree.DisabledDir(), "", false},
		{tree.ModsDir(), "", false},
		{filepath.Join(tree.ModsDir(), "x.tmp"), "", false},
		{filepath.Join(tree.ModsDir(), ".DS_Store"), "", false},
		{tree.APIPath(), "", false},
	}
	for _, tt := range tests {
		got, ok := w.modName(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("modName(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	if _, err := New(Config{Layout: tree.Layout, Ignore: []string{"["}}); err == nil {
		t.Error("expected invalid pattern error")
	}
	if _, err := New(Config{}); err == nil {
		t.Error("expected missing managed path error")
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	tree := testutil.NewModTree(t)
	got := make(chan []string, 4)
	w, err := New(Config{
		Layout:   tree.Layout,
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, mods []string) error {
			got <- mods
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	tree.AddMod("Core", true)
	tree.AddMod("Lib", false)
	if err := os.Rename(tree.ModDir("Core", true), tree.ModDir("Core", false)); err != nil {
		t.Fatal(err)
	}

	var seen []string
	deadline := time.After(5 * time.Second)
	for !slices.Contains(seen, "Core") || !slices.Contains(seen, "Lib") {
		select {
		case mods := <-got:
			if !slices.IsSorted(mods) {
				t.Errorf("callback names not sorted: %v", mods)
			}
			seen = append(seen, mods...)
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() error: %v", err)
	}
	if err := w.Run(t.Context()); err == nil {
		t.Error("second Run() should fail")
	}
}

func TestDefaultIgnoresIsCopy(t *testing.T) {
	t.Parallel()

	d := DefaultIgnores()
	d[0] = "changed"
	if DefaultIgnores()[0] == "changed" {
		t.Error("DefaultIgnores() must return a copy")
	}
}
