// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scarabmm/scarab/internal/testutil"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2021, 3, 4, 5, 6, 8, 0, time.UTC)
	data := testutil.BuildZipEntries(t,
		testutil.ZipEntry{Name: "lang/"},
		testutil.ZipEntry{Name: "Core.dll", Body: "core", Modified: stamp},
		testutil.ZipEntry{Name: "lang/en.json", Body: "{}"},
	)
	if !IsZip(data) {
		t.Fatal("IsZip() = false for a zip")
	}

	dest := filepath.Join(t.TempDir(), "Core")
	if err := Extract(data, dest); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if got := testutil.MustReadFile(t, filepath.Join(dest, "Core.dll")); got != "core" {
		t.Errorf("Core.dll = %q", got)
	}
	testutil.AssertExists(t, filepath.Join(dest, "lang", "en.json"))

	info, err := os.Stat(filepath.Join(dest, "Core.dll"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(stamp) {
		t.Errorf("ModTime = %v, want %v", info.ModTime().UTC(), stamp)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"../evil.dll", "a/../../evil.dll", `..\evil.dll`} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			dest := filepath.Join(root, "Mod")
			data := testutil.BuildZipEntries(t,
				testutil.ZipEntry{Name: "ok.dll", Body: "ok"},
				testutil.ZipEntry{Name: name, Body: "evil"},
			)

			err := Extract(data, dest)
			if !errors.Is(err, ErrTraversal) {
				t.Fatalf("Extract() error = %v, want ErrTraversal", err)
			}
			testutil.AssertMissing(t, filepath.Join(root, "evil.dll"))
			testutil.AssertMissing(t, filepath.Join(dest, "ok.dll"))
		})
	}
}

func TestIsZip(t *testing.T) {
	t.Parallel()

	if IsZip([]byte("MZ\x90\x00")) {
		t.Error("IsZip() = true for a PE header")
	}
	if IsZip(nil) {
		t.Error("IsZip(nil) = true")
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "Tool")
	if err := WriteFile(dir, "Tool.dll", []byte("dll")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if got := testutil.MustReadFile(t, filepath.Join(dir, "Tool.dll")); got != "dll" {
		t.Errorf("Tool.dll = %q", got)
	}
	if err := WriteFile(dir, "../x.dll", nil); !errors.Is(err, ErrTraversal) {
		t.Errorf("WriteFile(../x.dll) error = %v", err)
	}
}
