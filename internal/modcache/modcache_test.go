// SPDX-License-Identifier: MPL-2.0

package modcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scarabmm/scarab/internal/checksum"
	"github.com/scarabmm/scarab/internal/fetch"
	"github.com/scarabmm/scarab/internal/testutil"
)

func TestPutGet(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	p := &fetch.Payload{Filename: "Core.zip", Data: []byte("payload")}
	c.Put("Core", p)

	testutil.AssertExists(t, filepath.Join(c.Root(), "mods", "Core", "filename.txt"))
	testutil.AssertExists(t, filepath.Join(c.Root(), "mods", "Core", "Core.zip"))

	got, ok := c.Get("Core", checksum.Sum(p.Data))
	if !ok {
		t.Fatal("Get() miss after Put()")
	}
	if got.Filename != "Core.zip" || string(got.Data) != "payload" {
		t.Errorf("Get() = %q %q", got.Filename, got.Data)
	}

	if _, ok := c.Get("Core", ""); !ok {
		t.Error("Get() without hash should hit")
	}
	if _, ok := c.Get("Other", ""); ok {
		t.Error("Get(Other) should miss")
	}
}

func TestGetInvalidatesMismatch(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	c.Put("Core", &fetch.Payload{Filename: "Core.zip", Data: []byte("old")})

	if _, ok := c.Get("Core", checksum.Sum([]byte("new"))); ok {
		t.Fatal("Get() should miss on hash mismatch")
	}
	testutil.AssertMissing(t, filepath.Join(c.Root(), "mods", "Core"))
}

func TestCorruptEntryIsMiss(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	testutil.MustWriteFile(t, filepath.Join(c.Root(), "mods", "Core", "filename.txt"), "../escape")
	if _, ok := c.Get("Core", ""); ok {
		t.Error("corrupt entry should be a miss")
	}

	testutil.MustWriteFile(t, filepath.Join(c.Root(), "mods", "Lib", "filename.txt"), "Lib.zip")
	if _, ok := c.Get("Lib", ""); ok {
		t.Error("entry without payload should be a miss")
	}
}

func TestAPIEntryIsSeparate(t *testing.T) {
	t.Parallel()

	c := New(t.TempDir())
	c.Put(APIKey, &fetch.Payload{Filename: "Assembly-CSharp.dll", Data: []byte("api")})
	for _, name := range []string{"api", "__api__"} {
		c.Put(name, &fetch.Payload{Filename: name + ".zip", Data: []byte("mod " + name)})
	}

	got, ok := c.Get(APIKey, checksum.Sum([]byte("api")))
	if !ok || string(got.Data) != "api" {
		t.Fatalf("Get(APIKey) = %v, %v", got, ok)
	}
	c.Invalidate("api")
	if _, ok := c.Get(APIKey, ""); !ok {
		t.Error("invalidating a mod named api dropped the API entry")
	}
	if got, ok := c.Get("__api__", ""); !ok || string(got.Data) != "mod __api__" {
		t.Errorf("Get(__api__) = %v, %v", got, ok)
	}
}

func TestDisabled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	c := New(root, WithDisabled(true))
	c.Put("Core", &fetch.Payload{Filename: "Core.zip", Data: []byte("x")})
	testutil.AssertMissing(t, filepath.Join(root, "mods", "Core"))
	if _, ok := c.Get("Core", ""); ok || c.Enabled() {
		t.Error("disabled cache must never hit")
	}
}

func TestSizeAndClear(t *testing.T) {
	t.Parallel()

	c := New(filepath.Join(t.TempDir(), "cache"))
	if n, err := c.Size(); err != nil || n != 0 {
		t.Errorf("Size() on missing root = %d, %v", n, err)
	}

	c.Put("Core", &fetch.Payload{Filename: "Core.zip", Data: []byte("12345")})
	n, err := c.Size()
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(5 + len("Core.zip")); n != want {
		t.Errorf("Size() = %d, want %d", n, want)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(c.Root()); !os.IsNotExist(err) {
		t.Errorf("root still present after Clear(): %v", err)
	}
}

func TestDefaultDirWith(t *testing.T) {
	t.Parallel()

	got, err := DefaultDirWith(func(k string) string {
		if k == CacheDirEnv {
			return "/tmp/scarab-cache"
		}
		return ""
	})
	if err != nil || got != "/tmp/scarab-cache" {
		t.Errorf("DefaultDirWith() = %q, %v", got, err)
	}

	got, err = DefaultDirWith(func(string) string { return "" })
	if err == nil && !strings.HasSuffix(got, filepath.Join("scarab", "mods")) {
		t.Errorf("DefaultDirWith() fallback = %q", got)
	}
}
