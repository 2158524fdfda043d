// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"scarab": func() {
			os.Exit(Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
		},
	})
}

// TestCLI runs the testscript files in testdata. Each script gets its own
// managed folder, config directory and cache.
func TestCLI(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			work := env.WorkDir
			env.Setenv("HOME", filepath.Join(work, "home"))
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(work, "config"))
			env.Setenv("SCARAB_CACHE_DIR", filepath.Join(work, "cache"))
			env.Setenv("SCARAB_MANAGED_PATH", filepath.Join(work, "managed"))
			env.Setenv("SCARAB_CATALOG_PATH", filepath.Join(work, "catalog.json"))
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"mkzip":     cmdMkzip,
			"mkcatalog": cmdMkcatalog,
		},
		ContinueOnError: true,
	})
}

// mkzip out.zip file... packs work-dir files into a zip, keeping their
// base names.
func cmdMkzip(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! mkzip")
	}
	if len(args) < 2 {
		ts.Fatalf("usage: mkzip out.zip file...")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range args[1:] {
		w, err := zw.Create(filepath.Base(name))
		ts.Check(err)
		_, err = w.Write([]byte(ts.ReadFile(name)))
		ts.Check(err)
	}
	ts.Check(zw.Close())
	ts.Check(os.WriteFile(ts.MkAbs(args[0]), buf.Bytes(), 0o644))
}

// mkcatalog template out expands $WORK in template so catalogs can point
// file:// links at payloads inside the script's work dir.
func cmdMkcatalog(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("unsupported: ! mkcatalog")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: mkcatalog template out")
	}
	work := filepath.ToSlash(ts.Getenv("WORK"))
	data := strings.ReplaceAll(ts.ReadFile(args[0]), "$WORK", work)
	ts.Check(os.WriteFile(ts.MkAbs(args[1]), []byte(data), 0o644))
}
