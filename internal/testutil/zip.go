// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
	"time"
)

// ZipEntry is one file in a zip built by BuildZipEntries. Names ending in
// "/" become directory entries.
type ZipEntry struct {
	Name     string
	Body     string
	Modified time.Time
}

// BuildZip returns a zip holding files (name -> body).
func BuildZip(t testing.TB, files map[string]string) []byte {
	t.Helper()
	entries := make([]ZipEntry, 0, len(files))
	for name, body := range files {
		entries = append(entries, ZipEntry{Name: name, Body: body})
	}
	return BuildZipEntries(t, entries...)
}

// BuildZipEntries returns a zip holding entries in order.
func BuildZipEntries(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if !e.Modified.IsZero() {
			hdr.Modified = e.Modified
		}
		if strings.HasSuffix(e.Name, "/") {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip header %s: %v", e.Name, err)
		}
		if strings.HasSuffix(e.Name, "/") {
			continue
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
