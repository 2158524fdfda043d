// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name:  string & !=""
	count: int & >=0
	tags?: [...string]
}
`

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("json input", func(t *testing.T) {
		t.Parallel()

		doc, err := Decode[testDoc]([]byte(testSchema), []byte(`{"name": "a", "count": 2, "tags": ["x"]}`), "#Doc")
		if err != nil {
			t.Fatalf("Decode() error: %v", err)
		}
		if doc.Name != "a" || doc.Count != 2 || len(doc.Tags) != 1 {
			t.Errorf("Decode() = %+v", doc)
		}
	})

	t.Run("cue input", func(t *testing.T) {
		t.Parallel()

		doc, err := Decode[testDoc]([]byte(testSchema), []byte("name: \"b\"\ncount: 0\n"), "#Doc")
		if err != nil {
			t.Fatalf("Decode() error: %v", err)
		}
		if doc.Name != "b" {
			t.Errorf("Name = %q, want %q", doc.Name, "b")
		}
	})

	t.Run("schema violation names the file", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc]([]byte(testSchema), []byte(`{"name": "", "count": 1}`), "#Doc", WithFilename("doc.json"))
		if err == nil {
			t.Fatal("expected validation error")
		}
		if !strings.Contains(err.Error(), "doc.json") {
			t.Errorf("error should name the file, got: %v", err)
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()

		_, err := Decode[testDoc]([]byte(testSchema), []byte(`{"name": "a", "count": 1}`), "#Doc", WithMaxSize(4))
		if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
			t.Errorf("expected size error, got: %v", err)
		}
	})
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	if FormatError(nil, "x.cue") != nil {
		t.Error("FormatError(nil) should be nil")
	}

	err := FormatError(errors.New("boom"), "x.cue")
	if err == nil || !strings.Contains(err.Error(), "x.cue: boom") {
		t.Errorf("FormatError() = %v", err)
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"mods"}, "mods"},
		{[]string{"mods", "3", "name"}, "mods[3].name"},
		{[]string{"api", "files", "0"}, "api.files[0]"},
	}

	for _, tt := range tests {
		if got := joinPath(tt.path); got != tt.want {
			t.Errorf("joinPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
