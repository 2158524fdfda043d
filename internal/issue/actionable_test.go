// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load catalog"}, "failed to load catalog"},
		{"with resource", &ActionableError{Operation: "load catalog", Resource: "catalog.json"}, "failed to load catalog: catalog.json"},
		{
			"with cause",
			&ActionableError{Operation: "enable mod", Resource: "Core", Cause: errors.New("file busy")},
			"failed to enable mod: Core: file busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewErrorContext().
		WithOperation("install mod").
		WithResource("Core").
		WithSuggestion("Close the game").
		WithSuggestion("Retry").
		Wrap(errors.Join(root)).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "• Close the game") || !strings.Contains(plain, "• Retry") {
		t.Errorf("suggestions missing:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("non-verbose output should not list the chain")
	}
	if verbose := err.Format(true); !strings.Contains(verbose, "Error chain:") {
		t.Errorf("verbose output lacks chain:\n%s", verbose)
	}
	if !errors.Is(err, root) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().Build() != nil {
		t.Error("Build() without operation should be nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want untyped nil", err)
	}

	ctx := NewErrorContext().WithOperation("load config").WithSuggestion("one").WithPage(ConfigLoadFailedId)
	first := ctx.Build()
	ctx.WithSuggestion("two").WithResource("later")
	if len(first.Suggestions) != 1 || first.Resource != "" {
		t.Errorf("built error shares state with the builder: %+v", first)
	}
	if first.Page != ConfigLoadFailedId {
		t.Errorf("Page = %d, want %d", first.Page, ConfigLoadFailedId)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("nil error should stay nil")
	}
	cause := errors.New("boom")
	err := WrapWithContext(cause, "delete folder", "Mods/Core")
	var ae *ActionableError
	if !errors.As(err, &ae) || ae.Resource != "Mods/Core" || !errors.Is(err, cause) {
		t.Errorf("unexpected wrap %v", err)
	}
}
