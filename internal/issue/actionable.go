// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strconv"
	"strings"
)

type (
	// ActionableError is an error the user can act on. It names the
	// operation that failed, the mod or path involved, remediation hints
	// and optionally the help page that explains the failure.
	//
	//	err := issue.NewErrorContext().
	//		WithOperation("load catalog").
	//		WithResource("./catalog.json").
	//		WithSuggestion("Point catalog_path at a valid catalog document").
	//		WithPage(issue.CatalogLoadFailedId).
	//		Wrap(cause).
	//		BuildError()
	ActionableError struct {
		Operation   string
		Resource    string
		Suggestions []string
		// Page overrides Classify when non-zero.
		Page  Id
		Cause error
	}

	// ErrorContext accumulates the fields of an ActionableError.
	ErrorContext struct {
		draft ActionableError
	}
)

// NewErrorContext creates an empty builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithContext attaches an operation and resource to err. A nil err
// stays nil.
func WrapWithContext(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

func (e *ActionableError) Error() string {
	parts := make([]string, 0, 3)
	parts = append(parts, "failed to "+e.Operation)
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error { return e.Cause }

// Format renders the message followed by one bullet per suggestion. With
// verbose the unwrapped cause chain is appended, outermost first.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteByte('\n')
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}

	if verbose {
		if chain := causeChain(e.Cause); len(chain) > 0 {
			b.WriteString("\n\nError chain:")
			for i, msg := range chain {
				b.WriteString("\n  " + strconv.Itoa(i+1) + ". " + msg)
			}
		}
	}
	return b.String()
}

func causeChain(err error) []string {
	var out []string
	for ; err != nil; err = errors.Unwrap(err) {
		out = append(out, err.Error())
	}
	return out
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.draft.Operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.draft.Resource = res
	return c
}

// WithSuggestion appends a hint; call it once per hint.
func (c *ErrorContext) WithSuggestion(s string) *ErrorContext {
	c.draft.Suggestions = append(c.draft.Suggestions, s)
	return c
}

// WithPage pins the help page shown with the error.
func (c *ErrorContext) WithPage(id Id) *ErrorContext {
	c.draft.Page = id
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.draft.Cause = err
	return c
}

// Build returns a copy of the draft, or nil when no operation was set.
// Later builder calls do not affect the returned error.
func (c *ErrorContext) Build() *ActionableError {
	if c.draft.Operation == "" {
		return nil
	}
	ae := c.draft
	ae.Suggestions = append([]string(nil), c.draft.Suggestions...)
	return &ae
}

// BuildError is Build returning an untyped nil when no operation was set.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
