// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxSize bounds the documents this package will compile (8 MB).
const DefaultMaxSize int64 = 8 << 20

type (
	options struct {
		maxSize  int64
		concrete bool
		filename string
	}

	// Option configures Decode.
	Option func(*options)
)

// WithMaxSize overrides DefaultMaxSize.
func WithMaxSize(n int64) Option {
	return func(o *options) { o.maxSize = n }
}

// WithConcrete controls whether every value must be concrete after
// unification. Config files set this to false because all fields are optional.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// Unify compiles data, unifies it with the schema definition and validates
// the result. The returned value can be decoded or merged elsewhere.
func Unify(schema, data []byte, definition string, opts ...Option) (cue.Value, error) {
	o := options{maxSize: DefaultMaxSize, concrete: true, filename: "<input>"}
	for _, opt := range opts {
		opt(&o)
	}

	if err := CheckSize(data, o.maxSize, o.filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: compile schema: %w", schemaValue.Err())
	}

	def := schemaValue.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s: %w", definition, def.Err())
	}

	doc := ctx.CompileBytes(data, cue.Filename(o.filename))
	if doc.Err() != nil {
		return cue.Value{}, FormatError(doc.Err(), o.filename)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return cue.Value{}, FormatError(err, o.filename)
	}

	return unified, nil
}

// Decode runs Unify and decodes the result into a T.
func Decode[T any](schema, data []byte, definition string, opts ...Option) (*T, error) {
	unified, err := Unify(schema, data, definition, opts...)
	if err != nil {
		return nil, err
	}

	o := options{filename: "<input>"}
	for _, opt := range opts {
		opt(&o)
	}

	var out T
	if err := unified.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return &out, nil
}
