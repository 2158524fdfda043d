// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates documents against embedded CUE schemas and decodes
// them into Go values.
//
// Both the mod catalog and the configuration file go through the same flow:
// compile the schema, compile the document, unify it with a schema definition,
// validate, decode. CUE accepts JSON as a subset, so JSON documents pass
// through unchanged.
//
//	//go:embed catalog_schema.cue
//	var schema []byte
//
//	doc, err := cueutil.Decode[document](schema, data, "#Catalog",
//		cueutil.WithFilename("catalog.json"))
package cueutil
