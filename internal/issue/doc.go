// SPDX-License-Identifier: MPL-2.0

// Package issue turns engine errors into user guidance: ActionableError
// carries suggestions for a single failure, and the Issue catalog holds
// Markdown help pages rendered with glamour, looked up from an error by
// Classify.
package issue
