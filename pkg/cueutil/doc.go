// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE error-handling utilities.
//
// Config loading compiles the user's config.cue against an embedded schema;
// when unification or decoding fails, CUE reports errors as flat path slices.
// FormatError turns those into JSON-path messages users can act on, e.g.
//
//	config.cue: ui.color_scheme: 2 errors in empty disjunction
//
// CheckFileSize guards the loader against absurdly large files before the
// CUE evaluator sees them.
package cueutil
