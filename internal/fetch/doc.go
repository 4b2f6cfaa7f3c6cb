// SPDX-License-Identifier: MPL-2.0

// Package fetch retrieves remote starter-kit archives to local temporary
// files. It owns the download side of the install pipeline: URL expansion,
// hidden temp-file naming, transport-error classification, and the
// smallest-archive format selection used when a registry offers a release
// in more than one format.
package fetch
