// SPDX-License-Identifier: MPL-2.0

// Package testutil provides shared test fixtures: fail-fast filesystem
// helpers and builders for the tar.gz/zip archives the extractor and
// pipeline tests feed through the install path.
package testutil
