// SPDX-License-Identifier: MPL-2.0

// Package archive unpacks downloaded kit archives into a destination
// directory. It understands tar.gz and zip, hoists a single wrapping root
// directory so the destination holds the project files directly, and maps
// every failure to exactly one of four kinds: Corrupted, Empty,
// PermissionDenied, or Unknown.
package archive
