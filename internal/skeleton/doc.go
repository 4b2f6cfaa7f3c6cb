// SPDX-License-Identifier: MPL-2.0

// Package skeleton layers optional feature templates on top of an
// existing keel project. Skeletons are published through a TOML manifest
// (name, description, archive URL per entry); installing one downloads
// its archive, unpacks it into a staging directory, and copies the staged
// tree into the project without ever overwriting a file the project
// already has. The project's own files always win; a skeleton only fills
// gaps.
package skeleton
