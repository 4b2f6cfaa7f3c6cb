// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Every distinct install failure keel can report carries a stable code
// (KEEL-Exxx) that maps to a Markdown remediation entry in the catalog here.
// The catalog is rendered with glamour when a command fails and is browsable
// via 'keel explain'.
package issue
