// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for keel.
//
// This package implements the Cobra command hierarchy for the keel CLI:
// project creation from starter kits, skeleton management, machine-config
// generation, configuration bootstrap, and failure-code explanation.
package cmd
