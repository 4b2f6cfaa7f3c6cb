// SPDX-License-Identifier: MPL-2.0

// Package install orchestrates the project install pipeline: download the
// starter-kit archive, unpack it into the destination, then run the
// dependency manager inside it.
//
// The pipeline is a strict one-way state machine (Idle, Downloading,
// Extracting, InstallingDeps, then Succeeded or Failed) with one attempt
// per Run call. Stages classify their own failures; the pipeline only
// decides cleanup policy and composes the user-facing message. Cleanup is
// deliberately asymmetric: a failed extraction purges the destination, a
// failed dependency install preserves it so the user can inspect or finish
// the project by hand. The downloaded artifact never survives an attempt,
// whatever the outcome.
package install
