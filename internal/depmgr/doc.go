// SPDX-License-Identifier: MPL-2.0

// Package depmgr runs the project's dependency manager as a subprocess.
//
// The manager command comes from configuration as a single shell-style
// string (default "composer") and is split into argv with mvdan.cc/sh;
// keel always appends the fixed "install --optimize" arguments. Combined
// stdout and stderr are scanned line by line and forwarded to a caller
// supplied Sink while the process runs, which keeps long composer runs
// visible instead of silent.
//
// The package never imposes its own timeout. Cancellation arrives through
// the context, and the exit code of the process is the only success
// signal: zero succeeds, anything else fails. A process that could not be
// launched at all is reported with LaunchExitCode so callers always see a
// non-zero code on failure.
package depmgr
