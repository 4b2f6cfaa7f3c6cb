// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"fmt"
)

const (
	// StateIdle indicates the pipeline was created but Run() not called.
	StateIdle State = iota
	// StateDownloading indicates the archive fetch is in progress.
	StateDownloading
	// StateExtracting indicates the archive is being unpacked into the destination.
	StateExtracting
	// StateInstallingDeps indicates the dependency manager is running.
	StateInstallingDeps
	// StateSucceeded is terminal: the project was fully provisioned.
	StateSucceeded
	// StateFailed is terminal: a stage failed and the attempt is over.
	StateFailed
)

// ErrInvalidState is returned when a State value is not one of the defined pipeline states.
var ErrInvalidState = errors.New("invalid state")

type (
	// State represents the lifecycle state of an install attempt.
	State int32

	// InvalidStateError is returned when a State value is not recognized.
	// It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// String returns a human-readable representation of the pipeline state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateExtracting:
		return "extracting"
	case StateInstallingDeps:
		return "installing dependencies"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=idle, 1=downloading, 2=extracting, 3=installing dependencies, 4=succeeded, 5=failed)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil if the State is one of the defined pipeline states,
// or an error wrapping ErrInvalidState if it is not.
func (s State) Validate() error {
	switch s {
	case StateIdle, StateDownloading, StateExtracting, StateInstallingDeps, StateSucceeded, StateFailed:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal returns true if the state is a terminal state (Succeeded or Failed).
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}
