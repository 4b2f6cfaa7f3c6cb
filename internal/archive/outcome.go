// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
)

const (
	// FailureNone is reserved for the success case. A failed Outcome never
	// carries it.
	FailureNone FailureKind = iota
	// FailureCorrupted means the archive cannot be parsed as a valid
	// instance of its format.
	FailureCorrupted
	// FailureEmpty means the archive parses but contains zero entries.
	FailureEmpty
	// FailurePermissionDenied means the archive is valid and non-empty but
	// the destination (or an ancestor) refused write access.
	FailurePermissionDenied
	// FailureUnknown covers every other extraction failure: disk full,
	// unsupported entry types, traversal attempts, truncated writes.
	FailureUnknown
)

// ErrInvalidFailureKind is returned when a FailureKind value is not one of
// the defined kinds.
var ErrInvalidFailureKind = errors.New("invalid failure kind")

type (
	// FailureKind classifies why an extraction failed. The kinds are
	// mutually exclusive and checked in declaration order: a corrupted
	// archive is never reported as Empty, an empty one never as Unknown.
	FailureKind int

	// InvalidFailureKindError wraps ErrInvalidFailureKind for errors.Is.
	InvalidFailureKindError struct {
		Value FailureKind
	}

	// Outcome is the result of one extraction attempt. Err carries the
	// underlying cause for verbose output; Kind is what the pipeline acts
	// on.
	Outcome struct {
		Succeeded bool
		Kind      FailureKind
		Err       error
	}
)

// String returns a human-readable name for the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureCorrupted:
		return "corrupted"
	case FailureEmpty:
		return "empty"
	case FailurePermissionDenied:
		return "permission denied"
	case FailureUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Validate returns nil if the FailureKind is one of the defined kinds,
// or an error wrapping ErrInvalidFailureKind if it is not.
func (k FailureKind) Validate() error {
	switch k {
	case FailureNone, FailureCorrupted, FailureEmpty, FailurePermissionDenied, FailureUnknown:
		return nil
	default:
		return &InvalidFailureKindError{Value: k}
	}
}

// Error implements the error interface for InvalidFailureKindError.
func (e *InvalidFailureKindError) Error() string {
	return fmt.Sprintf("invalid failure kind %d (valid: 0=none, 1=corrupted, 2=empty, 3=permission denied, 4=unknown)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidFailureKindError) Unwrap() error {
	return ErrInvalidFailureKind
}

// Success returns the outcome for a completed extraction.
func Success() Outcome {
	return Outcome{Succeeded: true, Kind: FailureNone}
}

// Failure returns a failed outcome with the given kind and cause.
// FailureNone is reserved for success; a caller passing it gets
// FailureUnknown instead so the invariant cannot be violated.
func Failure(kind FailureKind, err error) Outcome {
	if kind == FailureNone {
		kind = FailureUnknown
	}
	return Outcome{Succeeded: false, Kind: kind, Err: err}
}

// Validate checks the outcome invariant: FailureNone appears only on
// success, and failed outcomes carry a defined kind.
func (o Outcome) Validate() error {
	if err := o.Kind.Validate(); err != nil {
		return err
	}
	if o.Succeeded && o.Kind != FailureNone {
		return fmt.Errorf("succeeded outcome carries failure kind %s", o.Kind)
	}
	if !o.Succeeded && o.Kind == FailureNone {
		return fmt.Errorf("failed outcome carries kind none, which is reserved for success")
	}
	return nil
}
