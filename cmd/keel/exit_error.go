// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"keel-cli/internal/issue"
)

// Process exit codes. The values are a stable contract for scripts that
// wrap keel; renumbering them is a breaking change.
const (
	exitFailure           = 1
	exitUsage             = 2
	exitDestinationExists = 3
	exitDownloadFailed    = 4
	exitExtractFailed     = 5
	exitDependencyInstall = 6
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// usageError marks argument and flag mistakes so they exit with the
// conventional usage code instead of a failure classification.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// usageErrorf builds a usageError the way fmt.Errorf builds an error.
func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exitCodeForIssue maps a failure code to its process exit code. Codes
// without a dedicated exit status fall back to the generic failure code.
func exitCodeForIssue(id issue.Id) int {
	switch id {
	case issue.DestinationExistsId:
		return exitDestinationExists
	case issue.DownloadFailedId:
		return exitDownloadFailed
	case issue.ArchiveCorruptedId, issue.ArchiveEmptyId, issue.ExtractPermissionId, issue.ExtractFailedId:
		return exitExtractFailed
	case issue.DependencyInstallFailedId, issue.DependencyInstallTimeoutId:
		return exitDependencyInstall
	default:
		return exitFailure
	}
}

// classifyExitCode maps a command error to its process exit code: usage
// mistakes, then catalog-coded failures, then the generic failure code.
func classifyExitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Code != 0 {
		return exitCodeForIssue(ae.Code)
	}

	return exitFailure
}
