// SPDX-License-Identifier: MPL-2.0

package install

import (
	"keel-cli/internal/archive"
	"keel-cli/internal/depmgr"
	"keel-cli/internal/issue"
)

const (
	// StageNone marks results that are not tied to a stage: success, or
	// failures raised before the first stage ran.
	StageNone Stage = iota
	// StageDownload covers the archive fetch.
	StageDownload
	// StageExtract covers unpacking into the destination.
	StageExtract
	// StageDependencyInstall covers the dependency manager run.
	StageDependencyInstall
)

type (
	// Stage identifies which pipeline stage a failure belongs to.
	Stage int

	// Result reports how an install attempt ended. Code is the issue
	// catalog entry for failures and zero on success. Kind is only
	// meaningful for StageExtract failures, ExitCode only for
	// StageDependencyInstall ones.
	Result struct {
		State           State
		Stage           Stage
		Kind            archive.FailureKind
		ExitCode        depmgr.ExitCode
		Code            issue.Id
		Version         string
		DestinationPath string
		Message         string
		Err             error
		// CleanupWarnings records best-effort cleanup problems. They
		// never change the outcome; they are kept for display only.
		CleanupWarnings []error
	}
)

// String returns a human-readable representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageDownload:
		return "download"
	case StageExtract:
		return "extract"
	case StageDependencyInstall:
		return "dependency install"
	default:
		return "unknown"
	}
}

// IsSuccess returns true if the attempt fully provisioned the project.
func (r Result) IsSuccess() bool {
	return r.State == StateSucceeded
}
