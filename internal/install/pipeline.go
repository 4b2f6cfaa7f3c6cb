// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"keel-cli/internal/archive"
	"keel-cli/internal/depmgr"
	"keel-cli/internal/fetch"
	"keel-cli/internal/issue"
)

type (
	// Fetcher downloads the starter-kit archive to a local path.
	Fetcher interface {
		Fetch(ctx context.Context, rawURL, destPath string) (*fetch.Artifact, error)
	}

	// Extractor unpacks a downloaded archive into the destination.
	Extractor interface {
		Extract(artifactPath, destPath string) archive.Outcome
	}

	// Installer runs the dependency manager inside the project directory.
	Installer interface {
		Install(ctx context.Context, dir string, sink depmgr.Sink) *depmgr.Result
	}

	// ExtractorFunc adapts a plain function to the Extractor interface.
	ExtractorFunc func(artifactPath, destPath string) archive.Outcome

	// Pipeline drives one install attempt through its stages. It is not
	// safe for concurrent Run calls; create one Pipeline per attempt or
	// run attempts sequentially.
	Pipeline struct {
		fetcher        Fetcher
		extractor      Extractor
		installer      Installer
		logger         *slog.Logger
		sink           depmgr.Sink
		installTimeout time.Duration
		tempDir        string

		state atomic.Int32
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(artifactPath, destPath string) archive.Outcome {
	return f(artifactPath, destPath)
}

// WithFetcher replaces the download stage.
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithExtractor replaces the unpack stage.
func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithInstaller replaces the dependency manager stage.
func WithInstaller(i Installer) Option {
	return func(p *Pipeline) { p.installer = i }
}

// WithLogger sets the logger used for cleanup warnings and stage
// progress. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOutputSink forwards dependency manager output lines to sink as they
// are produced. The default discards them.
func WithOutputSink(s depmgr.Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithInstallTimeout bounds only the dependency install stage. Zero, the
// default, means no deadline.
func WithInstallTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.installTimeout = d }
}

// WithTempDir sets the directory holding the downloaded artifact for the
// duration of an attempt. The default is os.TempDir().
func WithTempDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.tempDir = dir
		}
	}
}

// New returns a Pipeline wired to the real stages: HTTP fetch, archive
// extraction, and the default dependency manager. Options replace
// individual stages.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:   fetch.NewFetcher(),
		extractor: ExtractorFunc(archive.Extract),
		installer: depmgr.Default(),
		logger:    slog.Default(),
		tempDir:   os.TempDir(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Run performs one install attempt. It never returns an error; every
// outcome, success or failure, is a Result carrying the terminal state,
// the failed stage if any, and a message fit for the user.
func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	p.setState(StateIdle)

	if err := req.Validate(); err != nil {
		return p.fail(nil, req, Result{
			Stage:   StageNone,
			Message: fmt.Sprintf("invalid install request: %v", err),
			Err:     err,
		})
	}

	dest := req.DestinationPath

	// The destination check runs before any network traffic, so an
	// attempt doomed by an existing directory costs nothing.
	if _, err := os.Lstat(dest); err == nil {
		return p.fail(nil, req, Result{
			Stage:   StageNone,
			Code:    issue.DestinationExistsId,
			Message: fmt.Sprintf("destination %s already exists; pick another directory or remove it first.", dest),
			Err:     fmt.Errorf("destination %s already exists", dest),
		})
	}

	co := NewCoordinator(p.logger)

	p.setState(StateDownloading)
	url := p.resolveKitURL(ctx, req)
	tempPath := fetch.TempName(p.tempDir, url)
	p.logger.Debug("downloading starter kit", "version", req.Version)

	artifact, err := p.fetcher.Fetch(ctx, url, tempPath)
	if err != nil {
		co.Run(tempPath, dest, false)
		return p.fail(co, req, Result{
			Stage:   StageDownload,
			Code:    issue.DownloadFailedId,
			Message: "package can not be downloaded.",
			Err:     err,
		})
	}

	p.setState(StateExtracting)
	p.logger.Debug("unpacking archive", "artifact", artifact.Path, "size", artifact.Size)

	out := p.extractor.Extract(artifact.Path, dest)
	if !out.Succeeded {
		// A broken extraction never leaves a half-written destination
		// behind.
		co.Run(artifact.Path, dest, true)
		code, msg := extractFailure(out.Kind, dest)
		return p.fail(co, req, Result{
			Stage:   StageExtract,
			Kind:    out.Kind,
			Code:    code,
			Message: msg,
			Err:     out.Err,
		})
	}

	p.setState(StateInstallingDeps)
	p.logger.Debug("installing dependencies", "dir", dest)

	ictx := ctx
	if p.installTimeout > 0 {
		var cancel context.CancelFunc
		ictx, cancel = context.WithTimeout(ctx, p.installTimeout)
		defer cancel()
	}

	res := p.installer.Install(ictx, dest, p.sink)
	if !res.ExitCode.IsSuccess() {
		// The destination is preserved on purpose: the unpacked project
		// is still useful, the user can finish the install by hand.
		co.Run(artifact.Path, dest, false)
		code := issue.DependencyInstallFailedId
		msg := fmt.Sprintf("installing dependencies failed (exit code %s); the project at %s was NOT deleted, finish the install manually or remove it.", res.ExitCode, dest)
		if p.installTimeout > 0 && errors.Is(ictx.Err(), context.DeadlineExceeded) {
			code = issue.DependencyInstallTimeoutId
			msg = fmt.Sprintf("installing dependencies did not finish within %s; the project at %s was NOT deleted, finish the install manually or remove it.", p.installTimeout, dest)
		}
		return p.fail(co, req, Result{
			Stage:    StageDependencyInstall,
			ExitCode: res.ExitCode,
			Code:     code,
			Message:  msg,
			Err:      res.Error,
		})
	}

	co.Run(artifact.Path, dest, false)
	p.setState(StateSucceeded)
	return Result{
		State:           StateSucceeded,
		Stage:           StageNone,
		Version:         req.Version,
		DestinationPath: dest,
		Message:         fmt.Sprintf("project %s is ready at %s.", req.ProjectName(), dest),
		CleanupWarnings: co.Warnings(),
	}
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// resolveKitURL expands the URL template and, when the registry offers the
// release in several formats, lets the fetcher probe candidate sizes so the
// smallest archive is downloaded. Must run after the destination check;
// probing is network traffic.
func (p *Pipeline) resolveKitURL(ctx context.Context, req Request) string {
	var prober fetch.Prober
	if pr, ok := p.fetcher.(fetch.Prober); ok {
		prober = pr
	}
	return fetch.ResolveURL(ctx, req.URLTemplate, req.Version, req.Formats, prober)
}

// fail stamps the shared failure fields and moves the pipeline to its
// terminal state. The stage-specific fields arrive pre-filled in r.
func (p *Pipeline) fail(co *Coordinator, req Request, r Result) Result {
	r.State = StateFailed
	r.Version = req.Version
	r.DestinationPath = req.DestinationPath
	if co != nil {
		r.CleanupWarnings = co.Warnings()
	}
	p.setState(StateFailed)
	return r
}

// extractFailure maps an extraction failure kind to its catalog entry and
// user-facing message.
func extractFailure(kind archive.FailureKind, dest string) (issue.Id, string) {
	switch kind {
	case archive.FailureCorrupted:
		return issue.ArchiveCorruptedId, "the downloaded archive is corrupted and can not be unpacked."
	case archive.FailureEmpty:
		return issue.ArchiveEmptyId, "the downloaded archive contains no files."
	case archive.FailurePermissionDenied:
		return issue.ExtractPermissionId, fmt.Sprintf("permission denied while unpacking into %s.", dest)
	default:
		return issue.ExtractFailedId, "unpacking the downloaded archive failed."
	}
}
