// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keel-cli/internal/archive"
	"keel-cli/internal/depmgr"
	"keel-cli/internal/fetch"
	"keel-cli/internal/issue"
	"keel-cli/internal/testutil"
)

type (
	fetcherFunc   func(ctx context.Context, rawURL, destPath string) (*fetch.Artifact, error)
	installerFunc func(ctx context.Context, dir string, sink depmgr.Sink) *depmgr.Result
)

func (f fetcherFunc) Fetch(ctx context.Context, rawURL, destPath string) (*fetch.Artifact, error) {
	return f(ctx, rawURL, destPath)
}

func (f installerFunc) Install(ctx context.Context, dir string, sink depmgr.Sink) *depmgr.Result {
	return f(ctx, dir, sink)
}

// recordingInstaller stands in for the dependency manager and remembers
// where it was asked to run.
type recordingInstaller struct {
	dirs   []string
	result *depmgr.Result
}

func (ri *recordingInstaller) Install(_ context.Context, dir string, sink depmgr.Sink) *depmgr.Result {
	ri.dirs = append(ri.dirs, dir)
	if sink != nil {
		sink("installing 12 packages")
	}
	return ri.result
}

func kitArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "kit.tar.gz")
	testutil.BuildTarGz(t, p, entries)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return data
}

func wrapperKit(t *testing.T) []byte {
	t.Helper()
	return kitArchive(t, map[string]string{
		"kit-2.0/":              "",
		"kit-2.0/composer.json": "{}",
		"kit-2.0/src/":          "",
		"kit-2.0/src/index.php": "<?php\n",
	})
}

func kitZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	p := filepath.Join(t.TempDir(), "kit.zip")
	testutil.BuildZip(t, p, entries)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	return data
}

// newKitServer serves body for every request and counts hits. The
// returned template carries a {version} placeholder for the pipeline to
// expand.
func newKitServer(t *testing.T, body []byte) (string, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/kit-{version}.tar.gz", &hits
}

func failIfCalled(t *testing.T) Installer {
	return installerFunc(func(context.Context, string, depmgr.Sink) *depmgr.Result {
		t.Error("dependency installer ran, want it skipped")
		return depmgr.NewSuccessResult()
	})
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "directory %s should hold nothing", dir)
}

func TestPipelineProvisionsProject(t *testing.T) {
	url, hits := newKitServer(t, wrapperKit(t))
	tempDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "proj1")

	ri := &recordingInstaller{result: depmgr.NewSuccessResult()}
	var lines []string
	p := New(
		WithTempDir(tempDir),
		WithInstaller(ri),
		WithOutputSink(func(line string) { lines = append(lines, line) }),
	)

	res := p.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     url,
	})

	require.True(t, res.IsSuccess(), "result: %+v", res)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, StateSucceeded, p.State())
	assert.Equal(t, StageNone, res.Stage)
	assert.Equal(t, issue.Id(0), res.Code)
	assert.Equal(t, "v2.0", res.Version)
	assert.Equal(t, dest, res.DestinationPath)
	assert.Contains(t, res.Message, "proj1")
	assert.Empty(t, res.CleanupWarnings)

	// The manager ran exactly once, inside the new project, and its
	// output reached the sink.
	require.Equal(t, []string{dest}, ri.dirs)
	assert.Equal(t, []string{"installing 12 packages"}, lines)
	assert.EqualValues(t, 1, hits.Load())

	// The wrapper directory was stripped on the way in.
	assert.Equal(t, "{}", testutil.MustReadFile(t, filepath.Join(dest, "composer.json")))
	assert.Equal(t, "<?php\n", testutil.MustReadFile(t, filepath.Join(dest, "src", "index.php")))

	// The downloaded artifact never survives an attempt.
	requireEmptyDir(t, tempDir)
}

func TestPipelinePicksSmallestAdvertisedFormat(t *testing.T) {
	bodies := map[string][]byte{
		"/kit-v2.0.tar.gz": wrapperKit(t),
		"/kit-v2.0.zip":    kitZip(t, map[string]string{"kit-2.0/composer.json": `{"kit":"zip"}`}),
	}
	sizes := map[string]string{
		"/kit-v2.0.tar.gz": "9000",
		"/kit-v2.0.zip":    "100",
	}

	var heads, gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodHead {
			heads.Add(1)
			w.Header().Set("Content-Length", sizes[r.URL.Path])
			return
		}
		gets.Add(1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	tempDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "proj1")
	ri := &recordingInstaller{result: depmgr.NewSuccessResult()}
	p := New(WithTempDir(tempDir), WithInstaller(ri))

	res := p.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     srv.URL + "/kit-{version}.tar.gz",
		Formats:         []string{".tar.gz", ".zip"},
	})

	require.True(t, res.IsSuccess(), "result: %+v", res)
	assert.Equal(t, `{"kit":"zip"}`, testutil.MustReadFile(t, filepath.Join(dest, "composer.json")))

	// Both candidates probed, only the winner downloaded.
	assert.EqualValues(t, 2, heads.Load())
	assert.EqualValues(t, 1, gets.Load())
	requireEmptyDir(t, tempDir)
}

func TestPipelineRefusesExistingDestination(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		url, hits := newKitServer(t, wrapperKit(t))
		tempDir := t.TempDir()
		dest := filepath.Join(t.TempDir(), "proj1")
		require.NoError(t, os.MkdirAll(dest, 0o755))

		p := New(WithTempDir(tempDir), WithInstaller(failIfCalled(t)))
		res := p.Run(context.Background(), Request{
			DestinationPath: dest,
			Version:         "v2.0",
			URLTemplate:     url,
		})

		require.False(t, res.IsSuccess())
		assert.Equal(t, StateFailed, p.State())
		assert.Equal(t, StageNone, res.Stage)
		assert.Equal(t, issue.DestinationExistsId, res.Code)
		assert.Contains(t, res.Message, "already exists")

		// The refusal happens before any traffic or writes.
		assert.EqualValues(t, 0, hits.Load())
		requireEmptyDir(t, tempDir)
	})

	t.Run("existing file", func(t *testing.T) {
		url, hits := newKitServer(t, wrapperKit(t))
		dest := filepath.Join(t.TempDir(), "proj1")
		testutil.MustWriteFile(t, dest, "i am a file")

		p := New(WithTempDir(t.TempDir()), WithInstaller(failIfCalled(t)))
		res := p.Run(context.Background(), Request{
			DestinationPath: dest,
			Version:         "v2.0",
			URLTemplate:     url,
		})

		require.False(t, res.IsSuccess())
		assert.Equal(t, issue.DestinationExistsId, res.Code)
		assert.EqualValues(t, 0, hits.Load())
	})
}

func TestPipelineDownloadFailure(t *testing.T) {
	t.Run("http 404", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		t.Cleanup(srv.Close)

		tempDir := t.TempDir()
		dest := filepath.Join(t.TempDir(), "proj1")

		p := New(WithTempDir(tempDir), WithInstaller(failIfCalled(t)))
		res := p.Run(context.Background(), Request{
			DestinationPath: dest,
			Version:         "v2.0",
			URLTemplate:     srv.URL + "/kit-{version}.tar.gz",
		})

		require.False(t, res.IsSuccess())
		assert.Equal(t, StageDownload, res.Stage)
		assert.Equal(t, issue.DownloadFailedId, res.Code)
		require.Equal(t, "package can not be downloaded.", res.Message)

		var fe *fetch.Error
		require.ErrorAs(t, res.Err, &fe)
		assert.Equal(t, fetch.ReasonNetwork, fe.Reason)

		assertGone(t, dest)
		requireEmptyDir(t, tempDir)
	})

	t.Run("empty body", func(t *testing.T) {
		url, _ := newKitServer(t, nil)
		tempDir := t.TempDir()
		dest := filepath.Join(t.TempDir(), "proj1")

		p := New(WithTempDir(tempDir), WithInstaller(failIfCalled(t)))
		res := p.Run(context.Background(), Request{
			DestinationPath: dest,
			Version:         "v2.0",
			URLTemplate:     url,
		})

		require.False(t, res.IsSuccess())
		assert.Equal(t, issue.DownloadFailedId, res.Code)
		require.Equal(t, "package can not be downloaded.", res.Message)

		var fe *fetch.Error
		require.ErrorAs(t, res.Err, &fe)
		assert.Equal(t, fetch.ReasonEmpty, fe.Reason)

		assertGone(t, dest)
		requireEmptyDir(t, tempDir)
	})
}

func TestPipelineExtractFailures(t *testing.T) {
	for _, tc := range []struct {
		name string
		body func(t *testing.T) []byte
		kind archive.FailureKind
		code issue.Id
	}{
		{
			name: "corrupted archive",
			body: func(*testing.T) []byte { return []byte("these bytes parse as nothing") },
			kind: archive.FailureCorrupted,
			code: issue.ArchiveCorruptedId,
		},
		{
			name: "empty archive",
			body: func(t *testing.T) []byte { return kitArchive(t, nil) },
			kind: archive.FailureEmpty,
			code: issue.ArchiveEmptyId,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			url, _ := newKitServer(t, tc.body(t))
			tempDir := t.TempDir()
			dest := filepath.Join(t.TempDir(), "proj1")

			p := New(WithTempDir(tempDir), WithInstaller(failIfCalled(t)))
			res := p.Run(context.Background(), Request{
				DestinationPath: dest,
				Version:         "v2.0",
				URLTemplate:     url,
			})

			require.False(t, res.IsSuccess())
			assert.Equal(t, StageExtract, res.Stage)
			assert.Equal(t, tc.kind, res.Kind)
			assert.Equal(t, tc.code, res.Code)
			require.NotNil(t, res.Err)

			// A failed extraction never leaves the destination behind.
			assertGone(t, dest)
			requireEmptyDir(t, tempDir)
		})
	}
}

func TestPipelinePreservesProjectOnInstallFailure(t *testing.T) {
	url, _ := newKitServer(t, wrapperKit(t))
	tempDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "proj1")

	ri := &recordingInstaller{result: depmgr.NewExitCodeResult(1)}
	p := New(WithTempDir(tempDir), WithInstaller(ri))

	res := p.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     url,
	})

	require.False(t, res.IsSuccess())
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StageDependencyInstall, res.Stage)
	assert.Equal(t, issue.DependencyInstallFailedId, res.Code)
	assert.Equal(t, archive.FailureNone, res.Kind)
	assert.EqualValues(t, 1, res.ExitCode)
	assert.Contains(t, res.Message, "exit code 1")
	assert.Contains(t, res.Message, "NOT deleted")

	// The unpacked project is kept for the user to finish by hand; only
	// the artifact goes.
	assert.Equal(t, "{}", testutil.MustReadFile(t, filepath.Join(dest, "composer.json")))
	requireEmptyDir(t, tempDir)
}

func TestPipelineInstallTimeout(t *testing.T) {
	url, _ := newKitServer(t, wrapperKit(t))
	tempDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "proj1")

	blocked := installerFunc(func(ctx context.Context, _ string, _ depmgr.Sink) *depmgr.Result {
		<-ctx.Done()
		return depmgr.NewExitCodeResult(depmgr.ExitCode(-1))
	})
	p := New(
		WithTempDir(tempDir),
		WithInstaller(blocked),
		WithInstallTimeout(50*time.Millisecond),
	)

	res := p.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     url,
	})

	require.False(t, res.IsSuccess())
	assert.Equal(t, StageDependencyInstall, res.Stage)
	assert.Equal(t, issue.DependencyInstallTimeoutId, res.Code)
	assert.Contains(t, res.Message, "did not finish within")
	assert.Contains(t, res.Message, "NOT deleted")

	assert.Equal(t, "{}", testutil.MustReadFile(t, filepath.Join(dest, "composer.json")))
	requireEmptyDir(t, tempDir)
}

func TestPipelineReportsLaunchFailure(t *testing.T) {
	url, _ := newKitServer(t, wrapperKit(t))
	tempDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "proj1")

	launchErr := errors.New("composer not found in PATH")
	broken := installerFunc(func(context.Context, string, depmgr.Sink) *depmgr.Result {
		return depmgr.NewErrorResult(depmgr.LaunchExitCode, launchErr)
	})
	p := New(WithTempDir(tempDir), WithInstaller(broken))

	res := p.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     url,
	})

	require.False(t, res.IsSuccess())
	assert.Equal(t, issue.DependencyInstallFailedId, res.Code)
	assert.Equal(t, depmgr.LaunchExitCode, res.ExitCode)
	require.ErrorIs(t, res.Err, launchErr)
	requireEmptyDir(t, tempDir)
}

func TestPipelineRejectsInvalidRequest(t *testing.T) {
	for _, tc := range []struct {
		name string
		req  Request
	}{
		{"empty destination", Request{Version: "v2.0", URLTemplate: "https://kits.example/{version}.tar.gz"}},
		{"empty version", Request{DestinationPath: "/tmp/proj", URLTemplate: "https://kits.example/{version}.tar.gz"}},
		{"empty template", Request{DestinationPath: "/tmp/proj", Version: "v2.0"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := New(WithInstaller(failIfCalled(t)))
			res := p.Run(context.Background(), tc.req)

			require.False(t, res.IsSuccess())
			assert.Equal(t, StateFailed, p.State())
			assert.Equal(t, StageNone, res.Stage)
			assert.Equal(t, issue.Id(0), res.Code)
			assert.Contains(t, res.Message, "invalid install request")
			require.NotNil(t, res.Err)
		})
	}
}

func TestPipelineStateProgression(t *testing.T) {
	tempDir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "proj1")

	var (
		pl   *Pipeline
		seen []State
	)
	fetcher := fetcherFunc(func(_ context.Context, _ string, destPath string) (*fetch.Artifact, error) {
		seen = append(seen, pl.State())
		testutil.BuildTarGz(t, destPath, map[string]string{"kit/": "", "kit/a.txt": "a"})
		fi, err := os.Stat(destPath)
		require.NoError(t, err)
		return &fetch.Artifact{Path: destPath, Size: fi.Size()}, nil
	})
	extractor := ExtractorFunc(func(artifactPath, destPath string) archive.Outcome {
		seen = append(seen, pl.State())
		return archive.Extract(artifactPath, destPath)
	})
	installer := installerFunc(func(context.Context, string, depmgr.Sink) *depmgr.Result {
		seen = append(seen, pl.State())
		return depmgr.NewSuccessResult()
	})

	pl = New(
		WithTempDir(tempDir),
		WithFetcher(fetcher),
		WithExtractor(extractor),
		WithInstaller(installer),
	)
	require.Equal(t, StateIdle, pl.State())

	res := pl.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     "https://kits.example/kit-{version}.tar.gz",
	})

	require.True(t, res.IsSuccess(), "result: %+v", res)
	assert.Equal(t, []State{StateDownloading, StateExtracting, StateInstallingDeps}, seen)
	assert.Equal(t, StateSucceeded, pl.State())
	requireEmptyDir(t, tempDir)
}

func TestPipelineCleanupWarningsDoNotChangeOutcome(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "proj1")

	// The fake fetcher plants a non-empty directory where the artifact
	// file should be, so the artifact removal is guaranteed to fail.
	fetcher := fetcherFunc(func(_ context.Context, _ string, destPath string) (*fetch.Artifact, error) {
		testutil.MustWriteFile(t, filepath.Join(destPath, "child.txt"), "x")
		return &fetch.Artifact{Path: destPath, Size: 1}, nil
	})
	extractor := ExtractorFunc(func(_, destPath string) archive.Outcome {
		testutil.MustWriteFile(t, filepath.Join(destPath, "a.txt"), "a")
		return archive.Success()
	})
	installer := installerFunc(func(context.Context, string, depmgr.Sink) *depmgr.Result {
		return depmgr.NewExitCodeResult(2)
	})

	p := New(
		WithTempDir(t.TempDir()),
		WithFetcher(fetcher),
		WithExtractor(extractor),
		WithInstaller(installer),
		WithLogger(silentLogger()),
	)

	res := p.Run(context.Background(), Request{
		DestinationPath: dest,
		Version:         "v2.0",
		URLTemplate:     "https://kits.example/kit-{version}.tar.gz",
	})

	// The install failure wins; the cleanup problem is only recorded.
	require.False(t, res.IsSuccess())
	assert.Equal(t, issue.DependencyInstallFailedId, res.Code)
	assert.EqualValues(t, 2, res.ExitCode)
	require.Len(t, res.CleanupWarnings, 1)
	assert.Equal(t, "a", testutil.MustReadFile(t, filepath.Join(dest, "a.txt")))
}
