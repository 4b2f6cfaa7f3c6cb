// SPDX-License-Identifier: MPL-2.0

package skeleton

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"keel-cli/internal/archive"
	"keel-cli/internal/fetch"
)

type (
	// Installer downloads a skeleton archive and merges it into a
	// project.
	Installer struct {
		fetcher *fetch.Fetcher
		logger  *slog.Logger
		tempDir string
	}

	// InstallerOption configures an Installer.
	InstallerOption func(*Installer)
)

// WithFetcher replaces the archive fetcher.
func WithFetcher(f *fetch.Fetcher) InstallerOption {
	return func(i *Installer) {
		if f != nil {
			i.fetcher = f
		}
	}
}

// WithLogger sets the logger for cleanup warnings.
func WithLogger(l *slog.Logger) InstallerOption {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithTempDir sets the directory for the downloaded artifact and the
// staging tree. The default is os.TempDir().
func WithTempDir(dir string) InstallerOption {
	return func(i *Installer) {
		if dir != "" {
			i.tempDir = dir
		}
	}
}

// NewInstaller returns an Installer with default wiring.
func NewInstaller(opts ...InstallerOption) *Installer {
	i := &Installer{
		fetcher: fetch.NewFetcher(),
		logger:  slog.Default(),
		tempDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install downloads entry's archive and overlays it onto projectDir. It
// returns the project-relative paths (slash-separated, sorted by walk
// order) of the files the skeleton contributed. Files the project
// already has are left untouched and do not appear in the returned list.
// The downloaded artifact and the staging tree are always removed, on
// success and on failure alike.
func (i *Installer) Install(ctx context.Context, entry Entry, projectDir string) ([]string, error) {
	if entry.Name == "" || entry.Archive == "" {
		return nil, fmt.Errorf("skeleton entry is incomplete (name %q, archive %q)", entry.Name, entry.Archive)
	}
	if _, err := os.Stat(projectDir); err != nil {
		return nil, fmt.Errorf("project directory %s is not usable: %w", projectDir, err)
	}

	staging, err := os.MkdirTemp(i.tempDir, ".keel-skeleton-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	artifactPath := fetch.TempName(i.tempDir, entry.Archive)
	defer func() {
		if err := os.Remove(artifactPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			i.logger.Warn("skeleton artifact cleanup failed", "path", artifactPath, "error", err)
		}
		if err := os.RemoveAll(staging); err != nil {
			i.logger.Warn("skeleton staging cleanup failed", "path", staging, "error", err)
		}
	}()

	artifact, err := i.fetcher.Fetch(ctx, entry.Archive, artifactPath)
	if err != nil {
		return nil, fmt.Errorf("downloading skeleton %s: %w", entry.Name, err)
	}

	treeDir := filepath.Join(staging, "tree")
	out := archive.Extract(artifact.Path, treeDir)
	if !out.Succeeded {
		return nil, fmt.Errorf("unpacking skeleton %s (%s): %w", entry.Name, out.Kind, out.Err)
	}

	added, err := overlay(treeDir, projectDir)
	if err != nil {
		return nil, fmt.Errorf("copying skeleton %s into project: %w", entry.Name, err)
	}
	return added, nil
}

// overlay copies the staged tree into the project, skipping any path the
// project already has.
func overlay(srcDir, dstDir string) ([]string, error) {
	var added []string

	err := filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dstDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		copied, err := copyIfAbsent(p, target)
		if err != nil {
			return err
		}
		if copied {
			added = append(added, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// copyIfAbsent copies src to target unless target already exists. The
// exclusive create makes the existing-file check race-free.
func copyIfAbsent(src, target string) (bool, error) {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}

	in, err := os.Open(src)
	if err != nil {
		_ = out.Close()
		return false, err
	}
	defer func() { _ = in.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return false, err
	}
	return true, out.Close()
}
