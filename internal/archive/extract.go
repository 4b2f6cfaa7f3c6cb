// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxEntryBytes is the upper bound on a single extracted file (500 MB).
// Prevents decompression bombs hidden inside an otherwise small archive.
const maxEntryBytes = 500 << 20

// entryInfo is one archive member as seen during the survey pass.
type entryInfo struct {
	name  string // cleaned, slash-separated, relative
	isDir bool
}

// Extract unpacks the archive at artifactPath into destPath.
//
// The work happens in two passes. The survey pass parses the whole archive
// without touching the destination, which is what makes the failure
// classification exact: a parse error is always Corrupted and a zero-entry
// archive is always Empty, never mixed up with write errors. The
// materialize pass then creates destPath and writes the entries; its
// failures classify as PermissionDenied or Unknown.
//
// When every entry lives under one common top-level directory, that wrapper
// is stripped so destPath holds the project files directly. On failure the
// destination may contain partial output; removing it is the caller's
// cleanup duty.
func Extract(artifactPath, destPath string) Outcome {
	entries, kind, err := survey(artifactPath)
	if kind != FailureNone {
		return Failure(kind, err)
	}
	if len(entries) == 0 {
		return Failure(FailureEmpty, fmt.Errorf("archive %s contains no entries", filepath.Base(artifactPath)))
	}

	root := wrapperRoot(entries)

	if err := materialize(artifactPath, destPath, root); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return Failure(FailurePermissionDenied, err)
		}
		return Failure(FailureUnknown, err)
	}

	return Success()
}

// survey fully parses the archive and returns its entry inventory. The
// destination is never touched here. A FailureNone kind means the archive
// parsed cleanly; Empty is decided by the caller from the inventory.
func survey(artifactPath string) ([]entryInfo, FailureKind, error) {
	var entries []entryInfo

	walkErr := walkArchive(artifactPath, func(name string, isDir bool, r io.Reader) error {
		clean, ok := cleanEntryName(name)
		if !ok {
			return fmt.Errorf("unsafe entry path %q", name)
		}
		if clean == "." {
			return nil
		}
		entries = append(entries, entryInfo{name: clean, isDir: isDir})

		// Drain file content to force the full parse; a truncated or
		// bit-flipped archive surfaces here instead of mid-write.
		if !isDir && r != nil {
			n, err := io.Copy(io.Discard, io.LimitReader(r, maxEntryBytes+1))
			if err != nil {
				return &formatError{err: err}
			}
			if n > maxEntryBytes {
				return fmt.Errorf("entry %q exceeds size limit of %d bytes", clean, int64(maxEntryBytes))
			}
		}
		return nil
	})

	if walkErr != nil {
		var fe *formatError
		if errors.As(walkErr, &fe) {
			return nil, FailureCorrupted, fe.err
		}
		return nil, FailureUnknown, walkErr
	}

	return entries, FailureNone, nil
}

// materialize writes the archive entries under destPath, stripping the
// wrapper root when one was detected.
func materialize(artifactPath, destPath, root string) error {
	if err := os.MkdirAll(destPath, 0o755); err != nil {
		return err
	}

	return walkArchive(artifactPath, func(name string, isDir bool, r io.Reader) error {
		clean, ok := cleanEntryName(name)
		if !ok || clean == "." {
			return nil // survey already vetted names; "." carries nothing
		}

		rel := hoist(clean, root)
		if rel == "" {
			return nil // the wrapper directory itself
		}
		target := filepath.Join(destPath, filepath.FromSlash(rel))

		if isDir {
			return os.MkdirAll(target, 0o755)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}

		_, copyErr := io.Copy(out, io.LimitReader(r, maxEntryBytes))
		if closeErr := out.Close(); copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			return fmt.Errorf("writing %s: %w", rel, copyErr)
		}
		return nil
	})
}

// formatError marks parse-level failures so survey can classify them as
// Corrupted rather than Unknown.
type formatError struct {
	err error
}

func (e *formatError) Error() string { return e.err.Error() }
func (e *formatError) Unwrap() error { return e.err }

// walkArchive dispatches on the artifact's extension and invokes fn for
// every entry. Zip archives are detected by extension; everything else is
// treated as gzip-compressed tar, which covers .tar.gz, .tgz, and
// extensionless downloads of either spelling.
func walkArchive(artifactPath string, fn func(name string, isDir bool, r io.Reader) error) error {
	if strings.EqualFold(filepath.Ext(artifactPath), ".zip") {
		return walkZip(artifactPath, fn)
	}
	return walkTarGz(artifactPath, fn)
}

func walkTarGz(artifactPath string, fn func(string, bool, io.Reader) error) error {
	f, err := os.Open(artifactPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return &formatError{err: fmt.Errorf("not a gzip stream: %w", err)}
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &formatError{err: fmt.Errorf("reading tar entry: %w", err)}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fn(hdr.Name, true, nil); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := fn(hdr.Name, false, tr); err != nil {
				return err
			}
		default:
			// Symlinks, devices, and friends have no place in a project
			// skeleton; refusing them beats extracting something surprising.
			return fmt.Errorf("unsupported entry type %d for %q", hdr.Typeflag, hdr.Name)
		}
	}
}

func walkZip(artifactPath string, fn func(string, bool, io.Reader) error) error {
	zr, err := zip.OpenReader(artifactPath)
	if err != nil {
		return &formatError{err: fmt.Errorf("not a zip archive: %w", err)}
	}
	defer func() { _ = zr.Close() }()

	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			if err := fn(zf.Name, true, nil); err != nil {
				return err
			}
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return &formatError{err: fmt.Errorf("opening zip entry %q: %w", zf.Name, err)}
		}

		callErr := fn(zf.Name, false, rc)
		closeErr := rc.Close()
		if callErr != nil {
			return callErr
		}
		if closeErr != nil {
			// zip stores per-entry CRCs; a close error here is a failed
			// checksum, which is corruption.
			return &formatError{err: fmt.Errorf("reading zip entry %q: %w", zf.Name, closeErr)}
		}
	}
	return nil
}

// cleanEntryName normalizes an archive member name to a clean, relative,
// slash-separated path. Absolute paths and traversal outside the
// destination are rejected.
func cleanEntryName(name string) (string, bool) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if clean == "" || path.IsAbs(clean) {
		return "", false
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

// wrapperRoot returns the name of the single top-level directory all
// entries live under, or "" when no such wrapper exists. A top-level
// regular file always disqualifies hoisting.
func wrapperRoot(entries []entryInfo) string {
	root := ""
	for _, e := range entries {
		first, rest, _ := strings.Cut(e.name, "/")
		if rest == "" && !e.isDir {
			return ""
		}
		if root == "" {
			root = first
			continue
		}
		if first != root {
			return ""
		}
	}
	return root
}

// hoist rewrites an entry path relative to the wrapper root. It returns ""
// for the wrapper directory itself.
func hoist(name, root string) string {
	if root == "" {
		return name
	}
	if name == root {
		return ""
	}
	return strings.TrimPrefix(name, root+"/")
}
