// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"sort"
	"testing"
	"time"
)

// BuildTarGz writes a tar.gz archive at path. Map keys are entry names;
// keys with a trailing slash become directories and their values are
// ignored. Entries are written in sorted order so archives are
// deterministic across runs.
func BuildTarGz(t testing.TB, path string, entries map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, name := range sortedKeys(entries) {
		content := entries[name]
		if name[len(name)-1] == '/' {
			hdr := &tar.Header{
				Name:     name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
				ModTime:  time.Unix(0, 0),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				t.Fatalf("writing tar dir header %s: %v", name, err)
			}
			continue
		}

		hdr := &tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
			ModTime:  time.Unix(0, 0),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing tar entry %s: %v", name, err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive %s: %v", path, err)
	}
}

// BuildZip writes a zip archive at path with the same entry conventions as
// BuildTarGz.
func BuildZip(t testing.TB, path string, entries map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range sortedKeys(entries) {
		content := entries[name]
		if name[len(name)-1] == '/' {
			if _, err := zw.Create(name); err != nil {
				t.Fatalf("writing zip dir entry %s: %v", name, err)
			}
			continue
		}

		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive %s: %v", path, err)
	}
}

// WriteJunk writes bytes at path that no archive format will parse.
func WriteJunk(t testing.TB, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("this is not an archive at all"), 0o644); err != nil {
		t.Fatalf("writing junk file %s: %v", path, err)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
