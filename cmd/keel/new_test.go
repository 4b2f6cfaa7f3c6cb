// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"keel-cli/internal/config"
	"keel-cli/internal/issue"
	"keel-cli/internal/machine"
	"keel-cli/internal/testutil"
	"keel-cli/pkg/kitfile"
)

// skipWithoutPOSIXManager skips tests that exercise the dependency step
// through the real 'true'/'false' binaries.
func skipWithoutPOSIXManager(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test manager commands require POSIX tools")
	}
}

// newKitServer serves a starter-kit tar.gz for exactly one release and
// 404s everything else.
func newKitServer(t *testing.T, release string) *httptest.Server {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "kit.tar.gz")
	testutil.BuildTarGz(t, archivePath, map[string]string{
		"keel-kit/composer.json":    `{"name": "keel/kit"}`,
		"keel-kit/public/index.php": "<?php echo 'keel';\n",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/kit/keel-"+release+".tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archivePath)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestConfig returns the defaults pointed at a test registry, with
// skeletons disabled so nothing reaches out unless a test opts in.
func newTestConfig(registryURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Registry.URLTemplate = config.URLTemplate(registryURL + "/kit/keel-{version}.tar.gz")
	cfg.Skeletons.ManifestURL = ""
	return cfg
}

func TestRunNewSuccess(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIXManager(t)

	srv := newKitServer(t, "v9.9")
	dest := filepath.Join(t.TempDir(), "shop")

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig(srv.URL),
		dir:     dest,
		release: "v9.9",
		manager: "true",
		tempDir: t.TempDir(),
	}

	if err := runNew(context.Background(), p); err != nil {
		t.Fatalf("runNew() error = %v\nstderr: %s", err, stderr.String())
	}

	if _, err := os.Stat(filepath.Join(dest, "composer.json")); err != nil {
		t.Errorf("kit file missing after install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, machine.FileName)); err != nil {
		t.Errorf("machine definition missing: %v", err)
	}

	marker, err := kitfile.Load(dest)
	if err != nil {
		t.Fatalf("loading project marker: %v", err)
	}
	if marker.Version != "v9.9" {
		t.Errorf("marker version = %q, want %q", marker.Version, "v9.9")
	}
	if len(marker.Skeletons) != 0 {
		t.Errorf("marker skeletons = %v, want none", marker.Skeletons)
	}

	out := stdout.String()
	if !strings.Contains(out, "is ready at") {
		t.Errorf("stdout should announce success, got:\n%s", out)
	}
	if !strings.Contains(out, "Next steps:") {
		t.Errorf("stdout should list next steps, got:\n%s", out)
	}
}

func TestRunNewDestinationExists(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig("http://registry.invalid"),
		dir:     dest,
		release: "v1.0",
		tempDir: t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should fail when the destination exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error should mention the existing destination, got %q", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be actionable, got %T", err)
	}
	if ae.Code != issue.DestinationExistsId {
		t.Errorf("issue code = %v, want %v", ae.Code, issue.DestinationExistsId)
	}
	if got := classifyExitCode(err); got != exitDestinationExists {
		t.Errorf("classifyExitCode() = %d, want %d", got, exitDestinationExists)
	}
}

func TestRunNewDownloadFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	dest := filepath.Join(t.TempDir(), "shop")

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig(srv.URL),
		dir:     dest,
		release: "v1.0",
		tempDir: t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should fail when the registry 404s")
	}
	if !strings.Contains(err.Error(), "package can not be downloaded.") {
		t.Errorf("error should carry the download message, got %q", err)
	}
	if got := classifyExitCode(err); got != exitDownloadFailed {
		t.Errorf("classifyExitCode() = %d, want %d", got, exitDownloadFailed)
	}

	if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("destination should not exist after a failed download, stat err = %v", statErr)
	}
}

func TestRunNewDependencyInstallFailure(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIXManager(t)

	srv := newKitServer(t, "v9.9")
	dest := filepath.Join(t.TempDir(), "shop")

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig(srv.URL),
		dir:     dest,
		release: "v9.9",
		manager: "false",
		tempDir: t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should fail when the dependency manager fails")
	}
	if !strings.Contains(err.Error(), "NOT deleted") {
		t.Errorf("error should say the project was kept, got %q", err)
	}
	if got := classifyExitCode(err); got != exitDependencyInstall {
		t.Errorf("classifyExitCode() = %d, want %d", got, exitDependencyInstall)
	}

	// The unpacked project stays for a manual retry; the post-install
	// artifacts were never written.
	if _, statErr := os.Stat(filepath.Join(dest, "composer.json")); statErr != nil {
		t.Errorf("unpacked project should be preserved: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(dest, machine.FileName)); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("machine definition should not be written, stat err = %v", statErr)
	}
	if _, statErr := os.Stat(kitfile.Path(dest)); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("project marker should not be written, stat err = %v", statErr)
	}
}

func TestRunNewNoRelease(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig("http://registry.invalid"),
		dir:     filepath.Join(t.TempDir(), "shop"),
		tempDir: t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should fail without a release")
	}
	if !strings.Contains(err.Error(), "no release selected") {
		t.Errorf("error should explain the missing release, got %q", err)
	}
	if got := classifyExitCode(err); got != exitUsage {
		t.Errorf("classifyExitCode() = %d, want %d", got, exitUsage)
	}
}

func TestRunNewRejectsReservedName(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig("http://registry.invalid"),
		dir:     filepath.Join(t.TempDir(), "shop"),
		release: "v1.0",
		name:    "CON",
		tempDir: t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should reject a Windows-reserved project name")
	}
	if !strings.Contains(err.Error(), "reserved") {
		t.Errorf("error should mention the reserved name, got %q", err)
	}
	if got := classifyExitCode(err); got != exitUsage {
		t.Errorf("classifyExitCode() = %d, want %d", got, exitUsage)
	}
}

func TestRunNewRejectsBadIP(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:  &stdout,
		stderr:  &stderr,
		cfg:     newTestConfig("http://registry.invalid"),
		dir:     filepath.Join(t.TempDir(), "shop"),
		release: "v1.0",
		ip:      "999.1.2.3",
		tempDir: t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should reject a malformed machine IP")
	}
	if got := classifyExitCode(err); got != exitUsage {
		t.Errorf("classifyExitCode() = %d, want %d", got, exitUsage)
	}
}

// newSkeletonRegistry adds a manifest and one skeleton archive to a kit
// server mux. The archive URLs are built from the incoming request host
// because the server's base URL is not known when the handler is
// registered.
func newSkeletonRegistry(t *testing.T, mux *http.ServeMux, name string, files map[string]string) {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), name+".tar.gz")
	testutil.BuildTarGz(t, archivePath, files)

	mux.HandleFunc("/skeletons.toml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "[[skeleton]]\nname = %q\ndescription = %q\narchive = %q\n",
			name, "Scaffolding for "+name, "http://"+r.Host+"/skeletons/"+name+".tar.gz")
	})
	mux.HandleFunc("/skeletons/"+name+".tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, archivePath)
	})
}

func TestRunNewWithSkeleton(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIXManager(t)

	kitPath := filepath.Join(t.TempDir(), "kit.tar.gz")
	testutil.BuildTarGz(t, kitPath, map[string]string{
		"keel-kit/composer.json": `{"name": "keel/kit"}`,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/kit/keel-v9.9.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, kitPath)
	})
	newSkeletonRegistry(t, mux, "auth", map[string]string{
		"auth/config/auth.php": "<?php return ['guard' => 'web'];\n",
		"auth/composer.json":   `{"name": "skeleton/auth"}`,
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.Skeletons.ManifestURL = config.ManifestURL(srv.URL + "/skeletons.toml")

	dest := filepath.Join(t.TempDir(), "shop")

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:    &stdout,
		stderr:    &stderr,
		cfg:       cfg,
		dir:       dest,
		release:   "v9.9",
		skeletons: []string{"auth"},
		manager:   "true",
		tempDir:   t.TempDir(),
	}

	if err := runNew(context.Background(), p); err != nil {
		t.Fatalf("runNew() error = %v\nstderr: %s", err, stderr.String())
	}

	if _, err := os.Stat(filepath.Join(dest, "config", "auth.php")); err != nil {
		t.Errorf("skeleton file missing: %v", err)
	}

	// The kit's composer.json wins over the skeleton's copy.
	data := testutil.MustReadFile(t, filepath.Join(dest, "composer.json"))
	if !strings.Contains(data, "keel/kit") {
		t.Errorf("existing kit file should be preserved, got %q", data)
	}

	marker, err := kitfile.Load(dest)
	if err != nil {
		t.Fatalf("loading project marker: %v", err)
	}
	if !marker.HasSkeleton("auth") {
		t.Errorf("marker should record the applied skeleton, got %v", marker.Skeletons)
	}

	if !strings.Contains(stdout.String(), "skeleton auth applied") {
		t.Errorf("stdout should report the skeleton, got:\n%s", stdout.String())
	}
}

func TestRunNewUnknownSkeleton(t *testing.T) {
	t.Parallel()
	skipWithoutPOSIXManager(t)

	kitPath := filepath.Join(t.TempDir(), "kit.tar.gz")
	testutil.BuildTarGz(t, kitPath, map[string]string{
		"keel-kit/composer.json": `{"name": "keel/kit"}`,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/kit/keel-v9.9.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, kitPath)
	})
	newSkeletonRegistry(t, mux, "auth", map[string]string{
		"auth/config/auth.php": "<?php return [];\n",
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(srv.URL)
	cfg.Skeletons.ManifestURL = config.ManifestURL(srv.URL + "/skeletons.toml")

	dest := filepath.Join(t.TempDir(), "shop")

	var stdout, stderr bytes.Buffer
	p := newParams{
		stdout:    &stdout,
		stderr:    &stderr,
		cfg:       cfg,
		dir:       dest,
		release:   "v9.9",
		skeletons: []string{"blog"},
		manager:   "true",
		tempDir:   t.TempDir(),
	}

	err := runNew(context.Background(), p)
	if err == nil {
		t.Fatal("runNew() should fail for a skeleton the manifest does not list")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error should be actionable, got %T", err)
	}
	if ae.Code != issue.SkeletonUnknownId {
		t.Errorf("issue code = %v, want %v", ae.Code, issue.SkeletonUnknownId)
	}

	// The project itself is fine; the marker records the release even
	// though the skeleton never landed.
	marker, loadErr := kitfile.Load(dest)
	if loadErr != nil {
		t.Fatalf("loading project marker: %v", loadErr)
	}
	if marker.HasSkeleton("blog") {
		t.Error("marker must not record a skeleton that was not applied")
	}
}

func TestValidateProjectName(t *testing.T) {
	t.Parallel()

	valid := []string{"shop", "my-app", "app_2", "Shop.Test"}
	for _, name := range valid {
		if err := validateProjectName(name); err != nil {
			t.Errorf("validateProjectName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", ".", "..", "a/b", `a\b`, "CON", "aux", "LPT1"}
	for _, name := range invalid {
		if err := validateProjectName(name); err == nil {
			t.Errorf("validateProjectName(%q) should fail", name)
		}
	}
}
