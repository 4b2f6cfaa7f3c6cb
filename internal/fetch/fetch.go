// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// maxArchiveBytes is the default upper bound on downloaded archive size
// (500 MB). Prevents a misbehaving registry from filling the disk.
const maxArchiveBytes = 500 << 20

// defaultUserAgent identifies keel to the registry.
const defaultUserAgent = "keel/dev"

const (
	// ReasonNetwork covers every transport-level failure: DNS, timeouts,
	// refused connections, and non-2xx HTTP statuses. The pipeline reports
	// all of them uniformly as "package can not be downloaded".
	ReasonNetwork Reason = iota + 1

	// ReasonEmpty means the transfer completed but produced zero bytes.
	// An empty artifact can never extract to anything useful, so it is a
	// download failure, not a success to be discovered later.
	ReasonEmpty
)

type (
	// Reason classifies why a fetch failed.
	Reason int

	// Error is the failure type returned by Fetcher.Fetch. The pipeline
	// inspects Reason; the wrapped Err keeps the transport detail for
	// verbose output.
	Error struct {
		Reason Reason
		URL    string // redacted request URL
		Err    error
	}

	// Artifact describes a successfully downloaded archive. The path is
	// owned by the caller, which is responsible for removing it.
	Artifact struct {
		Path string
		Size int64
	}

	// Fetcher downloads kit archives over HTTP.
	Fetcher struct {
		httpClient *http.Client
		userAgent  string
		maxBytes   int64
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)
)

// String returns a short name for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNetwork:
		return "network"
	case ReasonEmpty:
		return "empty"
	}
	return "unknown"
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

// Unwrap returns the underlying transport error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy
// configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxArchiveBytes overrides the download size limit.
func WithMaxArchiveBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// NewFetcher creates a Fetcher with sensible defaults:
// http.DefaultClient, a keel User-Agent, and a 500 MB size limit.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
		maxBytes:   maxArchiveBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL into destPath and returns the resulting Artifact.
// destPath must not exist; the fetcher creates it exclusively so two
// concurrent invocations can never scribble over each other's download.
//
// On any failure the partially written file is removed before returning, so
// a non-nil error always means "nothing at destPath". Every returned error
// is a *Error. A single attempt is made; retry policy belongs to the caller.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destPath string) (*Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &Error{Reason: ReasonNetwork, URL: redactURL(rawURL), Err: err}
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Reason: ReasonNetwork, URL: redactURL(rawURL), Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Reason: ReasonNetwork,
			URL:    redactURL(rawURL),
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	// O_EXCL enforces the caller's unique-name contract: an existing file at
	// destPath is a naming bug, not something to silently truncate.
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, &Error{Reason: ReasonNetwork, URL: redactURL(rawURL), Err: err}
	}

	written, copyErr := io.Copy(out, io.LimitReader(resp.Body, f.maxBytes+1))
	closeErr := out.Close()

	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr == nil && written > f.maxBytes {
		copyErr = fmt.Errorf("archive exceeds size limit of %d bytes", f.maxBytes)
	}
	if copyErr != nil {
		_ = os.Remove(destPath)
		return nil, &Error{Reason: ReasonNetwork, URL: redactURL(rawURL), Err: copyErr}
	}

	if written == 0 {
		_ = os.Remove(destPath)
		return nil, &Error{
			Reason: ReasonEmpty,
			URL:    redactURL(rawURL),
			Err:    fmt.Errorf("download produced an empty file"),
		}
	}

	return &Artifact{Path: destPath, Size: written}, nil
}

// Probe issues a HEAD request and reports the advertised Content-Length of
// the resource, or -1 when the server does not state one. Format selection
// uses it to learn archive sizes without downloading anything.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return -1, &Error{Reason: ReasonNetwork, URL: redactURL(rawURL), Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return -1, &Error{Reason: ReasonNetwork, URL: redactURL(rawURL), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return -1, &Error{
			Reason: ReasonNetwork,
			URL:    redactURL(rawURL),
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return resp.ContentLength, nil
}

// ExpandURL substitutes version into every {version} placeholder of the
// configured URL template.
func ExpandURL(template, version string) string {
	return strings.ReplaceAll(template, "{version}", version)
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in error messages, preventing accidental exposure of tokens.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
