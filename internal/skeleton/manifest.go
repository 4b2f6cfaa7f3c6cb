// SPDX-License-Identifier: MPL-2.0

package skeleton

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// maxManifestBytes is the upper bound on manifest response size (10 MB).
// Prevents unbounded memory consumption from malicious or malformed responses.
const maxManifestBytes = 10 << 20

type (
	// Entry describes one published skeleton.
	Entry struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Archive     string `toml:"archive"`
	}

	// Manifest is the published skeleton index.
	Manifest struct {
		Skeletons []Entry `toml:"skeleton"`
	}

	// Client fetches skeleton manifests from a registry.
	Client struct {
		httpClient *http.Client
		userAgent  string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy
// configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// NewClient creates a Client with sensible defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		userAgent:  "keel/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchManifest downloads and validates the skeleton index at rawURL.
func (c *Client) FetchManifest(ctx context.Context, rawURL string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building manifest request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/toml, text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching skeleton manifest: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching skeleton manifest: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("reading skeleton manifest: %w", err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing skeleton manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid skeleton manifest: %w", err)
	}
	return &m, nil
}

// Find resolves an entry by name.
func (m *Manifest) Find(name string) (Entry, bool) {
	for _, e := range m.Skeletons {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns all skeleton names, sorted.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Skeletons))
	for _, e := range m.Skeletons {
		names = append(names, e.Name)
	}
	slices.Sort(names)
	return names
}

func (m *Manifest) validate() error {
	seen := make(map[string]struct{}, len(m.Skeletons))
	for i, e := range m.Skeletons {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("skeleton entry %d has no name", i)
		}
		if strings.TrimSpace(e.Archive) == "" {
			return fmt.Errorf("skeleton %q has no archive URL", e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("skeleton name %q appears twice", e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}
