// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"slices"
	"strings"
)

// FormatCandidate describes one archive format a registry offers for a
// release: the extension (".tar.gz", ".zip"), the fully expanded download
// URL, and the advertised size (<= 0 when unknown).
type FormatCandidate struct {
	Extension string
	URL       string
	Size      int64
}

// Prober reports the advertised size of a remote resource without
// downloading it. *Fetcher implements it with HEAD requests.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (int64, error)
}

// SelectFormat picks which archive to download when a release is offered in
// several formats. The choice is deterministic: smallest known size first,
// ties broken by lexicographic extension, candidates with unknown sizes
// sorted last (also by extension among themselves). Returns false for an
// empty candidate list.
func SelectFormat(candidates []FormatCandidate) (FormatCandidate, bool) {
	if len(candidates) == 0 {
		return FormatCandidate{}, false
	}

	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b FormatCandidate) int {
		aKnown, bKnown := a.Size > 0, b.Size > 0
		switch {
		case aKnown && !bKnown:
			return -1
		case !aKnown && bKnown:
			return 1
		case aKnown && bKnown && a.Size != b.Size:
			if a.Size < b.Size {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Extension, b.Extension)
	})

	return sorted[0], true
}

// SwapExtension returns rawURL with its trailing archive extension replaced
// by ext. A URL whose extension is absent or hidden behind a query string is
// returned unchanged; registries offering multiple formats publish plain
// paths.
func SwapExtension(rawURL, ext string) string {
	cur := ArchiveExt(rawURL)
	if cur == "" || !strings.HasSuffix(strings.ToLower(rawURL), cur) {
		return rawURL
	}
	return rawURL[:len(rawURL)-len(cur)] + ext
}

// ResolveURL turns the configured URL template into the concrete download
// URL for version. With fewer than two offered formats the plain expansion
// is returned. With several, each format's candidate URL is probed for its
// size and SelectFormat picks the winner; a probe failure leaves that size
// unknown instead of failing the install.
func ResolveURL(ctx context.Context, template, version string, formats []string, prober Prober) string {
	expanded := ExpandURL(template, version)
	if len(formats) < 2 {
		return expanded
	}

	candidates := make([]FormatCandidate, 0, len(formats))
	for _, ext := range formats {
		u := SwapExtension(expanded, ext)
		size := int64(-1)
		if prober != nil {
			if n, err := prober.Probe(ctx, u); err == nil {
				size = n
			}
		}
		candidates = append(candidates, FormatCandidate{Extension: ext, URL: u, Size: size})
	}

	chosen, ok := SelectFormat(candidates)
	if !ok {
		return expanded
	}
	return chosen.URL
}
