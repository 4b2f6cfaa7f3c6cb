// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// tempPrefix hides download artifacts from casual directory listings and
// keeps them clear of real project files.
const tempPrefix = ".keel-"

// multiPartExts are archive extensions whose format marker spans two
// path.Ext segments. Checked before the generic single-extension fallback.
var multiPartExts = []string{".tar.gz", ".tar.bz2", ".tar.xz"}

// TempName returns a unique, hidden filename inside dir for a download of
// rawURL. The name combines a nanosecond timestamp with a random token and
// carries the same archive extension as the remote resource, so the
// extractor can pick its format from the local path alone.
func TempName(dir, rawURL string) string {
	token := randomToken()
	name := fmt.Sprintf("%s%d-%s%s", tempPrefix, time.Now().UnixNano(), token, ArchiveExt(rawURL))
	return filepath.Join(dir, name)
}

// ArchiveExt extracts the archive extension from a URL, preserving
// multi-part extensions (".tar.gz", not ".gz"). Query strings and fragments
// are ignored. Returns "" when the resource has no extension.
func ArchiveExt(rawURL string) string {
	base := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		base = u.Path
	}
	base = strings.ToLower(path.Base(base))

	for _, ext := range multiPartExts {
		if strings.HasSuffix(base, ext) {
			return ext
		}
	}
	return path.Ext(base)
}

// randomToken returns a short hex token. The timestamp in TempName already
// separates sequential calls; the token guards against clock granularity.
func randomToken() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; here the
		// timestamp alone still gives uniqueness in practice.
		return "0000"
	}
	return hex.EncodeToString(b[:])
}
