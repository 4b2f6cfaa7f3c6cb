// SPDX-License-Identifier: MPL-2.0

package install

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Request holds the immutable inputs of one install attempt.
type Request struct {
	// DestinationPath is where the project will be created. It must not
	// exist yet; the pipeline checks this before any network traffic.
	DestinationPath string
	// Version selects the starter-kit release, substituted into the
	// URL template.
	Version string
	// URLTemplate is the registry download URL with an optional
	// {version} placeholder.
	URLTemplate string
	// Formats lists the archive extensions the registry offers the
	// release in. With fewer than two entries the URL template is used
	// as is; with more, the smallest probed candidate wins.
	Formats []string
}

// Validate reports whether the request is complete enough to attempt.
func (r Request) Validate() error {
	if strings.TrimSpace(r.DestinationPath) == "" {
		return fmt.Errorf("destination path is empty")
	}
	if strings.TrimSpace(r.Version) == "" {
		return fmt.Errorf("version is empty")
	}
	if strings.TrimSpace(r.URLTemplate) == "" {
		return fmt.Errorf("registry URL template is empty")
	}
	return nil
}

// ProjectName returns the last path element of the destination, used for
// templating and messages.
func (r Request) ProjectName() string {
	return filepath.Base(filepath.Clean(r.DestinationPath))
}
