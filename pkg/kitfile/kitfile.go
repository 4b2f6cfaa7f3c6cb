// SPDX-License-Identifier: MPL-2.0

// Package kitfile reads and writes the .keel.toml project marker. The
// marker records which starter-kit release a project was created from and
// which skeletons have been layered on top; commands that only make sense
// inside a keel project use it to recognize one.
package kitfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the marker file kept in the project root.
const FileName = ".keel.toml"

// ErrNotFound is returned by Load when the project has no marker.
var ErrNotFound = errors.New("project marker not found")

// Kitfile is the persisted project marker.
type Kitfile struct {
	// Version is the starter-kit release the project was created from.
	Version string `toml:"version"`
	// Created is the provisioning time in UTC.
	Created time.Time `toml:"created"`
	// Skeletons lists the installed skeleton names, sorted and unique.
	Skeletons []string `toml:"skeletons,omitempty"`
}

// New returns a marker for a project provisioned now.
func New(version string) *Kitfile {
	return &Kitfile{
		Version: version,
		Created: time.Now().UTC().Truncate(time.Second),
	}
}

// Path returns the marker location for a project root.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Load reads the marker from a project root. A missing file is reported
// as ErrNotFound; anything else is a real error.
func Load(projectDir string) (*Kitfile, error) {
	path := Path(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var kf Kitfile
	if err := toml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &kf, nil
}

// Save writes the marker into a project root.
func (k *Kitfile) Save(projectDir string) error {
	data, err := toml.Marshal(k)
	if err != nil {
		return fmt.Errorf("encoding project marker: %w", err)
	}

	path := Path(projectDir)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// AddSkeleton records an installed skeleton, keeping the list sorted and
// free of duplicates. It reports whether the name was new.
func (k *Kitfile) AddSkeleton(name string) bool {
	if k.HasSkeleton(name) {
		return false
	}
	k.Skeletons = append(k.Skeletons, name)
	slices.Sort(k.Skeletons)
	return true
}

// HasSkeleton reports whether a skeleton is already recorded.
func (k *Kitfile) HasSkeleton(name string) bool {
	return slices.Contains(k.Skeletons, name)
}
