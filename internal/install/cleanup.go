// SPDX-License-Identifier: MPL-2.0

package install

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// Coordinator removes the per-attempt leftovers. It is best-effort by
// contract: nothing it does can fail an attempt that already has an
// outcome, so problems are logged as warnings and recorded for display
// instead of being returned into control flow.
type Coordinator struct {
	logger   *slog.Logger
	warnings []error
}

// NewCoordinator returns a Coordinator logging through logger. A nil
// logger falls back to slog.Default().
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{logger: logger}
}

// Run removes the downloaded artifact and, when removeDestination is set,
// the destination directory tree. Both removals tolerate already-absent
// paths, so running twice is a no-op.
func (c *Coordinator) Run(artifactPath, destPath string, removeDestination bool) {
	if artifactPath != "" {
		if err := os.Remove(artifactPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.warn("artifact cleanup failed", "path", artifactPath, err)
		}
	}

	if removeDestination && destPath != "" {
		if err := os.RemoveAll(destPath); err != nil {
			c.warn("destination cleanup failed", "path", destPath, err)
		}
	}
}

// Warnings returns the problems recorded so far, oldest first.
func (c *Coordinator) Warnings() []error {
	return c.warnings
}

func (c *Coordinator) warn(msg, key, value string, err error) {
	c.logger.Warn(msg, key, value, "error", err)
	c.warnings = append(c.warnings, fmt.Errorf("%s (%s=%s): %w", msg, key, value, err))
}
