// SPDX-License-Identifier: MPL-2.0

package machine

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// FileName is the machine definition written into the project root.
const FileName = "machine.yaml"

//go:embed default.yaml.tmpl
var defaultTemplate string

type (
	// Config carries the template inputs for one machine definition.
	Config struct {
		// IP is the private-network address of the machine.
		IP string
		// ProjectName becomes the hostname and the site name.
		ProjectName string
		// RootDir is the host path synced into the machine.
		RootDir string
	}

	// Writer renders machine definitions from a template.
	Writer struct {
		template string
	}

	// WriterOption configures a Writer.
	WriterOption func(*Writer)
)

// Validate reports whether the config can be rendered.
func (c Config) Validate() error {
	if _, err := netip.ParseAddr(c.IP); err != nil {
		return fmt.Errorf("machine IP %q is not a valid address: %w", c.IP, err)
	}
	if strings.TrimSpace(c.ProjectName) == "" {
		return fmt.Errorf("project name is empty")
	}
	if strings.TrimSpace(c.RootDir) == "" {
		return fmt.Errorf("project root directory is empty")
	}
	return nil
}

// WithTemplate replaces the embedded default template with text. The
// caller is responsible for reading custom template files.
func WithTemplate(text string) WriterOption {
	return func(w *Writer) {
		if text != "" {
			w.template = text
		}
	}
}

// NewWriter returns a Writer using the embedded default template unless
// an option overrides it.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{template: defaultTemplate}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Render produces the machine definition for cfg. The output is parsed
// back as YAML before being returned; a template that renders something
// unparseable is an error, not a file.
func (w *Writer) Render(cfg Config) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tmpl, err := template.New("machine").Option("missingkey=error").Parse(w.template)
	if err != nil {
		return nil, fmt.Errorf("parsing machine template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("rendering machine template: %w", err)
	}

	var probe map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("machine template produced invalid YAML: %w", err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("machine template produced an empty document")
	}

	return buf.Bytes(), nil
}

// Write renders cfg and writes the definition into projectDir, returning
// the full path of the written file.
func (w *Writer) Write(cfg Config, projectDir string) (string, error) {
	rendered, err := w.Render(cfg)
	if err != nil {
		return "", err
	}

	path := filepath.Join(projectDir, FileName)
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
