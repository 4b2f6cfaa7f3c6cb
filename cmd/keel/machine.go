// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"keel-cli/internal/config"
	"keel-cli/internal/issue"
	"keel-cli/internal/machine"

	"github.com/spf13/cobra"
)

// machineParams bundles the inputs of runMachine.
type machineParams struct {
	stdout io.Writer
	cfg    *config.Config

	dir  string
	ip   string // --ip, falls back to machine.ip
	name string // --name, falls back to the directory's base name
}

// newMachineCommand creates `keel machine`, which (re)generates the machine
// definition of an existing project without touching anything else.
func newMachineCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machine <dir>",
		Short: "Regenerate the machine definition of a project",
		Long: `Regenerate the ` + machine.FileName + ` of an existing project.

'keel new' writes the machine definition once; use this command after
changing the machine address, the project name, or the template.`,
		Example: `  # Regenerate with a new address
  keel machine . --ip 192.168.56.60

  # Regenerate for a project elsewhere
  keel machine ./shop --name shop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}

			ip, _ := cmd.Flags().GetString("ip")
			name, _ := cmd.Flags().GetString("name")

			p := machineParams{
				stdout: cmd.OutOrStdout(),
				cfg:    cfg,
				dir:    args[0],
				ip:     ip,
				name:   name,
			}

			if err := runMachine(cmd.Context(), p); err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().String("ip", "", "machine IP address (default from machine.ip)")
	cmd.Flags().String("name", "", "project name (default: base name of <dir>)")

	return cmd
}

// runMachine regenerates the machine definition in an existing project
// directory.
func runMachine(_ context.Context, p machineParams) error {
	dir, err := filepath.Abs(p.dir)
	if err != nil {
		return usageErrorf("resolving project directory %q: %v", p.dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return usageErrorf("project directory %s does not exist", dir)
	}

	ip := strings.TrimSpace(p.ip)
	if ip == "" {
		ip = string(p.cfg.Machine.IP)
	}
	if ok, errs := config.MachineIP(ip).IsValid(); !ok {
		return usageErrorf("invalid machine IP %q: %v", ip, errors.Join(errs...))
	}

	name := strings.TrimSpace(p.name)
	if name == "" {
		name = filepath.Base(dir)
	}
	if err := validateProjectName(name); err != nil {
		return &usageError{err: err}
	}

	opts, err := machineWriterOptions(p.cfg)
	if err != nil {
		return err
	}

	path, err := machine.NewWriter(opts...).Write(machine.Config{
		IP:          ip,
		ProjectName: name,
		RootDir:     dir,
	}, dir)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("generate machine config").
			WithResource(dir).
			Wrap(err).
			BuildError()
	}

	fmt.Fprintf(p.stdout, "%s wrote %s\n", SuccessStyle.Render("✓"), path)

	return nil
}

// machineWriterOptions loads the custom template when one is configured.
// An empty machine.template keeps the built-in template.
func machineWriterOptions(cfg *config.Config) ([]machine.WriterOption, error) {
	tpl := string(cfg.Machine.Template)
	if tpl == "" {
		return nil, nil
	}

	text, err := os.ReadFile(tpl)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("read machine template").
			WithResource(tpl).
			WithSuggestion("Fix machine.template in the config, or remove it to use the built-in template").
			Wrap(err).
			BuildError()
	}

	return []machine.WriterOption{machine.WithTemplate(string(text))}, nil
}
