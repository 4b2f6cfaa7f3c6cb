// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"keel-cli/internal/config"

	"github.com/spf13/cobra"
)

// newInitCommand creates `keel init`, which writes a commented default
// config file into the per-OS keel config directory.
func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Create a commented default configuration file in the keel config directory.

The generated file documents every setting with its default value;
commented lines show optional settings left unset. An existing file is
never overwritten without --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			force, _ := cmd.Flags().GetBool("force")

			if err := runInitConfig(cmd.OutOrStdout(), force); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().BoolP("force", "f", false, "overwrite an existing config file")

	return cmd
}

// runInitConfig writes the default config file and prints where it went.
func runInitConfig(stdout io.Writer, force bool) error {
	path, err := config.CreateDefaultConfig(force)
	if err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w; use --force to overwrite", err)
		}
		return fmt.Errorf("creating default config: %w", err)
	}

	fmt.Fprintf(stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintln(stdout, "  1. Edit the file; commented lines show optional settings")
	fmt.Fprintln(stdout, "  2. Run 'keel new <dir> --release <version>' to create a project")

	return nil
}
