// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keel-cli/internal/config"
	"keel-cli/internal/depmgr"
	"keel-cli/internal/install"
	"keel-cli/internal/issue"
	"keel-cli/internal/machine"
	"keel-cli/internal/platform"
	"keel-cli/internal/skeleton"
	"keel-cli/pkg/kitfile"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// newParams bundles the dependencies and resolved flags for 'keel new',
// enabling the core logic in runNew to be tested without a real Cobra
// command or a live kit registry.
type newParams struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config

	dir       string   // destination directory (positional argument)
	release   string   // --release, falls back to registry.default_release
	ip        string   // --ip, falls back to machine.ip
	name      string   // --name, falls back to the destination's base name
	skeletons []string // --skeleton, applied in order after the install
	manager   string   // --manager, falls back to manager.command
	timeout   time.Duration
	// interactive allows prompting for missing --ip/--name values.
	interactive bool

	// tempDir overrides the artifact directory; tests point it at t.TempDir().
	tempDir string
}

// newNewCommand creates the `keel new` command, which provisions a project
// from a published starter kit.
func newNewCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <dir>",
		Short: "Create a project from a starter kit",
		Long: `Create a project from a published starter kit.

The directory must not exist yet. keel downloads the kit archive for the
selected release, unpacks it into the directory, runs the dependency
manager inside it, writes the machine definition, applies any requested
skeletons, and records everything in the ` + kitfile.FileName + ` marker.

If the dependency step fails, the unpacked project is kept so the install
can be finished by hand.`,
		Example: `  # Create a project from the v2.0 kit
  keel new myproject --release v2.0

  # Pick the machine address and project name up front
  keel new shop --release v2.1.0 --ip 192.168.56.60 --name shop

  # Add skeletons in the same run
  keel new shop --release v2.1.0 --skeleton auth --skeleton admin

  # Never prompt (CI)
  keel new shop --release v2.1.0 --no-input`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}

			release, _ := cmd.Flags().GetString("release")
			ip, _ := cmd.Flags().GetString("ip")
			name, _ := cmd.Flags().GetString("name")
			skeletons, _ := cmd.Flags().GetStringArray("skeleton")
			manager, _ := cmd.Flags().GetString("manager")
			noInput, _ := cmd.Flags().GetBool("no-input")

			timeout, err := resolveInstallTimeout(cmd, cfg)
			if err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}

			p := newParams{
				stdout:      cmd.OutOrStdout(),
				stderr:      cmd.ErrOrStderr(),
				cfg:         cfg,
				dir:         args[0],
				release:     release,
				ip:          ip,
				name:        name,
				skeletons:   skeletons,
				manager:     manager,
				timeout:     timeout,
				interactive: !noInput && cfg.UI.Interactive && isInputTerminal(),
			}

			if err := runNew(cmd.Context(), p); err != nil {
				printCommandError(p.stderr, err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().String("release", "", "starter kit release, e.g. v2.0 (default from registry.default_release)")
	cmd.Flags().String("ip", "", "machine IP address (default from machine.ip)")
	cmd.Flags().String("name", "", "project name (default: base name of <dir>)")
	cmd.Flags().StringArray("skeleton", nil, "skeleton to overlay after the install (repeatable)")
	cmd.Flags().String("manager", "", "dependency manager command (default from manager.command)")
	cmd.Flags().Duration("timeout", 0, "dependency install deadline, e.g. 10m (0 disables; default from manager.timeout)")
	cmd.Flags().Bool("no-input", false, "never prompt; missing values use their defaults")

	return cmd
}

// resolveInstallTimeout returns the --timeout flag when set, the configured
// manager.timeout otherwise.
func resolveInstallTimeout(cmd *cobra.Command, cfg *config.Config) (time.Duration, error) {
	if cmd.Flags().Changed("timeout") {
		return cmd.Flags().GetDuration("timeout")
	}

	d, err := cfg.Manager.Timeout.Duration()
	if err != nil {
		return 0, usageErrorf("invalid manager.timeout in config: %v", err)
	}
	return d, nil
}

// isInputTerminal returns true if stdin is connected to a terminal.
// Returns false when running inside pipes or command substitution.
func isInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// runNew is the core project creation logic, separated from Cobra for
// testability. All user-facing output goes through p.stdout and p.stderr.
//
// Flow:
//  1. Resolve and validate the release, project name, machine IP, and
//     dependency manager, prompting for name/IP when allowed.
//  2. Run the install pipeline (download, unpack, install dependencies).
//  3. Write the machine definition into the project.
//  4. Overlay any requested skeletons.
//  5. Record the release and skeletons in the project marker.
func runNew(ctx context.Context, p newParams) error {
	dest, err := filepath.Abs(p.dir)
	if err != nil {
		return usageErrorf("resolving destination path %q: %v", p.dir, err)
	}

	rawRelease := strings.TrimSpace(p.release)
	if rawRelease == "" {
		rawRelease = string(p.cfg.Registry.DefaultRelease)
	}
	if rawRelease == "" {
		return usageErrorf("no release selected; pass --release or set registry.default_release in the config")
	}
	release := config.NormalizeRelease(rawRelease)
	if ok, errs := release.IsValid(); !ok {
		return usageErrorf("invalid release %q: %v", rawRelease, errors.Join(errs...))
	}

	name := strings.TrimSpace(p.name)
	if name == "" {
		name = filepath.Base(dest)
	}
	ip := strings.TrimSpace(p.ip)
	if ip == "" {
		ip = string(p.cfg.Machine.IP)
	}

	if p.interactive && (strings.TrimSpace(p.name) == "" || strings.TrimSpace(p.ip) == "") {
		name, ip, err = promptProjectDetails(ctx, name, ip)
		if err != nil {
			return fmt.Errorf("prompting for project details: %w", err)
		}
	}

	if err := validateProjectName(name); err != nil {
		return &usageError{err: err}
	}
	if ok, errs := config.MachineIP(ip).IsValid(); !ok {
		return usageErrorf("invalid machine IP %q: %v", ip, errors.Join(errs...))
	}

	managerCmd := strings.TrimSpace(p.manager)
	if managerCmd == "" {
		managerCmd = string(p.cfg.Manager.Command)
	}
	installer, err := depmgr.NewInstaller(managerCmd)
	if err != nil {
		return &usageError{err: err}
	}

	pipe := install.New(
		install.WithInstaller(installer),
		install.WithInstallTimeout(p.timeout),
		install.WithOutputSink(func(line string) { fmt.Fprintln(p.stdout, line) }),
		install.WithTempDir(p.tempDir),
	)

	fmt.Fprintf(p.stdout, "Creating project %s from kit %s...\n", CmdStyle.Render(name), release)

	formats := make([]string, len(p.cfg.Registry.Formats))
	for i, f := range p.cfg.Registry.Formats {
		formats[i] = string(f)
	}

	res := pipe.Run(ctx, install.Request{
		DestinationPath: dest,
		Version:         string(release),
		URLTemplate:     string(p.cfg.Registry.URLTemplate),
		Formats:         formats,
	})

	for _, warning := range res.CleanupWarnings {
		fmt.Fprintln(p.stderr, WarningStyle.Render("Warning: ")+warning.Error())
	}

	if !res.IsSuccess() {
		return installFailureError(res)
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render("✓")+" "+res.Message)

	if err := writeMachineConfig(p.cfg, dest, name, ip); err != nil {
		return err
	}

	applied, skelErr := applySkeletons(ctx, p, dest)

	marker := kitfile.New(string(release))
	for _, skel := range applied {
		marker.AddSkeleton(skel)
	}
	if err := marker.Save(dest); err != nil {
		if skelErr != nil {
			slog.Warn("failed to write project marker", "path", kitfile.Path(dest), "error", err)
			return skelErr
		}
		return issue.NewErrorContext().
			WithOperation("write project marker").
			WithResource(kitfile.Path(dest)).
			WithSuggestion("The project itself was installed; check permissions on the directory and re-run the command").
			Wrap(err).
			BuildError()
	}
	if skelErr != nil {
		return skelErr
	}

	fmt.Fprintln(p.stdout)
	fmt.Fprintln(p.stdout, SubtitleStyle.Render("Next steps:"))
	fmt.Fprintf(p.stdout, "  1. cd %s\n", p.dir)
	fmt.Fprintf(p.stdout, "  2. Review %s and boot the machine\n", machine.FileName)
	fmt.Fprintln(p.stdout, "  3. Run 'keel skeleton list' to see optional add-ons")

	return nil
}

// installFailureError converts a failed pipeline result into the error the
// CLI reports. The result message is the user-facing text; the stage error
// stays in the chain for verbose output and errors.Is checks.
func installFailureError(res install.Result) error {
	return issue.NewErrorContext().
		WithOperation("create project").
		WithResource(res.DestinationPath).
		WithCode(res.Code).
		Wrap(&resultError{msg: res.Message, cause: res.Err}).
		BuildError()
}

// resultError pairs the pipeline's user-facing message with the underlying
// stage error.
type resultError struct {
	msg   string
	cause error
}

func (e *resultError) Error() string { return e.msg }

func (e *resultError) Unwrap() error { return e.cause }

// validateProjectName rejects names that cannot work as a directory name or
// hostname somewhere keel projects end up.
func validateProjectName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("project name %q is empty or not a name", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("project name %q must not contain path separators", name)
	}
	if platform.IsWindowsReservedName(name) {
		return fmt.Errorf("project name %q is reserved on Windows; pick another name", name)
	}
	return nil
}

// promptProjectDetails asks for the project name and machine IP, prefilled
// with the resolved defaults so accepting them is a single Enter each.
func promptProjectDetails(ctx context.Context, name, ip string) (string, string, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Becomes the hostname and site name of the machine").
				Value(&name).
				Validate(validateProjectName),
			huh.NewInput().
				Title("Machine IP").
				Description("Private-network address for the project machine").
				Value(&ip).
				Validate(func(s string) error {
					if ok, errs := config.MachineIP(s).IsValid(); !ok {
						return errors.Join(errs...)
					}
					return nil
				}),
		).Title("Project details"),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return "", "", err
	}
	return name, ip, nil
}

// writeMachineConfig renders the machine definition into the project root.
func writeMachineConfig(cfg *config.Config, dest, name, ip string) error {
	opts, err := machineWriterOptions(cfg)
	if err != nil {
		return err
	}

	path, err := machine.NewWriter(opts...).Write(machine.Config{
		IP:          ip,
		ProjectName: name,
		RootDir:     dest,
	}, dest)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("generate machine config").
			WithResource(dest).
			WithSuggestion("The project itself was installed; fix the template and run 'keel machine " + dest + "'").
			Wrap(err).
			BuildError()
	}

	slog.Debug("machine definition written", "path", path)
	return nil
}

// applySkeletons overlays each requested skeleton onto the project, in the
// order given. It returns the names that were applied, so a mid-list
// failure still records the completed ones in the marker.
func applySkeletons(ctx context.Context, p newParams, dest string) ([]string, error) {
	if len(p.skeletons) == 0 {
		return nil, nil
	}

	manifestURL := string(p.cfg.Skeletons.ManifestURL)
	if manifestURL == "" {
		return nil, usageErrorf("skeletons are disabled: skeletons.manifest_url is empty in the config")
	}

	manifest, err := skeleton.NewClient().FetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("fetch skeleton manifest").
			WithResource(manifestURL).
			Wrap(err).
			BuildError()
	}

	inst := skeleton.NewInstaller(skeleton.WithTempDir(p.tempDir))
	applied := make([]string, 0, len(p.skeletons))
	for _, skelName := range p.skeletons {
		entry, ok := manifest.Find(skelName)
		if !ok {
			return applied, unknownSkeletonError(skelName, manifest)
		}

		files, err := inst.Install(ctx, entry, dest)
		if err != nil {
			return applied, issue.NewErrorContext().
				WithOperation("apply skeleton " + skelName).
				WithResource(dest).
				Wrap(err).
				BuildError()
		}

		fmt.Fprintf(p.stdout, "%s skeleton %s applied (%d files added)\n", SuccessStyle.Render("✓"), skelName, len(files))
		applied = append(applied, skelName)
	}

	return applied, nil
}
