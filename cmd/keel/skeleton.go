// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"keel-cli/internal/config"
	"keel-cli/internal/issue"
	"keel-cli/internal/skeleton"
	"keel-cli/pkg/kitfile"

	"github.com/spf13/cobra"
)

// newSkeletonCommand creates the `keel skeleton` command tree.
func newSkeletonCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skeleton",
		Short: "List and apply project skeletons",
		Long: `List and apply project skeletons.

Skeletons are optional add-ons published alongside the starter kits. They
overlay extra files onto an existing keel project without touching any
file the project already has.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSkeletonListCommand(app))
	cmd.AddCommand(newSkeletonAddCommand(app))

	return cmd
}

// skeletonListParams bundles the inputs of runSkeletonList.
type skeletonListParams struct {
	stdout      io.Writer
	manifestURL string
}

// newSkeletonListCommand creates `keel skeleton list`.
func newSkeletonListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the skeletons published in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}

			p := skeletonListParams{
				stdout:      cmd.OutOrStdout(),
				manifestURL: string(cfg.Skeletons.ManifestURL),
			}

			if err := runSkeletonList(cmd.Context(), p); err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}
}

// runSkeletonList fetches the manifest and prints one line per skeleton.
func runSkeletonList(ctx context.Context, p skeletonListParams) error {
	if p.manifestURL == "" {
		return usageErrorf("skeletons are disabled: skeletons.manifest_url is empty in the config")
	}

	manifest, err := skeleton.NewClient().FetchManifest(ctx, p.manifestURL)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("fetch skeleton manifest").
			WithResource(p.manifestURL).
			Wrap(err).
			BuildError()
	}

	if len(manifest.Skeletons) == 0 {
		fmt.Fprintln(p.stdout, SubtitleStyle.Render("(no skeletons published)"))
		return nil
	}

	fmt.Fprintln(p.stdout, TitleStyle.Render("Available skeletons"))
	fmt.Fprintln(p.stdout)

	width := 0
	for _, entry := range manifest.Skeletons {
		if len(entry.Name) > width {
			width = len(entry.Name)
		}
	}
	for _, entry := range manifest.Skeletons {
		fmt.Fprintf(p.stdout, "  %s  %s\n", CmdStyle.Render(fmt.Sprintf("%-*s", width, entry.Name)), entry.Description)
	}

	fmt.Fprintln(p.stdout)
	fmt.Fprintln(p.stdout, SubtitleStyle.Render("Run 'keel skeleton add <name>' inside a project to apply one."))

	return nil
}

// skeletonAddParams bundles the inputs of runSkeletonAdd.
type skeletonAddParams struct {
	stdout io.Writer
	cfg    *config.Config

	name string // skeleton to apply
	dir  string // project directory, "." by default

	// tempDir overrides the artifact directory; tests point it at t.TempDir().
	tempDir string
}

// newSkeletonAddCommand creates `keel skeleton add`.
func newSkeletonAddCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> [dir]",
		Short: "Overlay a skeleton onto an existing project",
		Long: `Overlay a skeleton onto an existing keel project.

The directory defaults to the current one and must contain the
` + kitfile.FileName + ` marker written by 'keel new'. Files the project
already has are never overwritten; the skeleton only fills gaps.`,
		Example: `  # Apply the 'auth' skeleton to the current project
  keel skeleton add auth

  # Apply it to a project elsewhere
  keel skeleton add auth ./shop`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}

			dir := "."
			if len(args) > 1 {
				dir = args[1]
			}

			p := skeletonAddParams{
				stdout: cmd.OutOrStdout(),
				cfg:    cfg,
				name:   args[0],
				dir:    dir,
			}

			if err := runSkeletonAdd(cmd.Context(), p); err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}
}

// runSkeletonAdd applies one skeleton to an existing project and records it
// in the project marker.
func runSkeletonAdd(ctx context.Context, p skeletonAddParams) error {
	dir, err := filepath.Abs(p.dir)
	if err != nil {
		return usageErrorf("resolving project directory %q: %v", p.dir, err)
	}

	marker, err := kitfile.Load(dir)
	if err != nil {
		if errors.Is(err, kitfile.ErrNotFound) {
			return issue.NewErrorContext().
				WithOperation("open project").
				WithResource(dir).
				WithCode(issue.ProjectMarkerMissingId).
				Wrap(err).
				BuildError()
		}
		return issue.NewErrorContext().
			WithOperation("read project marker").
			WithResource(kitfile.Path(dir)).
			Wrap(err).
			BuildError()
	}

	manifestURL := string(p.cfg.Skeletons.ManifestURL)
	if manifestURL == "" {
		return usageErrorf("skeletons are disabled: skeletons.manifest_url is empty in the config")
	}

	manifest, err := skeleton.NewClient().FetchManifest(ctx, manifestURL)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("fetch skeleton manifest").
			WithResource(manifestURL).
			Wrap(err).
			BuildError()
	}

	entry, ok := manifest.Find(p.name)
	if !ok {
		return unknownSkeletonError(p.name, manifest)
	}

	files, err := skeleton.NewInstaller(skeleton.WithTempDir(p.tempDir)).Install(ctx, entry, dir)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("apply skeleton " + p.name).
			WithResource(dir).
			Wrap(err).
			BuildError()
	}

	if marker.AddSkeleton(p.name) {
		if err := marker.Save(dir); err != nil {
			return issue.NewErrorContext().
				WithOperation("update project marker").
				WithResource(kitfile.Path(dir)).
				Wrap(err).
				BuildError()
		}
	}

	fmt.Fprintf(p.stdout, "%s skeleton %s applied (%d files added)\n", SuccessStyle.Render("✓"), p.name, len(files))

	return nil
}

// unknownSkeletonError builds the not-in-manifest error, with the available
// names as a suggestion when the manifest has any.
func unknownSkeletonError(name string, manifest *skeleton.Manifest) error {
	builder := issue.NewErrorContext().
		WithOperation("resolve skeleton").
		WithResource(name).
		WithCode(issue.SkeletonUnknownId).
		Wrap(fmt.Errorf("skeleton %q is not in the registry manifest", name))

	if names := manifest.Names(); len(names) > 0 {
		builder = builder.WithSuggestion("Available skeletons: " + strings.Join(names, ", "))
	}

	return builder.BuildError()
}
