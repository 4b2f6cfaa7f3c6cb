// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"keel-cli/internal/config"
	"keel-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type (
	// ConfigProvider loads configuration using explicit options.
	// This abstraction enables testing with custom config sources or mock
	// implementations.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// App wires the CLI's shared dependencies. All Cobra command handlers
	// receive an App reference; tests build one around buffers and a stub
	// provider instead of the process-global defaults.
	App struct {
		Config ConfigProvider

		stdout io.Writer
		stderr io.Writer

		// verbose and cfgFile back the persistent --verbose/--config flags.
		verbose bool
		cfgFile string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}

	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// newRootCommand builds the keel command tree.
func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "keel",
		Short: "Project scaffolding for keel starter kits",
		Long: TitleStyle.Render("keel") + SubtitleStyle.Render(" - project scaffolding for keel starter kits") + `

keel turns a published starter kit into a project that is ready to hack
on: it downloads the kit archive for a release, unpacks it, installs the
kit's dependencies, and writes the machine definition the kit expects.

` + SubtitleStyle.Render("Quick start:") + `
  1. keel new myproject --release v2.0
  2. cd myproject
  3. Boot the machine defined in machine.yaml

` + SubtitleStyle.Render("Examples:") + `
  keel new shop --release v2.1.0      Create a project from the v2.1.0 kit
  keel skeleton list                  Show the published skeletons
  keel skeleton add auth              Overlay the 'auth' skeleton
  keel machine . --ip 192.168.56.60   Regenerate the machine config
  keel init                           Write a commented default config
  keel explain KEEL-E007              Explain a failure code`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			app.setupLogging(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&app.cfgFile, "config", "", "config file (default is config.cue in the per-OS keel config dir)")

	root.AddCommand(newNewCommand(app))
	root.AddCommand(newSkeletonCommand(app))
	root.AddCommand(newMachineCommand(app))
	root.AddCommand(newInitCommand())
	root.AddCommand(newExplainCommand(app))

	return root
}

// setupLogging installs a styled handler as the slog default. Debug level
// under --verbose, info otherwise.
func (a *App) setupLogging(stderr io.Writer) {
	opts := log.Options{ReportTimestamp: false}
	if a.verbose {
		opts.Level = log.DebugLevel
	}

	slog.SetDefault(slog.New(log.NewWithOptions(stderr, opts)))
}

// loadConfig resolves configuration for one command run. An explicit
// --config path must load cleanly; the default path falls back to built-in
// defaults with a warning so a broken config file never bricks the CLI.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.cfgFile})
	if err == nil {
		if path != "" {
			slog.Debug("configuration loaded", "path", path)
		}
		return cfg, nil
	}

	if a.cfgFile != "" {
		return nil, err
	}

	fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
	return config.DefaultConfig(), nil
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// printCommandError writes the error line and, when the error carries a
// catalog code, the rendered remediation notes beneath it.
func printCommandError(stderr io.Writer, err error, cfg *config.Config, verbose bool) {
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Code == 0 {
		return
	}

	entry := issue.Get(ae.Code)
	if entry == nil {
		return
	}

	rendered, renderErr := entry.Render(renderStyle(cfg))
	if renderErr != nil {
		slog.Warn("failed to render remediation notes", "code", ae.Code.Code(), "error", renderErr)
		return
	}
	fmt.Fprint(stderr, rendered)
}

// renderStyle picks the glamour style path from the configured UI color
// scheme.
func renderStyle(cfg *config.Config) string {
	if cfg == nil {
		return "auto"
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// getVersionString returns a formatted version string for display.
// Priority order: ldflags-injected version, module build info for
// go-install binaries, then a plain source-build marker.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return "dev (built from source)"
}

// Execute builds the production App and runs the CLI. It is called by
// main.main() and exits the process on failure.
func Execute() {
	app := NewApp(Dependencies{})

	// fang.Execute provides styled help/errors; the version must go through
	// fang.WithVersion since fang overrides rootCmd.Version.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
