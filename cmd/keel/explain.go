// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"keel-cli/internal/issue"

	"github.com/spf13/cobra"
)

// explainParams bundles the inputs of runExplain.
type explainParams struct {
	stdout io.Writer
	style  string // glamour style path for markdown rendering
	code   string // failure code argument, empty lists all codes
}

// newExplainCommand creates `keel explain`, the offline companion to the
// failure codes keel prints when an install goes wrong.
func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Explain a keel failure code",
		Long: `Explain a keel failure code, e.g. KEEL-E002.

Failure codes appear in error output whenever an install attempt fails.
Without an argument, every known code is listed.`,
		Example: `  # List every failure code
  keel explain

  # Show the remediation notes for one code
  keel explain KEEL-E007

  # Shorthand forms work too
  keel explain E007
  keel explain 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}

			p := explainParams{
				stdout: cmd.OutOrStdout(),
				style:  renderStyle(cfg),
			}
			if len(args) > 0 {
				p.code = args[0]
			}

			if err := runExplain(p); err != nil {
				printCommandError(cmd.ErrOrStderr(), err, cfg, app.verbose)
				return &ExitError{Code: classifyExitCode(err), Err: err}
			}
			return nil
		},
	}
}

// runExplain prints the catalog entry for one code, or the full code list
// when no code was given.
func runExplain(p explainParams) error {
	if p.code == "" {
		return listIssues(p.stdout)
	}

	id, ok := issue.ParseCode(p.code)
	if !ok {
		return usageErrorf("unknown failure code %q; run 'keel explain' for the list", p.code)
	}

	rendered, err := issue.Get(id).Render(p.style)
	if err != nil {
		return fmt.Errorf("rendering notes for %s: %w", id.Code(), err)
	}

	fmt.Fprint(p.stdout, rendered)
	return nil
}

// listIssues prints one line per catalog entry: the stable code and the
// title of its remediation note.
func listIssues(stdout io.Writer) error {
	fmt.Fprintln(stdout, TitleStyle.Render("Failure codes"))
	fmt.Fprintln(stdout)

	for _, entry := range issue.Values() {
		fmt.Fprintf(stdout, "  %s  %s\n", CmdStyle.Render(entry.Id().Code()), issueTitle(entry))
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, SubtitleStyle.Render("Run 'keel explain <code>' for remediation notes."))

	return nil
}

// issueTitle extracts the heading of the entry's remediation markdown.
func issueTitle(entry *issue.Issue) string {
	for _, line := range strings.Split(string(entry.MarkdownMsg()), "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSuffix(strings.TrimSpace(title), "!")
		}
	}
	return ""
}
