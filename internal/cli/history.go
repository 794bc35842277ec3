package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/journal"
)

// HistoryResult lists journal runs for a project.
type HistoryResult struct {
	Project string        `json:"project"`
	Runs    []journal.Run `json:"runs"`
}

func (r HistoryResult) WriteText(w io.Writer, verbose bool) {
	if len(r.Runs) == 0 {
		fmt.Fprintf(w, "%s: no merge runs\n", r.Project)
		return
	}
	for _, run := range r.Runs {
		fmt.Fprintf(w, "#%d %s %s sha=%s files=%d entries=%d\n",
			run.Seq, run.FinishedAt.Format(time.RFC3339), run.Status, run.Sha, run.Files, run.Entries)
		if run.ErrorCode != "" {
			fmt.Fprintf(w, "  %s: %s\n", run.ErrorCode, run.ErrorMessage)
		}
		if verbose {
			for _, a := range run.Applied {
				fmt.Fprintf(w, "  %d. %s (%d entries)\n", a.Ordinal, a.Name, a.Entries)
			}
		}
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <project>",
		Short: "Show merge runs for a project",
		Long: `Show every merge run recorded for a project, oldest first, with the
update files each run consumed.

Examples:
  lfmerge --root /var/lib/languageforge history ProjA --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command, project string) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	j, err := opts.openJournal()
	if err != nil {
		return out.Fail(err, nil)
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context(), project)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to list runs", err), nil)
	}
	return out.Success(HistoryResult{Project: project, Runs: runs})
}
