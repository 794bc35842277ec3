package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/journal"
	"github.com/roach88/lfmerge/internal/processor"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	Project string
}

// ProcessResult wraps processor.Report for text output.
type ProcessResult struct {
	processor.Report
}

func (r ProcessResult) WriteText(w io.Writer, verbose bool) {
	if len(r.Projects) == 0 {
		fmt.Fprintln(w, "no pending updates")
	}
	for _, p := range r.Projects {
		writeProjectReport(w, p, verbose)
	}
	for _, m := range r.Malformed {
		fmt.Fprintf(w, "malformed: %s\n", m)
	}
}

func writeProjectReport(w io.Writer, p processor.ProjectReport, verbose bool) {
	var status string
	switch {
	case p.Skipped:
		status = "skipped (on hold)"
	case p.Locked:
		status = "skipped (locked)"
	case p.ErrorCode != "":
		status = "HOLD " + p.ErrorCode
	case p.Published:
		status = "published"
	default:
		status = "unchanged"
	}
	var flags []string
	if p.Seeded {
		flags = append(flags, "seeded")
	}
	if len(flags) > 0 {
		status += " [" + strings.Join(flags, ",") + "]"
	}
	fmt.Fprintf(w, "%s: %s\n", p.Project, status)
	if p.ErrorMessage != "" {
		fmt.Fprintf(w, "  %s\n", p.ErrorMessage)
	}
	for _, g := range p.Groups {
		if g.Warning != "" {
			fmt.Fprintf(w, "  warning (%s): %s\n", g.Sha, g.Warning)
		}
	}
	if verbose {
		for _, g := range p.Groups {
			fmt.Fprintf(w, "  %s: %d file(s), %d replaced, %d appended, %d tombstoned (run %s)\n",
				g.Sha, g.Files, g.Stats.Replaced, g.Stats.Appended, g.Stats.Tombstoned, g.RunID)
		}
	}
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Merge all pending updates on the server",
		Long: `Merge every pending update in MergeWork/LiftUpdates into the projects'
merge-work LIFT files and publish the results to WebWork.

A project whose merge fails is put on hold and skipped until released.

Examples:
  lfmerge --root /var/lib/languageforge process
  lfmerge --root /var/lib/languageforge process --project ProjA`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", "", "only process this project")

	return cmd
}

func runProcess(opts *ProcessOptions, cmd *cobra.Command) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	p, j, err := opts.processor()
	if err != nil {
		return out.Fail(err, nil)
	}
	defer j.Close()

	var report processor.Report
	if opts.Project != "" {
		pr, err := p.ProcessProject(cmd.Context(), opts.Project)
		report.Projects = []processor.ProjectReport{pr}
		if err != nil && pr.ErrorCode == "" {
			return out.Fail(WrapExitError(ExitFailure, "processing failed", err), nil)
		}
	} else {
		report, err = p.ProcessAll(cmd.Context())
		if err != nil {
			return out.Fail(WrapExitError(ExitFailure, "processing failed", err), report)
		}
	}

	if err := out.Success(ProcessResult{report}); err != nil {
		return err
	}
	if failed := report.Failed(); len(failed) > 0 {
		return Reported(NewExitError(ExitFailure, fmt.Sprintf("projects put on hold: %s", strings.Join(failed, ", "))))
	}
	return nil
}

// processor builds a Processor over the configured server layout. The
// caller closes the returned journal.
func (o *RootOptions) processor() (*processor.Processor, *journal.Journal, error) {
	layout, err := o.layout()
	if err != nil {
		return nil, nil, err
	}
	if err := layout.Ensure(); err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to prepare server folders", err)
	}
	j, err := o.openJournal()
	if err != nil {
		return nil, nil, err
	}
	p := processor.New(layout, j,
		processor.WithLogger(o.logger),
		processor.WithMerger(o.merger()),
		processor.WithLockTimeout(o.settings.LockTimeout),
	)
	return p, j, nil
}

