package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/journal"
)

// StatusResult lists project processing states.
type StatusResult struct {
	Projects []journal.ProjectState `json:"projects"`
}

func (r StatusResult) WriteText(w io.Writer, verbose bool) {
	if len(r.Projects) == 0 {
		fmt.Fprintln(w, "no projects recorded")
		return
	}
	for _, p := range r.Projects {
		line := fmt.Sprintf("%s: %s", p.Project, p.State)
		if p.TotalSteps > 0 {
			line += fmt.Sprintf(" (%d/%d)", p.CurrentStep, p.TotalSteps)
		}
		if p.Retries > 0 {
			line += fmt.Sprintf(" retries=%d", p.Retries)
		}
		fmt.Fprintln(w, line)
		if p.ErrorCode != "" {
			fmt.Fprintf(w, "  %s: %s\n", p.ErrorCode, p.ErrorMessage)
		}
		if verbose && !p.UpdatedAt.IsZero() {
			fmt.Fprintf(w, "  updated %s\n", p.UpdatedAt.Format(time.RFC3339))
		}
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [project]",
		Short: "Show project processing state",
		Long: `Show the processing state recorded for every project, or for one.

A project that was never processed is reported as IDLE.

Examples:
  lfmerge --root /var/lib/languageforge status
  lfmerge --root /var/lib/languageforge status ProjA --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command, args []string) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	j, err := opts.openJournal()
	if err != nil {
		return out.Fail(err, nil)
	}
	defer j.Close()

	var res StatusResult
	if len(args) == 1 {
		st, err := j.GetState(cmd.Context(), args[0])
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to read state", err), nil)
		}
		res.Projects = []journal.ProjectState{st}
	} else {
		res.Projects, err = j.ListStates(cmd.Context())
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to list states", err), nil)
		}
	}
	return out.Success(res)
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release <project>",
		Short: "Take a project off hold",
		Long: `Return a held project to IDLE so the next processing pass retries it.

Examples:
  lfmerge --root /var/lib/languageforge release ProjA`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runRelease(opts *RootOptions, cmd *cobra.Command, project string) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	j, err := opts.openJournal()
	if err != nil {
		return out.Fail(err, nil)
	}
	defer j.Close()

	if err := j.Release(cmd.Context(), project); err != nil {
		code := ExitFailure
		if errors.Is(err, journal.ErrNotFound) || errors.Is(err, journal.ErrNotHeld) {
			code = ExitCommandError
		}
		return out.Fail(WrapExitError(code, "failed to release project", err), nil)
	}

	st, err := j.GetState(cmd.Context(), project)
	if err != nil {
		return out.Fail(WrapExitError(ExitFailure, "failed to read state", err), nil)
	}
	return out.Success(StatusResult{Projects: []journal.ProjectState{st}})
}
