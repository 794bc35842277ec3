package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/merge"
	"github.com/roach88/lfmerge/internal/updates"
)

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	Base    string
	Dir     string
	Project string
	Sha     string
}

// MergeResult wraps merge.Result for text output.
type MergeResult struct {
	*merge.Result
}

func (r MergeResult) WriteText(w io.Writer, verbose bool) {
	if len(r.Applied) == 0 {
		fmt.Fprintf(w, "%s: no updates to merge\n", r.BasePath)
		return
	}
	s := r.Stats
	fmt.Fprintf(w, "%s: merged %d file(s), %d entries (%d replaced, %d appended, %d tombstoned)\n",
		r.BasePath, s.Files, s.Entries, s.Replaced, s.Appended, s.Tombstoned)
	if verbose {
		for _, a := range r.Applied {
			fmt.Fprintf(w, "  %s (%d entries)\n", a.Name, a.Entries)
		}
		fmt.Fprintf(w, "backup: %s\n", r.BackupPath)
	}
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge --base <file> [update...]",
		Short: "Merge update files into a LIFT file",
		Long: `Merge update files into a base LIFT file.

Files given as arguments are applied in argument order. With --dir, --project
and --sha the matching group is taken from the folder's inventory and applied
oldest first.

On success the previous base is kept as <base>.bak and the applied update
files are deleted. On failure nothing on disk changes.

Examples:
  lfmerge merge --base ProjA.lift ProjA_sha1_001.lift.update
  lfmerge merge --base ProjA.lift --dir ./LiftUpdates --project ProjA --sha sha1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Base, "base", "", "path to the base LIFT file (required)")
	_ = cmd.MarkFlagRequired("base")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "updates folder to take a project/sha group from")
	cmd.Flags().StringVar(&opts.Project, "project", "", "project name (with --dir)")
	cmd.Flags().StringVar(&opts.Sha, "sha", "", "sha (with --dir)")

	return cmd
}

func runMerge(opts *MergeOptions, cmd *cobra.Command, args []string) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	files, err := mergeInputs(opts, args)
	if err != nil {
		return out.Fail(err, nil)
	}
	out.VerboseLog("merging %d file(s) into %s", len(files), opts.Base)

	res, err := opts.merger().MergeUpdatesIntoFile(cmd.Context(), opts.Base, files)
	if err != nil {
		return out.Fail(WrapExitError(ExitFailure, "merge failed", err), nil)
	}
	return out.Success(MergeResult{res})
}

// mergeInputs resolves the update files from arguments or from an inventory
// group.
func mergeInputs(opts *MergeOptions, args []string) ([]updates.UpdateFile, error) {
	if opts.Dir == "" {
		if opts.Project != "" || opts.Sha != "" {
			return nil, NewExitError(ExitCommandError, "--project and --sha require --dir")
		}
		return statFiles(args)
	}

	if len(args) > 0 {
		return nil, NewExitError(ExitCommandError, "update arguments cannot be combined with --dir")
	}
	if opts.Project == "" || opts.Sha == "" {
		return nil, NewExitError(ExitCommandError, "--dir requires --project and --sha")
	}
	inv, err := updates.Scan(opts.Dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to scan updates", err)
	}
	return inv.FilesForProjectAndSha(opts.Project, opts.Sha), nil
}

// statFiles captures the given paths in argument order.
func statFiles(paths []string) ([]updates.UpdateFile, error) {
	files := make([]updates.UpdateFile, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid update path", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "update file not found", err)
		}
		if !info.Mode().IsRegular() {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("not a regular file: %s", abs))
		}
		files = append(files, updates.UpdateFile{
			Path:    abs,
			Name:    info.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return files, nil
}
