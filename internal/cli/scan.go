package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/updates"
)

// ScanResult is the inventory of an updates folder.
type ScanResult struct {
	Dir       string           `json:"dir"`
	Total     int              `json:"total"`
	Projects  []ProjectUpdates `json:"projects"`
	Malformed []string         `json:"malformed"`
}

// ProjectUpdates lists one project's pending updates by sha.
type ProjectUpdates struct {
	Project string       `json:"project"`
	Shas    []ShaUpdates `json:"shas"`
}

// ShaUpdates lists the files for one sha in apply order.
type ShaUpdates struct {
	Sha   string   `json:"sha"`
	Files []string `json:"files"`
}

func (r ScanResult) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "%s: %d update file(s)\n", r.Dir, r.Total)
	for _, p := range r.Projects {
		fmt.Fprintf(w, "  %s\n", p.Project)
		for _, s := range p.Shas {
			fmt.Fprintf(w, "    %s (%d)\n", s.Sha, len(s.Files))
			if verbose {
				for _, f := range s.Files {
					fmt.Fprintf(w, "      %s\n", f)
				}
			}
		}
	}
	if len(r.Malformed) > 0 {
		fmt.Fprintf(w, "malformed (%d):\n", len(r.Malformed))
		for _, m := range r.Malformed {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "List pending update files by project and sha",
		Long: `List the .lift.update files in a folder, grouped by project and sha.

Without a folder argument the server's MergeWork/LiftUpdates folder is used.

Examples:
  lfmerge scan ./LiftUpdates
  lfmerge --root /var/lib/languageforge scan --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runScan(opts *RootOptions, cmd *cobra.Command, args []string) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	var dir string
	if len(args) == 1 {
		dir = args[0]
	} else {
		layout, err := opts.layout()
		if err != nil {
			return out.Fail(err, nil)
		}
		dir = layout.LiftUpdatesPath()
	}

	inv, err := updates.Scan(dir)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to scan updates", err), nil)
	}
	return out.Success(inventoryResult(inv))
}

func inventoryResult(inv *updates.Inventory) ScanResult {
	res := ScanResult{
		Dir:       inv.Dir(),
		Total:     len(inv.AllUpdateFilenames()),
		Projects:  []ProjectUpdates{},
		Malformed: inv.MalformedFilenames(),
	}
	for _, p := range inv.ProjectsToUpdate() {
		pu := ProjectUpdates{Project: p, Shas: []ShaUpdates{}}
		for _, s := range inv.ShasForProject(p) {
			su := ShaUpdates{Sha: s, Files: []string{}}
			for _, f := range inv.FilesForProjectAndSha(p, s) {
				su.Files = append(su.Files, f.Name)
			}
			pu.Shas = append(pu.Shas, su)
		}
		res.Projects = append(res.Projects, pu)
	}
	return res
}
