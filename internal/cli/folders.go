package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lfmerge/internal/updates"
)

// FolderProject is one project folder with its sha folders.
type FolderProject struct {
	updates.ProjectFolder
	Updates []FolderSha `json:"updates"`
}

// FolderSha is one sha folder with its files, oldest first.
type FolderSha struct {
	updates.UpdateFolder
	Files []string `json:"files"`
}

// FoldersResult lists a folder-per-project tree.
type FoldersResult struct {
	Root     string          `json:"root"`
	Projects []FolderProject `json:"projects"`
}

func (r FoldersResult) WriteText(w io.Writer, verbose bool) {
	if len(r.Projects) == 0 {
		fmt.Fprintf(w, "%s: no project folders\n", r.Root)
		return
	}
	for _, p := range r.Projects {
		fmt.Fprintln(w, p.Name)
		for _, u := range p.Updates {
			fmt.Fprintf(w, "  %s (%d)\n", u.Sha, len(u.Files))
			if verbose {
				for _, f := range u.Files {
					fmt.Fprintf(w, "    %s\n", f)
				}
			}
		}
	}
}

// NewFoldersCommand creates the folders command.
func NewFoldersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders <root>",
		Short: "List a folder-per-project update tree",
		Long: `List an older update layout where each project has its own folder
holding one folder per sha. Projects, shas and files are listed oldest first.

Examples:
  lfmerge folders ./updates --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFolders(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runFolders(opts *RootOptions, cmd *cobra.Command, root string) error {
	if err := opts.load(cmd); err != nil {
		return err
	}
	out := opts.formatter(cmd)

	projects, err := updates.FindProjectFolders(root)
	if err != nil {
		return out.Fail(WrapExitError(ExitCommandError, "failed to list project folders", err), nil)
	}

	res := FoldersResult{Root: root, Projects: []FolderProject{}}
	for _, p := range projects {
		fp := FolderProject{ProjectFolder: p, Updates: []FolderSha{}}
		shaDirs, err := p.UpdateFolders()
		if err != nil {
			return out.Fail(WrapExitError(ExitCommandError, "failed to list update folders", err), nil)
		}
		for _, u := range shaDirs {
			files, err := u.Files()
			if err != nil {
				return out.Fail(WrapExitError(ExitCommandError, "failed to list update files", err), nil)
			}
			fs := FolderSha{UpdateFolder: u, Files: []string{}}
			for _, f := range files {
				fs.Files = append(fs.Files, f.Name)
			}
			fp.Updates = append(fp.Updates, fs)
		}
		res.Projects = append(res.Projects, fp)
	}
	return out.Success(res)
}
