package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Folder names under the server root.
const (
	WebWorkFolder     = "WebWork"
	MergeWorkFolder   = "MergeWork"
	MasterReposFolder = "MasterRepos"
	LiftUpdatesFolder = "LiftUpdates" // under MergeWork
	ProjectsFolder    = "Projects"    // under MergeWork

	// LiftExtension is the extension of a project's LIFT file.
	LiftExtension = ".lift"

	// JournalFile is the default journal name inside MergeWork.
	JournalFile = "lfmerge.db"
)

// ErrRelativeRoot is returned when a server root is not an absolute path.
var ErrRelativeRoot = errors.New("server root must be an absolute path")

// Layout resolves paths in a server folder:
//
//	<root>/WebWork/<project>/<project>.lift
//	<root>/MergeWork/LiftUpdates/<project>_<sha>_<suffix>.lift.update
//	<root>/MergeWork/Projects/<project>/<project>.lift
//	<root>/MasterRepos/<project>/<project>.lift
type Layout struct {
	root string
}

// NewLayout returns the layout rooted at root.
func NewLayout(root string) (Layout, error) {
	if root == "" || !filepath.IsAbs(root) {
		return Layout{}, fmt.Errorf("%w: %q", ErrRelativeRoot, root)
	}
	return Layout{root: filepath.Clean(root)}, nil
}

func (l Layout) Root() string { return l.root }

func (l Layout) WebWorkPath() string     { return filepath.Join(l.root, WebWorkFolder) }
func (l Layout) MergeWorkPath() string   { return filepath.Join(l.root, MergeWorkFolder) }
func (l Layout) MasterReposPath() string { return filepath.Join(l.root, MasterReposFolder) }

// MergeWorkProjects holds one working copy per project.
func (l Layout) MergeWorkProjects() string {
	return filepath.Join(l.MergeWorkPath(), ProjectsFolder)
}

// LiftUpdatesPath is where clients drop .lift.update files.
func (l Layout) LiftUpdatesPath() string {
	return filepath.Join(l.MergeWorkPath(), LiftUpdatesFolder)
}

// JournalPath is the default journal location.
func (l Layout) JournalPath() string {
	return filepath.Join(l.MergeWorkPath(), JournalFile)
}

func (l Layout) ProjWebPath(project string) string {
	return filepath.Join(l.WebWorkPath(), project)
}

func (l Layout) ProjMergePath(project string) string {
	return filepath.Join(l.MergeWorkProjects(), project)
}

func (l Layout) ProjMasterRepoPath(project string) string {
	return filepath.Join(l.MasterReposPath(), project)
}

func (l Layout) LiftFileWebWorkPath(project string) string {
	return filepath.Join(l.ProjWebPath(project), project+LiftExtension)
}

func (l Layout) LiftFileMergePath(project string) string {
	return filepath.Join(l.ProjMergePath(project), project+LiftExtension)
}

func (l Layout) LiftFileMasterRepoPath(project string) string {
	return filepath.Join(l.ProjMasterRepoPath(project), project+LiftExtension)
}

// Ensure creates the top-level folder tree. Existing folders are left alone.
func (l Layout) Ensure() error {
	for _, dir := range []string{
		l.WebWorkPath(),
		l.MasterReposPath(),
		l.MergeWorkProjects(),
		l.LiftUpdatesPath(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// CreateWebWorkProject creates and returns WebWork/<project>.
func (l Layout) CreateWebWorkProject(project string) (string, error) {
	return mkdir(l.ProjWebPath(project))
}

// CreateMergeWorkProject creates and returns MergeWork/Projects/<project>.
func (l Layout) CreateMergeWorkProject(project string) (string, error) {
	return mkdir(l.ProjMergePath(project))
}

// CreateMasterReposProject creates and returns MasterRepos/<project>.
func (l Layout) CreateMasterReposProject(project string) (string, error) {
	return mkdir(l.ProjMasterRepoPath(project))
}

func mkdir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// Layout returns the server layout for s. ServerRoot must be set.
func (s Settings) Layout() (Layout, error) {
	return NewLayout(s.ServerRoot)
}

// Journal returns the configured journal path, falling back to the
// layout default.
func (s Settings) Journal() (string, error) {
	if s.JournalPath != "" {
		return s.JournalPath, nil
	}
	l, err := s.Layout()
	if err != nil {
		return "", err
	}
	return l.JournalPath(), nil
}
