package updates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ProjectFolder is a per-project directory in the folder-based layout.
type ProjectFolder struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// UpdateFolder is a per-sha directory inside a ProjectFolder.
type UpdateFolder struct {
	Sha     string    `json:"sha"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

type dirInfo struct {
	name    string
	path    string
	modTime time.Time
}

// FindProjectFolders returns one ProjectFolder per immediate subdirectory of
// root, oldest first by modification time, ties broken by name.
func FindProjectFolders(root string) ([]ProjectFolder, error) {
	dirs, err := subdirsOldestFirst(root)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectFolder, len(dirs))
	for i, d := range dirs {
		out[i] = ProjectFolder{Name: d.name, Path: d.path, ModTime: d.modTime}
	}
	return out, nil
}

// UpdateFolders lists the sha subdirectories of the project, oldest first.
func (p ProjectFolder) UpdateFolders() ([]UpdateFolder, error) {
	dirs, err := subdirsOldestFirst(p.Path)
	if err != nil {
		return nil, err
	}
	out := make([]UpdateFolder, len(dirs))
	for i, d := range dirs {
		out[i] = UpdateFolder{Sha: d.name, Path: d.path, ModTime: d.modTime}
	}
	return out, nil
}

// Files lists the regular files in the folder, oldest first.
func (u UpdateFolder) Files() ([]UpdateFile, error) {
	dirents, err := os.ReadDir(u.Path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", u.Path, err)
	}
	files := make([]UpdateFile, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, UpdateFile{
			Path:    filepath.Join(u.Path, de.Name()),
			Name:    de.Name(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	SortOldestFirst(files)
	return files, nil
}

func subdirsOldestFirst(root string) ([]dirInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", abs, err)
	}

	dirs := make([]dirInfo, 0, len(dirents))
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		dirs = append(dirs, dirInfo{
			name:    de.Name(),
			path:    filepath.Join(abs, de.Name()),
			modTime: info.ModTime(),
		})
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		return olderFirst(dirs[i].modTime, dirs[i].name, dirs[j].modTime, dirs[j].name)
	})
	return dirs, nil
}
