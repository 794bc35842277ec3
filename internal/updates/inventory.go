package updates

import (
	"sort"
)

// Inventory is an immutable snapshot of the update files in one directory.
type Inventory struct {
	dir       string
	files     []UpdateFile
	decoded   []UpdateInfo
	malformed []string
	groups    map[string]map[string][]UpdateFile
}

// Scan lists dir and classifies every update file in it.
//
// Malformed names never cause an error; they are reported through
// MalformedFilenames.
func Scan(dir string) (*Inventory, error) {
	files, err := ListPendingUpdates(dir)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{
		dir:       dir,
		files:     files,
		decoded:   make([]UpdateInfo, 0, len(files)),
		malformed: []string{},
		groups:    make(map[string]map[string][]UpdateFile),
	}

	for _, f := range files {
		info, err := ParseFilename(f.Name)
		if err != nil {
			inv.malformed = append(inv.malformed, f.Path)
			continue
		}
		info.File = f
		inv.decoded = append(inv.decoded, info)

		shas, ok := inv.groups[info.Project]
		if !ok {
			shas = make(map[string][]UpdateFile)
			inv.groups[info.Project] = shas
		}
		shas[info.Sha] = append(shas[info.Sha], f)
	}

	for _, shas := range inv.groups {
		for _, group := range shas {
			SortOldestFirst(group)
		}
	}
	return inv, nil
}

// Rescan takes a fresh snapshot of the same directory.
func (inv *Inventory) Rescan() (*Inventory, error) {
	return Scan(inv.dir)
}

// Dir returns the scanned directory as given to Scan.
func (inv *Inventory) Dir() string {
	return inv.dir
}

// AllUpdateFilenames returns every update file name, alphabetically.
func (inv *Inventory) AllUpdateFilenames() []string {
	names := make([]string, len(inv.files))
	for i, f := range inv.files {
		names[i] = f.Name
	}
	return names
}

// DecodedUpdates returns the well-formed updates in discovery order.
func (inv *Inventory) DecodedUpdates() []UpdateInfo {
	out := make([]UpdateInfo, len(inv.decoded))
	copy(out, inv.decoded)
	return out
}

// MalformedFilenames returns the full paths of files whose names do not
// decode.
func (inv *Inventory) MalformedFilenames() []string {
	out := make([]string, len(inv.malformed))
	copy(out, inv.malformed)
	return out
}

// HasPendingUpdates reports whether any update file, well-formed or not, was
// found.
func (inv *Inventory) HasPendingUpdates() bool {
	return len(inv.files) > 0
}

// ProjectsToUpdate returns the distinct projects with well-formed updates,
// sorted.
func (inv *Inventory) ProjectsToUpdate() []string {
	projects := make([]string, 0, len(inv.groups))
	for p := range inv.groups {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	return projects
}

// ShasForProject returns the distinct shas seen for project, sorted.
func (inv *Inventory) ShasForProject(project string) []string {
	shas := make([]string, 0, len(inv.groups[project]))
	for s := range inv.groups[project] {
		shas = append(shas, s)
	}
	sort.Strings(shas)
	return shas
}

// FilesForProjectAndSha returns the updates for one (project, sha) pair,
// oldest first by captured modification time, ties broken by name.
func (inv *Inventory) FilesForProjectAndSha(project, sha string) []UpdateFile {
	group := inv.groups[project][sha]
	out := make([]UpdateFile, len(group))
	copy(out, group)
	return out
}
