package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/lfmerge/internal/lift"
	"github.com/roach88/lfmerge/internal/merge"
	"github.com/roach88/lfmerge/internal/testutil"
	"github.com/roach88/lfmerge/internal/updates"
)

// BaseFile is the name of the base document inside a scenario directory.
const BaseFile = "base.lift"

// Summary is the observable outcome of a scenario. It is what golden files
// record.
type Summary struct {
	Scenario string         `json:"scenario"`
	Error    string         `json:"error,omitempty"`
	Entries  []EntrySummary `json:"entries"`
	Files    []string       `json:"files"`
	Stats    merge.Stats    `json:"stats"`
}

// EntrySummary describes one entry of the merged base.
type EntrySummary struct {
	Label    string `json:"label"`
	GUID     string `json:"guid"`
	Deleted  bool   `json:"deleted,omitempty"`
	Children int    `json:"children"`
}

// Result holds the summary and any expectation failures.
type Result struct {
	Summary Summary
	Errors  []string
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Run executes a scenario in a scratch directory and returns the result.
//
// Execution flow:
// 1. Write the base document and the update files with increasing mtimes
// 2. Scan the directory
// 3. Merge each (project, sha) group in inventory order, stopping at the first error
// 4. Summarize the base document and directory, then check expectations
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "lfmerge-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := materialize(dir, scenario); err != nil {
		return nil, err
	}

	inv, err := updates.Scan(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}

	m := merge.New(merge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	base := filepath.Join(dir, BaseFile)
	ctx := context.Background()

	summary := Summary{Scenario: scenario.Name}
merging:
	for _, project := range inv.ProjectsToUpdate() {
		for _, sha := range inv.ShasForProject(project) {
			res, err := m.MergeUpdatesIntoFile(ctx, base, inv.FilesForProjectAndSha(project, sha))
			if err != nil {
				code := merge.CodeOf(err)
				if code == "" {
					return nil, fmt.Errorf("merge %s/%s: %w", project, sha, err)
				}
				summary.Error = string(code)
				break merging
			}
			summary.Stats = addStats(summary.Stats, res.Stats)
		}
	}

	if err := summarize(dir, &summary); err != nil {
		return nil, err
	}

	return &Result{
		Summary: summary,
		Errors:  checkExpectation(scenario.Expect, summary),
	}, nil
}

func materialize(dir string, scenario *Scenario) error {
	clock := testutil.NewDeterministicClock()

	base := make([]string, len(scenario.Base))
	for i, e := range scenario.Base {
		base[i] = renderEntry(e)
	}
	if err := writeFile(filepath.Join(dir, BaseFile), testutil.LiftDocument(base...), clock); err != nil {
		return err
	}

	for _, u := range scenario.Updates {
		name, err := u.FileName()
		if err != nil {
			return err
		}
		content := u.Raw
		if content == "" {
			entries := make([]string, len(u.Entries))
			for i, e := range u.Entries {
				entries[i] = renderEntry(e)
			}
			content = testutil.UpdateDocument(entries...)
		}
		if err := writeFile(filepath.Join(dir, name), content, clock); err != nil {
			return err
		}
	}
	return nil
}

func renderEntry(e EntrySpec) string {
	if e.Deleted != "" {
		return testutil.DeletedEntry(e.ID, e.GUID, e.Deleted)
	}
	return testutil.Entry(e.ID, e.GUID, e.Text)
}

func writeFile(path, content string, clock *testutil.DeterministicClock) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	ts := clock.Next()
	if err := os.Chtimes(path, ts, ts); err != nil {
		return fmt.Errorf("failed to stamp %s: %w", filepath.Base(path), err)
	}
	return nil
}

func summarize(dir string, s *Summary) error {
	doc, err := lift.Load(filepath.Join(dir, BaseFile))
	if err != nil {
		return fmt.Errorf("failed to reload base: %w", err)
	}
	s.Entries = make([]EntrySummary, 0, doc.Len())
	for _, e := range doc.Entries() {
		s.Entries = append(s.Entries, EntrySummary{
			Label:    e.Label(),
			GUID:     e.GUID(),
			Deleted:  e.IsDeleted(),
			Children: e.ChildCount(),
		})
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to list scenario dir: %w", err)
	}
	s.Files = make([]string, len(dirents))
	for i, de := range dirents {
		s.Files[i] = de.Name()
	}
	return nil
}

func addStats(a, b merge.Stats) merge.Stats {
	return merge.Stats{
		Files:      a.Files + b.Files,
		Entries:    a.Entries + b.Entries,
		Replaced:   a.Replaced + b.Replaced,
		Appended:   a.Appended + b.Appended,
		Tombstoned: a.Tombstoned + b.Tombstoned,
	}
}
