package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

// GUIDs used across merge fixtures.
const (
	GUIDOne   = "0ae89610-fc01-4bfd-a0d6-1125b7281dd1"
	GUIDTwo   = "0ae89610-fc01-4bfd-a0d6-1125b7281d22"
	GUIDThree = "80677C8E-9641-486e-ADA1-9D20ED2F5B69"
	GUIDFour  = "6216074D-AD4F-4dae-BE5F-8E5E748EF68A"
	GUIDFive  = "6D2EC48D-C3B5-4812-B130-5551DC4F13B6"
	GUIDSix   = "107136D0-5108-4b6b-9846-8590F28937E8"
)

const liftOpen = `<?xml version="1.0" encoding="UTF-8"?>
<lift producer="SIL.FLEx 7.3.0.41038" version="0.13">
<header>
<ranges>
<range id="semantic-domain-ddp4" href="file://C:/Users/maclean/Documents/My FieldWorks/Projects/Temp/Temp.lift-ranges"/>
</ranges>
</header>
`

const updateOpen = `<?xml version="1.0" encoding="utf-8"?>
<lift version="0.13" producer="WeSay.1Pt0Alpha" xmlns:flex="http://fieldworks.sil.org">
`

// Entry renders a minimal entry with one lexical-unit form.
func Entry(id, guid, text string) string {
	return fmt.Sprintf(`<entry id=%q dateCreated="2011-03-09T17:08:44Z" dateModified="2012-05-14T02:38:00Z" guid=%q><lexical-unit><form lang="en"><text>%s</text></form></lexical-unit></entry>`, id, guid, text)
}

// DeletedEntry renders a tombstone carrying a sense that the merge must drop.
func DeletedEntry(id, guid, dateDeleted string) string {
	return fmt.Sprintf(`<entry id=%q dateCreated="2012-05-04T04:19:57Z" dateModified="2012-05-04T04:19:57Z" guid=%q dateDeleted=%q><sense id="s1"><gloss lang="en"><text>gone</text></gloss></sense></entry>`, id, guid, dateDeleted)
}

// LiftDocument wraps entries in a FLEx-style base document.
func LiftDocument(entries ...string) string {
	return liftOpen + joinEntries(entries) + "</lift>\n"
}

// UpdateDocument wraps entries the way update producers write them.
func UpdateDocument(entries ...string) string {
	return updateOpen + joinEntries(entries) + "</lift>\n"
}

func joinEntries(entries []string) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e)
		b.WriteString("\n")
	}
	return b.String()
}

// WriteFile writes content to dir/name and stamps it with mtime.
// Returns the full path.
func WriteFile(t testing.TB, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

// WriteUpdate writes an update file whose mtime is the clock's next tick.
func WriteUpdate(t testing.TB, dir, name string, clock *DeterministicClock, entries ...string) string {
	t.Helper()
	return WriteFile(t, dir, name, UpdateDocument(entries...), clock.Next())
}

// Mkdir creates dir/name and stamps it with mtime. Returns the full path.
func Mkdir(t testing.TB, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

// ReadFile returns the contents of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// DirNames returns the sorted names of all entries in dir.
func DirNames(t testing.TB, dir string) []string {
	t.Helper()
	dirents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, len(dirents))
	for i, de := range dirents {
		names[i] = de.Name()
	}
	sort.Strings(names)
	return names
}
