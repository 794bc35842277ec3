package merge

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lfmerge/internal/lift"
	"github.com/roach88/lfmerge/internal/testutil"
	"github.com/roach88/lfmerge/internal/updates"
)

const baseName = "base.lift"

type fixture struct {
	dir   string
	base  string
	clock *testutil.DeterministicClock
}

func newFixture(t *testing.T, entries ...string) *fixture {
	t.Helper()
	dir := t.TempDir()
	clock := testutil.NewDeterministicClock()
	base := testutil.WriteFile(t, dir, baseName, testutil.LiftDocument(entries...), clock.Next())
	return &fixture{dir: dir, base: base, clock: clock}
}

func (f *fixture) update(t *testing.T, name string, entries ...string) {
	t.Helper()
	testutil.WriteUpdate(t, f.dir, name, f.clock, entries...)
}

func (f *fixture) pending(t *testing.T) []updates.UpdateFile {
	t.Helper()
	inv, err := updates.Scan(f.dir)
	require.NoError(t, err)
	var files []updates.UpdateFile
	for _, p := range inv.ProjectsToUpdate() {
		for _, s := range inv.ShasForProject(p) {
			files = append(files, inv.FilesForProjectAndSha(p, s)...)
		}
	}
	return files
}

func quietMerger(opts ...Option) *Merger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(append([]Option{WithLogger(logger)}, opts...)...)
}

func labelsOf(t *testing.T, path string) []string {
	t.Helper()
	doc, err := lift.Load(path)
	require.NoError(t, err)
	var out []string
	for _, e := range doc.Entries() {
		out = append(out, e.Label())
	}
	return out
}

func threeEntries() []string {
	return []string{
		testutil.Entry("one", testutil.GUIDOne, "one"),
		testutil.Entry("two", testutil.GUIDTwo, "two"),
		testutil.Entry("three", testutil.GUIDThree, "three"),
	}
}

func TestMergeZeroUpdatesIsNoOp(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	before := testutil.ReadFile(t, f.base)

	res, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Applied)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, []string{baseName}, testutil.DirNames(t, f.dir))
	assert.Equal(t, before, testutil.ReadFile(t, f.base))
}

func TestMergeTwoUpdates(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	original := testutil.ReadFile(t, f.base)

	f.update(t, "LangProj_sha1_update1.lift.update",
		testutil.Entry("four", testutil.GUIDFour, "four"),
		testutil.Entry("twoblatblat", testutil.GUIDTwo, "blat"),
		testutil.Entry("five", testutil.GUIDFive, "five"),
	)
	f.update(t, "LangProj_sha1_update2.lift.update",
		testutil.Entry("fourChangedFirstAddition", testutil.GUIDFour, "four again"),
		testutil.Entry("six", testutil.GUIDSix, "six"),
	)

	res, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"one", "twoblatblat", "three", "fourChangedFirstAddition", "five", "six"},
		labelsOf(t, f.base))
	assert.Equal(t, []string{baseName, baseName + ".bak"}, testutil.DirNames(t, f.dir))
	assert.Equal(t, original, testutil.ReadFile(t, res.BackupPath))

	assert.Equal(t, Stats{Files: 2, Entries: 5, Replaced: 2, Appended: 3}, res.Stats)
	require.Len(t, res.Applied, 2)
	assert.Equal(t, "LangProj_sha1_update1.lift.update", res.Applied[0].Name)
	assert.Equal(t, 3, res.Applied[0].Entries)
	assert.NotEqual(t, res.InputHash, res.OutputHash)
	assert.Equal(t, lift.HashDocument([]byte(testutil.ReadFile(t, f.base))), res.OutputHash)
}

func TestMergeDeletedEntryBecomesTombstone(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	f.update(t, "LangProj_sha1_delete.lift.update",
		testutil.DeletedEntry("twoDeleted", testutil.GUIDTwo, "2012-05-08T06:40:44Z"),
		testutil.Entry("six", testutil.GUIDSix, "six"),
	)

	res, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Tombstoned)

	doc, err := lift.Load(f.base)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Len())

	e, ok := doc.Lookup(lift.NewEntryID(testutil.GUIDTwo))
	require.True(t, ok)
	assert.Equal(t, "twoDeleted", e.Label())
	assert.Equal(t, "2012-05-08T06:40:44Z", e.DateDeleted())
	assert.Equal(t, 0, e.ChildCount())
}

func TestMergeHonorsGivenOrder(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	f.update(t, "P_s_a.lift.update", testutil.Entry("first", testutil.GUIDOne, "1"))
	f.update(t, "P_s_b.lift.update", testutil.Entry("second", testutil.GUIDOne, "2"))

	files := f.pending(t)
	require.Len(t, files, 2)
	reversed := []updates.UpdateFile{files[1], files[0]}

	_, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, reversed)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "two", "three"}, labelsOf(t, f.base))
}

func TestMergeMalformedUpdateAbortsWithoutWrites(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	before := testutil.ReadFile(t, f.base)

	f.update(t, "P_s_1.lift.update", testutil.Entry("four", testutil.GUIDFour, "four"))
	testutil.WriteFile(t, f.dir, "P_s_2.lift.update", "<lift><entry guid=", f.clock.Next())
	names := testutil.DirNames(t, f.dir)

	_, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.Error(t, err)
	assert.True(t, IsMalformedUpdate(err), "got %v", err)
	assert.False(t, IsConfigurationError(err))

	assert.Equal(t, names, testutil.DirNames(t, f.dir))
	assert.Equal(t, before, testutil.ReadFile(t, f.base))
}

func TestMergeNonXMLUpdateKeepsAllFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"plain text", "not a lift update\n"},
		{"wrong root", `<dictionary><entry id="x" guid="` + testutil.GUIDFive + `"/></dictionary>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, threeEntries()...)
			before := testutil.ReadFile(t, f.base)

			good := testutil.WriteUpdate(t, f.dir, "P_s_1.lift.update", f.clock, testutil.Entry("four", testutil.GUIDFour, "four"))
			bad := testutil.WriteFile(t, f.dir, "P_s_2.lift.update", tt.content, f.clock.Next())

			res, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, IsMalformedUpdate(err), "got %v", err)
			assert.ErrorIs(t, err, lift.ErrNotUpdate)

			assert.FileExists(t, good)
			assert.FileExists(t, bad)
			assert.NoFileExists(t, f.base+DefaultBackupSuffix)
			assert.Equal(t, before, testutil.ReadFile(t, f.base))
		})
	}
}

func TestMergeUpdateEntryWithoutGUID(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	f.update(t, "P_s_1.lift.update", `<entry id="orphan"><sense/></entry>`)

	_, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.Error(t, err)
	assert.True(t, IsMalformedUpdate(err))
	assert.ErrorIs(t, err, lift.ErrMissingGUID)
	assert.Len(t, testutil.DirNames(t, f.dir), 2)
}

func TestMergeMissingBaseIsConfigurationError(t *testing.T) {
	dir := t.TempDir()
	clock := testutil.NewDeterministicClock()
	testutil.WriteUpdate(t, dir, "P_s_1.lift.update", clock, testutil.Entry("one", testutil.GUIDOne, "one"))
	inv, err := updates.Scan(dir)
	require.NoError(t, err)

	_, err = quietMerger().MergeUpdatesIntoFile(context.Background(), filepath.Join(dir, "missing.lift"), inv.FilesForProjectAndSha("P", "s"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, []string{"P_s_1.lift.update"}, testutil.DirNames(t, dir))
}

func TestMergeBaseEntryWithoutGUIDIsConfigurationError(t *testing.T) {
	f := newFixture(t, `<entry id="noguid"/>`)
	f.update(t, "P_s_1.lift.update", testutil.Entry("one", testutil.GUIDOne, "one"))

	_, err := quietMerger().MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, ErrCodeConfiguration, CodeOf(err))
}

func TestMergeReplacesOlderBackup(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	m := quietMerger()

	f.update(t, "P_s_1.lift.update", testutil.Entry("four", testutil.GUIDFour, "four"))
	_, err := m.MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)
	afterFirst := testutil.ReadFile(t, f.base)

	f.update(t, "P_s_2.lift.update", testutil.Entry("five", testutil.GUIDFive, "five"))
	res, err := m.MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)

	assert.Equal(t, []string{baseName, baseName + ".bak"}, testutil.DirNames(t, f.dir))
	assert.Equal(t, afterFirst, testutil.ReadFile(t, res.BackupPath))
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, labelsOf(t, f.base))
}

func TestMergeIsIdempotent(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	m := quietMerger()
	entries := []string{
		testutil.Entry("twoblatblat", testutil.GUIDTwo, "blat"),
		testutil.Entry("six", testutil.GUIDSix, "six"),
	}

	f.update(t, "P_s_1.lift.update", entries...)
	_, err := m.MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)
	once := testutil.ReadFile(t, f.base)

	f.update(t, "P_s_1.lift.update", entries...)
	_, err = m.MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)

	assert.Equal(t, once, testutil.ReadFile(t, f.base))
}

func TestMergeCustomBackupSuffix(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	f.update(t, "P_s_1.lift.update", testutil.Entry("four", testutil.GUIDFour, "four"))

	res, err := quietMerger(WithBackupSuffix(".orig")).MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.NoError(t, err)
	assert.Equal(t, f.base+".orig", res.BackupPath)
	assert.Equal(t, []string{baseName, baseName + ".orig"}, testutil.DirNames(t, f.dir))
}

func TestMergeFailsWhenLocked(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	f.update(t, "P_s_1.lift.update", testutil.Entry("four", testutil.GUIDFour, "four"))
	before := testutil.ReadFile(t, f.base)

	held, err := Lock(context.Background(), f.base, 0)
	require.NoError(t, err)
	defer held.Unlock()

	_, err = quietMerger(WithLockTimeout(0)).MergeUpdatesIntoFile(context.Background(), f.base, f.pending(t))
	require.Error(t, err)
	assert.True(t, IsLocked(err), "got %v", err)
	assert.Equal(t, before, testutil.ReadFile(t, f.base))
	assert.Len(t, testutil.DirNames(t, f.dir), 2)
}

func TestMergeCanceledContextWritesNothing(t *testing.T) {
	f := newFixture(t, threeEntries()...)
	f.update(t, "P_s_1.lift.update", testutil.Entry("four", testutil.GUIDFour, "four"))
	before := testutil.ReadFile(t, f.base)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quietMerger().MergeUpdatesIntoFile(ctx, f.base, f.pending(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, testutil.ReadFile(t, f.base))
	assert.Len(t, testutil.DirNames(t, f.dir), 2)
}

func TestApplyInMemory(t *testing.T) {
	doc, err := lift.Parse([]byte(testutil.LiftDocument(threeEntries()...)))
	require.NoError(t, err)

	upd, err := lift.ParseUpdate([]byte(testutil.UpdateDocument(
		testutil.DeletedEntry("threeDeleted", testutil.GUIDThree, "2012-05-08T06:40:44Z"),
		testutil.Entry("four", testutil.GUIDFour, "four"),
	)))
	require.NoError(t, err)

	st := Apply(doc, Batch{Name: "a", Entries: upd})
	assert.Equal(t, Stats{Files: 1, Entries: 2, Replaced: 1, Appended: 1, Tombstoned: 1}, st)
	assert.Equal(t, 4, doc.Len())
}

func TestErrorMessage(t *testing.T) {
	err := newMalformedUpdateError("/tmp/x.lift.update", lift.ErrMissingGUID)
	assert.Equal(t, "MALFORMED_UPDATE: update file rejected (path=/tmp/x.lift.update): entry has no guid", err.Error())
}
