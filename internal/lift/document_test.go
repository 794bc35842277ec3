package lift

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDoc = `<?xml version="1.0" encoding="UTF-8"?>
<lift producer="SIL.FLEx 7.3.0.41038" version="0.13">
<header>
<ranges/>
</header>
<entry id="one" guid="0ae89610-fc01-4bfd-a0d6-1125b7281dd1"><lexical-unit><form lang="en"><text>one</text></form></lexical-unit></entry>
<entry id="two" guid="0ae89610-fc01-4bfd-a0d6-1125b7281d22"><lexical-unit><form lang="en"><text>two</text></form></lexical-unit></entry>
<entry id="three" guid="80677C8E-9641-486e-ADA1-9D20ED2F5B69"><lexical-unit><form lang="en"><text>three</text></form></lexical-unit></entry>
</lift>
`

func labels(d *Document) []string {
	var out []string
	for _, e := range d.Entries() {
		out = append(out, e.Label())
	}
	return out
}

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := Parse([]byte(s))
	require.NoError(t, err)
	return d
}

func mustUpdate(t *testing.T, s string) []Entry {
	t.Helper()
	entries, err := ParseUpdate([]byte(s))
	require.NoError(t, err)
	return entries
}

func TestParseIndexesEntries(t *testing.T) {
	d := mustParse(t, baseDoc)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"one", "two", "three"}, labels(d))

	e, ok := d.Lookup(NewEntryID("80677c8e-9641-486e-ada1-9d20ed2f5b69"))
	require.True(t, ok)
	assert.Equal(t, "three", e.Label())
	assert.Equal(t, "80677C8E-9641-486e-ADA1-9D20ED2F5B69", e.GUID())
}

func TestParseRejectsNonLift(t *testing.T) {
	_, err := Parse([]byte(`<dictionary><entry guid="x"/></dictionary>`))
	assert.ErrorIs(t, err, ErrNotLift)
}

func TestParseRejectsMalformedXML(t *testing.T) {
	_, err := Parse([]byte(`<lift><entry guid="x">`))
	require.Error(t, err)
}

func TestParseRejectsEntryWithoutGUID(t *testing.T) {
	_, err := Parse([]byte(`<lift><entry id="a" guid="g1"/><entry id="b"/></lift>`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingGUID)

	var mg *MissingGUIDError
	require.True(t, errors.As(err, &mg))
	assert.Equal(t, 1, mg.Position)
	assert.Equal(t, "b", mg.Label)
}

func TestApplyReplacesInPlace(t *testing.T) {
	d := mustParse(t, baseDoc)
	upd := mustUpdate(t, `<lift><entry id="twoblatblat" guid="0ae89610-fc01-4bfd-a0d6-1125b7281d22"><lexical-unit><form lang="en"><text>blat</text></form></lexical-unit></entry></lift>`)
	require.Len(t, upd, 1)

	assert.Equal(t, Replaced, d.Apply(upd[0]))
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"one", "twoblatblat", "three"}, labels(d))

	e, ok := d.Lookup(NewEntryID("0ae89610-fc01-4bfd-a0d6-1125b7281d22"))
	require.True(t, ok)
	assert.Equal(t, "blat", e.Text())
}

func TestApplyAppendsNewEntry(t *testing.T) {
	d := mustParse(t, baseDoc)
	upd := mustUpdate(t, `<lift><entry id="four" guid="6216074D-AD4F-4dae-BE5F-8E5E748EF68A"/></lift>`)

	assert.Equal(t, Appended, d.Apply(upd[0]))
	assert.Equal(t, 4, d.Len())
	assert.Equal(t, []string{"one", "two", "three", "four"}, labels(d))

	out, err := d.Bytes()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<entry id=\"four\" guid=\"6216074D-AD4F-4dae-BE5F-8E5E748EF68A\"/>\n</lift>")
	assert.Contains(t, s, "</entry>\n<entry id=\"four\"")
}

func TestApplyMatchesGUIDCaseInsensitively(t *testing.T) {
	d := mustParse(t, baseDoc)
	upd := mustUpdate(t, `<lift><entry id="THREE" guid="80677c8e-9641-486e-ada1-9d20ed2f5b69"/></lift>`)

	assert.Equal(t, Replaced, d.Apply(upd[0]))
	assert.Equal(t, []string{"one", "two", "THREE"}, labels(d))
}

func TestApplyTombstoneClearsChildren(t *testing.T) {
	d := mustParse(t, baseDoc)
	upd := mustUpdate(t, `<lift><entry id="twoDeleted" dateCreated="2012-05-04T04:19:57Z" dateModified="2012-05-04T04:19:57Z" guid="0ae89610-fc01-4bfd-a0d6-1125b7281d22" dateDeleted="2012-05-08T06:40:44Z"><lexical-unit><form lang="en"><text>gone</text></form></lexical-unit></entry></lift>`)

	assert.Equal(t, Replaced, d.Apply(upd[0]))
	assert.Equal(t, 3, d.Len())

	e, ok := d.Lookup(NewEntryID("0ae89610-fc01-4bfd-a0d6-1125b7281d22"))
	require.True(t, ok)
	assert.True(t, e.IsDeleted())
	assert.Equal(t, 0, e.ChildCount())
	assert.Equal(t, "twoDeleted", e.Label())
	created, ok := e.Attr("dateCreated")
	require.True(t, ok)
	assert.Equal(t, "2012-05-04T04:19:57Z", created)
}

func TestApplyDoesNotAliasUpdate(t *testing.T) {
	d := mustParse(t, baseDoc)
	upd := mustUpdate(t, `<lift><entry id="x" guid="0ae89610-fc01-4bfd-a0d6-1125b7281dd1" dateDeleted="2012-05-08T06:40:44Z"><sense/></entry></lift>`)

	d.Apply(upd[0])
	assert.Equal(t, 1, upd[0].ChildCount(), "update entry must not be cleared")
}

func TestParseUpdateBareEntries(t *testing.T) {
	entries := mustUpdate(t, `<entry id="a" guid="g1"/><entry id="b" guid="g2"/>`)
	require.Len(t, entries, 2)
	assert.Equal(t, EntryID("g1"), entries[0].ID())
	assert.Equal(t, EntryID("g2"), entries[1].ID())
}

func TestParseUpdateRequiresGUID(t *testing.T) {
	_, err := ParseUpdate([]byte(`<lift><entry id="a" guid="  "/></lift>`))
	assert.ErrorIs(t, err, ErrMissingGUID)
}

func TestParseUpdateRejectsNonUpdateContent(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\t"},
		{"plain text", "this is not xml"},
		{"declaration only", `<?xml version="1.0" encoding="utf-8"?>`},
		{"wrong root", `<dictionary><entry id="a" guid="g1"/></dictionary>`},
		{"trailing text", `<lift><entry id="a" guid="g1"/></lift>junk`},
		{"trailing element", `<lift><entry id="a" guid="g1"/></lift><extra/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseUpdate([]byte(tt.data))
			assert.ErrorIs(t, err, ErrNotUpdate)
			assert.Nil(t, entries)
		})
	}
}

func TestParseUpdateAcceptsEmptyLift(t *testing.T) {
	entries, err := ParseUpdate([]byte("<?xml version=\"1.0\"?>\n<!-- nothing changed -->\n<lift version=\"0.13\">\n</lift>\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRoundTripPreservesHeader(t *testing.T) {
	d := mustParse(t, baseDoc)
	out, err := d.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, string(out), "<header>\n<ranges/>\n</header>")
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte("<lift/>")
	assert.NotEqual(t, HashDocument(data), HashUpdate(data))
	assert.Equal(t, HashDocument(data), HashDocument(data))
	assert.Len(t, HashDocument(data), 64)
}
