package lift

import (
	"strings"

	"github.com/beevik/etree"
)

// Attribute names interpreted by the merge.
const (
	AttrGUID        = "guid"
	AttrID          = "id"
	AttrDateDeleted = "dateDeleted"

	tagLift  = "lift"
	tagEntry = "entry"
)

// EntryID is the stable identity of an entry, derived from its guid attribute.
type EntryID string

// NewEntryID normalizes a raw guid attribute value into an EntryID.
func NewEntryID(guid string) EntryID {
	return EntryID(strings.ToLower(strings.TrimSpace(guid)))
}

// String returns the normalized guid.
func (id EntryID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty.
func (id EntryID) IsZero() bool {
	return id == ""
}

// Entry is a read-only view of an <entry> element.
type Entry struct {
	el *etree.Element
}

// ID returns the entry's identity.
func (e Entry) ID() EntryID {
	return NewEntryID(e.GUID())
}

// GUID returns the raw guid attribute text.
func (e Entry) GUID() string {
	return e.el.SelectAttrValue(AttrGUID, "")
}

// Label returns the id attribute. It is informational only.
func (e Entry) Label() string {
	return e.el.SelectAttrValue(AttrID, "")
}

// DateDeleted returns the dateDeleted attribute, or "" when absent.
func (e Entry) DateDeleted() string {
	return strings.TrimSpace(e.el.SelectAttrValue(AttrDateDeleted, ""))
}

// IsDeleted reports whether the entry is a tombstone.
func (e Entry) IsDeleted() bool {
	return e.DateDeleted() != ""
}

// Attr returns the value of an arbitrary attribute.
func (e Entry) Attr(name string) (string, bool) {
	a := e.el.SelectAttr(name)
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// ChildCount returns the number of child elements.
func (e Entry) ChildCount() int {
	return len(e.el.ChildElements())
}

// Text returns the concatenated character data of the entry and all of its
// descendants, in document order.
func (e Entry) Text() string {
	var b strings.Builder
	collectText(e.el, &b)
	return b.String()
}

func collectText(el *etree.Element, b *strings.Builder) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			collectText(t, b)
		}
	}
}

// isBlank reports whether tok is whitespace-only character data.
func isBlank(tok etree.Token) bool {
	cd, ok := tok.(*etree.CharData)
	return ok && strings.TrimSpace(cd.Data) == ""
}
