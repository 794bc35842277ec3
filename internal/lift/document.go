package lift

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
)

// Document is an owned, mutable LIFT document indexed by entry guid.
//
// Entry order is preserved; entries introduced by Apply are appended after
// the last existing child of the root.
type Document struct {
	doc   *etree.Document
	root  *etree.Element
	index map[EntryID]*etree.Element
	count int
}

// Outcome reports what Apply did to the document.
type Outcome int

const (
	// Appended means the entry's guid was new and it was added at the end.
	Appended Outcome = iota
	// Replaced means an existing entry with the same guid was overwritten in place.
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Appended:
		return "appended"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Parse reads a base LIFT document.
//
// The root element must be <lift>, and every <entry> child must carry a guid.
// When two entries share a guid the first one is the merge target.
func Parse(data []byte) (*Document, error) {
	doc := newEtreeDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse lift: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != tagLift {
		return nil, ErrNotLift
	}

	d := &Document{
		doc:   doc,
		root:  root,
		index: make(map[EntryID]*etree.Element),
	}
	for i, el := range root.SelectElements(tagEntry) {
		id := NewEntryID(el.SelectAttrValue(AttrGUID, ""))
		if id.IsZero() {
			return nil, &MissingGUIDError{Position: i, Label: el.SelectAttrValue(AttrID, "")}
		}
		if _, dup := d.index[id]; !dup {
			d.index[id] = el
		}
		d.count++
	}
	return d, nil
}

// Load reads and parses the LIFT file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lift %s: %w", path, err)
	}
	return Parse(data)
}

// ParseUpdate extracts the entries of an update file in document order.
//
// An update is normally a complete <lift> document whose entries are the
// changed ones; a bare sequence of top-level <entry> elements is accepted too.
// Any other top-level element or text, or no element at all, is ErrNotUpdate.
// Every entry must carry a guid.
func ParseUpdate(data []byte) ([]Entry, error) {
	doc := newEtreeDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse update: %w", err)
	}

	var els []*etree.Element
	found := false
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			switch t.Tag {
			case tagLift:
				els = append(els, t.SelectElements(tagEntry)...)
			case tagEntry:
				els = append(els, t)
			default:
				return nil, fmt.Errorf("%w: unexpected top-level <%s>", ErrNotUpdate, t.Tag)
			}
			found = true
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return nil, fmt.Errorf("%w: text outside any element", ErrNotUpdate)
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no <lift> or <entry> element", ErrNotUpdate)
	}

	entries := make([]Entry, 0, len(els))
	for i, el := range els {
		e := Entry{el: el}
		if e.ID().IsZero() {
			return nil, &MissingGUIDError{Position: i, Label: e.Label()}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Len returns the number of entries, duplicates included.
func (d *Document) Len() int {
	return d.count
}

// Entries returns the document's entries in order.
func (d *Document) Entries() []Entry {
	els := d.root.SelectElements(tagEntry)
	out := make([]Entry, len(els))
	for i, el := range els {
		out[i] = Entry{el: el}
	}
	return out
}

// Lookup returns the entry with the given identity.
func (d *Document) Lookup(id EntryID) (Entry, bool) {
	el, ok := d.index[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{el: el}, true
}

// Apply writes e into the document: an entry with the same guid is replaced
// whole at its current position, otherwise e is appended. If the applied
// entry is a tombstone its children are cleared and its attributes kept.
//
// e is copied; the caller's document is never modified.
func (d *Document) Apply(e Entry) Outcome {
	el := e.el.Copy()
	id := e.ID()

	outcome := Appended
	if old, ok := d.index[id]; ok {
		parent := old.Parent()
		i := old.Index()
		parent.RemoveChildAt(i)
		parent.InsertChildAt(i, el)
		outcome = Replaced
	} else {
		d.appendEntry(el)
		d.count++
	}
	d.index[id] = el

	if (Entry{el: el}).IsDeleted() {
		clearChildren(el)
	}
	return outcome
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	data, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize lift: %w", err)
	}
	return data, nil
}

// appendEntry inserts el after the root's last child, ahead of any trailing
// whitespace, reusing the separator that precedes the last existing element.
func (d *Document) appendEntry(el *etree.Element) {
	kids := d.root.Child
	pos := len(kids)
	if pos > 0 && isBlank(kids[pos-1]) {
		pos--
	}

	sep := "\n"
	for i := pos - 1; i > 0; i-- {
		if _, ok := kids[i].(*etree.Element); ok {
			if isBlank(kids[i-1]) {
				sep = kids[i-1].(*etree.CharData).Data
			}
			break
		}
	}

	d.root.InsertChildAt(pos, el)
	if pos > 0 {
		d.root.InsertChildAt(pos, etree.NewText(sep))
	}
}

func clearChildren(el *etree.Element) {
	for n := len(el.Child); n > 0; n = len(el.Child) {
		el.RemoveChildAt(n - 1)
	}
}

func newEtreeDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	return doc
}
