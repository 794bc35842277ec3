// Package lift models LIFT lexicon documents as ordered sequences of entries
// keyed by their guid.
//
// The model is deliberately shallow. An entry is an opaque XML element; the
// only attributes the package interprets are:
//   - guid: the stable identity of the entry (EntryID)
//   - id: a human-readable label that may change between revisions
//   - dateDeleted: when non-empty, marks the entry as a tombstone
//
// Everything else in the document (XML declaration, header, ranges, unknown
// elements) is carried through untouched.
//
// # Identity
//
// Entries are matched by guid, never by id. GUIDs are compared after trimming
// surrounding whitespace and folding to lower case; the attribute text written
// back to disk is whatever the winning revision carried.
//
// # Content hashes
//
// HashDocument and HashUpdate compute SHA-256 digests with domain separation
// so a merged document and an update file with identical bytes never share a
// digest.
package lift
