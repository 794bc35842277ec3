// Package merge replays LIFT update files onto a base LIFT document.
//
// The merge is a log replay keyed by entry guid:
//   - an entry whose guid already exists replaces the existing entry whole,
//     at the same position
//   - an entry with a new guid is appended
//   - an applied entry with a non-empty dateDeleted becomes a tombstone: its
//     attributes are kept and its children dropped
//
// Update files are applied strictly in the order given; the last write for a
// guid wins. Nothing is written until every update file has parsed, so a
// rejected batch leaves the base, its backup and all update files untouched.
//
// # On-disk effects
//
// With one or more update files, MergeUpdatesIntoFile:
//  1. writes the pre-merge base bytes to <base>.bak, replacing any older backup
//  2. atomically replaces the base with the merged document
//  3. deletes the applied update files
//
// With zero update files it does nothing at all.
//
// # Locking
//
// An exclusive advisory lock keyed by the base file's absolute path is held
// from reading the base to deleting the updates. The lock file lives in the
// system temp directory so the base directory only ever holds the base and
// its backup.
package merge
