// Package updates discovers and classifies pending LIFT update files.
//
// An update file is named
//
//	<project>_<sha>_<uniqueSuffix>.lift.update
//
// where project and sha contain no underscore and the suffix may. Files whose
// names do not follow the grammar are reported as malformed and never grouped
// with well-formed ones.
//
// Scan takes a one-shot snapshot of a directory: file names, sizes and
// modification times are captured once, so ordering decisions made from an
// Inventory are stable even if files are touched afterwards. Call Rescan for a
// fresh view.
//
// FindProjectFolders is the older folder-per-project layout, where each
// project directory holds one subdirectory per sha.
package updates
