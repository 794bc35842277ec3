package harness

import (
	"fmt"
	"slices"
)

// checkExpectation compares a summary against the scenario's expectation and
// returns one message per mismatch.
func checkExpectation(want Expectation, got Summary) []string {
	var errs []string

	labels := make([]string, len(got.Entries))
	var tombstones []string
	for i, e := range got.Entries {
		labels[i] = e.Label
		if e.Deleted {
			tombstones = append(tombstones, e.Label)
		}
	}

	if !slices.Equal(want.Entries, labels) {
		errs = append(errs, fmt.Sprintf("entries: expected %v, got %v", want.Entries, labels))
	}
	if !slices.Equal(want.Tombstones, tombstones) {
		errs = append(errs, fmt.Sprintf("tombstones: expected %v, got %v", want.Tombstones, tombstones))
	}
	if !slices.Equal(want.Files, got.Files) {
		errs = append(errs, fmt.Sprintf("files: expected %v, got %v", want.Files, got.Files))
	}
	if want.Error != got.Error {
		errs = append(errs, fmt.Sprintf("error: expected %q, got %q", want.Error, got.Error))
	}

	for _, e := range got.Entries {
		if e.Deleted && e.Children != 0 {
			errs = append(errs, fmt.Sprintf("tombstone %s still has %d children", e.Label, e.Children))
		}
	}
	return errs
}
