package merge

import (
	"github.com/roach88/lfmerge/internal/lift"
)

// Batch is the parsed content of one update file.
type Batch struct {
	Name    string
	Entries []lift.Entry
}

// Stats counts what a replay did.
type Stats struct {
	Files      int `json:"files"`
	Entries    int `json:"entries"`
	Replaced   int `json:"replaced"`
	Appended   int `json:"appended"`
	Tombstoned int `json:"tombstoned"`
}

// Apply replays batches onto doc in order. It never touches disk.
func Apply(doc *lift.Document, batches ...Batch) Stats {
	var st Stats
	for _, b := range batches {
		st.Files++
		for _, e := range b.Entries {
			st.Entries++
			switch doc.Apply(e) {
			case lift.Replaced:
				st.Replaced++
			case lift.Appended:
				st.Appended++
			}
			if e.IsDeleted() {
				st.Tombstoned++
			}
		}
	}
	return st
}
