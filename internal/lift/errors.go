package lift

import (
	"errors"
	"fmt"
)

// ErrMissingGUID is returned when an entry carries no usable guid attribute.
var ErrMissingGUID = errors.New("entry has no guid")

// ErrNotLift is returned when a document's root element is not <lift>.
var ErrNotLift = errors.New("root element is not <lift>")

// ErrNotUpdate is returned when an update file holds no <lift> or <entry>
// element, or holds anything else at the top level.
var ErrNotUpdate = errors.New("not a lift update")

// MissingGUIDError identifies the entry that lacks a guid.
type MissingGUIDError struct {
	// Position is the zero-based index of the entry among its siblings.
	Position int
	// Label is the entry's id attribute, if any.
	Label string
}

func (e *MissingGUIDError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("entry %d (id=%q) has no guid", e.Position, e.Label)
	}
	return fmt.Sprintf("entry %d has no guid", e.Position)
}

// Is makes errors.Is(err, ErrMissingGUID) match.
func (e *MissingGUIDError) Is(target error) bool {
	return target == ErrMissingGUID
}
