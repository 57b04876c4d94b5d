// Package ordering computes sort keys for sibling collections. Journeys,
// steps and releases use dense 0-based positions that are rewritten on
// every reorder; stories use multiplicative spacing within their
// (step, release) cell so single-row moves stay cheap.
package ordering

import (
	"errors"
	"fmt"
)

// StorySpacing is the gap between consecutive story sort keys in a cell.
const StorySpacing = 1000

// ErrTargetNotFound is returned by Reindex when the target id is not a
// member of the sibling set.
var ErrTargetNotFound = errors.New("reorder target not found")

// BoundsError reports a requested position outside the valid dense range.
type BoundsError struct {
	Max int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("new_sort_order must be between 0 and %d", e.Max)
}

// NextDense returns the sort key assigned to a new dense-ordered sibling:
// a 0-based append position.
func NextDense(siblingCount int) int {
	return siblingCount
}

// CellSlot returns the sort key assigned to a story entering a cell that
// already holds siblingCount stories. Concurrent inserts into the same
// cell can produce duplicate keys; callers tolerate ties.
func CellSlot(siblingCount int) int {
	return (siblingCount + 1) * StorySpacing
}

// Reindex removes targetID from ids and reinserts it at newIndex,
// returning the resulting order. ids must already be sorted by current
// sort key. A newIndex at or beyond the sibling count is rejected, not
// clamped.
func Reindex(ids []string, targetID string, newIndex int) ([]string, error) {
	// Membership first: an empty or stale sibling set means the target
	// is gone, which reads as not-found rather than a bounds problem.
	current := -1
	for i, id := range ids {
		if id == targetID {
			current = i
			break
		}
	}
	if current == -1 {
		return nil, ErrTargetNotFound
	}
	if newIndex < 0 || newIndex >= len(ids) {
		return nil, &BoundsError{Max: len(ids) - 1}
	}

	reordered := make([]string, 0, len(ids))
	reordered = append(reordered, ids[:current]...)
	reordered = append(reordered, ids[current+1:]...)
	reordered = append(reordered[:newIndex], append([]string{targetID}, reordered[newIndex:]...)...)
	return reordered, nil
}
