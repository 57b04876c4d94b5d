package ordering

import (
	"errors"
	"testing"
)

func TestNextDenseIsZeroBasedAppend(t *testing.T) {
	if got := NextDense(0); got != 0 {
		t.Fatalf("expected first sibling at 0, got %d", got)
	}
	if got := NextDense(4); got != 4 {
		t.Fatalf("expected fifth sibling at 4, got %d", got)
	}
}

func TestCellSlotUsesMultiplicativeSpacing(t *testing.T) {
	if got := CellSlot(0); got != 1000 {
		t.Fatalf("expected first story at 1000, got %d", got)
	}
	if got := CellSlot(2); got != 3000 {
		t.Fatalf("expected third story at 3000, got %d", got)
	}
}

func TestReindexMovesTargetAndPreservesOthers(t *testing.T) {
	cases := []struct {
		name     string
		ids      []string
		target   string
		newIndex int
		want     []string
	}{
		{"forward", []string{"a", "b", "c", "d"}, "a", 2, []string{"b", "c", "a", "d"}},
		{"backward", []string{"a", "b", "c", "d"}, "d", 0, []string{"d", "a", "b", "c"}},
		{"noop", []string{"a", "b", "c"}, "b", 1, []string{"a", "b", "c"}},
		{"to-end", []string{"a", "b", "c"}, "a", 2, []string{"b", "c", "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Reindex(tc.ids, tc.target, tc.newIndex)
			if err != nil {
				t.Fatalf("reindex: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d ids, got %d", len(tc.want), len(got))
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("position %d: expected %s, got %s (%v)", i, tc.want[i], got[i], got)
				}
			}
		})
	}
}

func TestReindexRejectsOutOfBoundsIndex(t *testing.T) {
	_, err := Reindex([]string{"a", "b", "c"}, "a", 3)
	var bounds *BoundsError
	if !errors.As(err, &bounds) {
		t.Fatalf("expected BoundsError, got %v", err)
	}
	if bounds.Max != 2 {
		t.Fatalf("expected max 2 in bounds error, got %d", bounds.Max)
	}

	if _, err := Reindex([]string{"a"}, "a", -1); err == nil {
		t.Fatal("expected error for negative index")
	}
}

func TestReindexRejectsUnknownTarget(t *testing.T) {
	_, err := Reindex([]string{"a", "b"}, "zz", 0)
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestReindexEmptySetIsNotFoundNotBounds(t *testing.T) {
	_, err := Reindex(nil, "a", 0)
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound for empty sibling set, got %v", err)
	}
}
