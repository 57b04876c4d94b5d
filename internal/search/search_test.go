package search

import (
	"testing"

	"storymapper/api/internal/store"
)

func TestRecordFromStory(t *testing.T) {
	record := recordFromStory(store.Story{
		ID:         "sty_1",
		StoryMapID: "map_1",
		StepID:     "stp_1",
		ReleaseID:  "rel_1",
		Title:      "Pay with card",
		Status:     store.StatusReady,
		Labels:     "payments,checkout",
	})
	if record.ID != "sty_1" || record.StoryMapID != "map_1" {
		t.Fatalf("identity fields lost: %+v", record)
	}
	if record.Title != "Pay with card" || record.Labels != "payments,checkout" {
		t.Fatalf("searchable fields lost: %+v", record)
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := normalizeQuery("  card  "); got != "card" {
		t.Fatalf("got %q", got)
	}
	if got := normalizeQuery("   "); got != "" {
		t.Fatalf("got %q", got)
	}
}
