package app

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"storymapper/api/internal/store"
)

var wireTestNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func TestStoryWireMapping(t *testing.T) {
	size := 5
	st := store.Story{
		ID:          "sty_1",
		StepID:      "stp_1",
		ReleaseID:   "rel_1",
		StoryMapID:  "map_1",
		Title:       "Pay with card",
		Description: "Stripe checkout",
		Status:      store.StatusInProgress,
		Size:        &size,
		SortOrder:   3000,
		Labels:      "payments,frontend",
		CreatedBy:   "usr_a",
		UpdatedBy:   "usr_b",
		CreatedAt:   wireTestNow,
		UpdatedAt:   wireTestNow,
	}
	got := toWireStory(st)
	want := wireStory{
		ID:          "sty_1",
		StepID:      "stp_1",
		ReleaseID:   "rel_1",
		StoryMapID:  "map_1",
		Title:       "Pay with card",
		Description: "Stripe checkout",
		Status:      store.StatusInProgress,
		Size:        &size,
		SortOrder:   3000,
		Labels:      "payments,frontend",
		CreatedBy:   "usr_a",
		UpdatedBy:   "usr_b",
		CreatedAt:   wireTestNow,
		UpdatedAt:   wireTestNow,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("story mapping mismatch:\ngot  %+v\nwant %+v", got, want)
	}

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"story_map_id", "step_id", "release_id", "sort_order", "created_by", "updated_by"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("story payload missing %q: %s", key, raw)
		}
	}
}

func TestReleaseWireMapping(t *testing.T) {
	due := wireTestNow.AddDate(0, 1, 0)
	r := store.Release{
		ID:           "rel_1",
		StoryMapID:   "map_1",
		Name:         "MVP",
		Description:  "first cut",
		DueDate:      &due,
		Shipped:      true,
		IsUnassigned: false,
		SortOrder:    2,
		CreatedBy:    "usr_a",
		UpdatedBy:    "usr_a",
		CreatedAt:    wireTestNow,
		UpdatedAt:    wireTestNow,
	}
	got := toWireRelease(r)
	if got.ID != r.ID || got.StoryMapID != r.StoryMapID || got.Name != r.Name {
		t.Fatalf("release identity fields lost: %+v", got)
	}
	if got.StartDate != nil || got.DueDate != &due {
		t.Fatalf("release date pointers mangled: %+v", got)
	}
	if !got.Shipped || got.IsUnassigned || got.SortOrder != 2 {
		t.Fatalf("release flags lost: %+v", got)
	}

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["start_date"] != nil {
		t.Fatalf("unset start_date should serialize as null: %s", raw)
	}
	if fields["is_unassigned"] != false {
		t.Fatalf("is_unassigned missing from payload: %s", raw)
	}
}

func TestGridWireMapping(t *testing.T) {
	j := store.Journey{
		ID: "jrn_1", StoryMapID: "map_1", Name: "Checkout", Description: "buyer flow",
		Color: "#ff7a00", SortOrder: 1, CreatedBy: "usr_a", UpdatedBy: "usr_b",
		CreatedAt: wireTestNow, UpdatedAt: wireTestNow,
	}
	wj := toWireJourney(j)
	want := wireJourney{
		ID: "jrn_1", StoryMapID: "map_1", Name: "Checkout", Description: "buyer flow",
		Color: "#ff7a00", SortOrder: 1, CreatedBy: "usr_a", UpdatedBy: "usr_b",
		CreatedAt: wireTestNow, UpdatedAt: wireTestNow,
	}
	if !reflect.DeepEqual(wj, want) {
		t.Fatalf("journey mapping mismatch:\ngot  %+v\nwant %+v", wj, want)
	}

	s := store.Step{
		ID: "stp_1", JourneyID: "jrn_1", StoryMapID: "map_1", Name: "Enter card",
		Description: "PAN entry", SortOrder: 0, CreatedBy: "usr_a", UpdatedBy: "usr_a",
		CreatedAt: wireTestNow, UpdatedAt: wireTestNow,
	}
	ws := toWireStep(s)
	if ws.JourneyID != "jrn_1" || ws.StoryMapID != "map_1" || ws.SortOrder != 0 {
		t.Fatalf("step mapping mismatch: %+v", ws)
	}
}

func TestMembershipWireMapping(t *testing.T) {
	m := store.Member{
		UserID: "usr_1", Role: "editor", DisplayName: "Dana", Email: "dana@example.com",
		AddedAt: wireTestNow,
	}
	wm := toWireMember(m)
	want := wireMember{
		UserID: "usr_1", Role: "editor", DisplayName: "Dana", Email: "dana@example.com",
		AddedAt: wireTestNow,
	}
	if !reflect.DeepEqual(wm, want) {
		t.Fatalf("member mapping mismatch:\ngot  %+v\nwant %+v", wm, want)
	}

	u := store.User{ID: "usr_1", DisplayName: "Dana", Email: "dana@example.com"}
	wu := toWireUser(u)
	if wu.ID != "usr_1" || wu.Email != "dana@example.com" {
		t.Fatalf("user mapping mismatch: %+v", wu)
	}
	raw, err := json.Marshal(wu)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["avatar_url"]; ok {
		t.Fatalf("empty avatar_url should be omitted: %s", raw)
	}
}

func TestAnnotationWireMapping(t *testing.T) {
	l := store.StoryLink{
		ID: "lnk_1", SourceStoryID: "sty_a", TargetStoryID: "sty_b",
		LinkType: store.LinkBlocks, CreatedAt: wireTestNow,
	}
	wl := toWireStoryLink(l)
	want := wireStoryLink{
		ID: "lnk_1", SourceStoryID: "sty_a", TargetStoryID: "sty_b",
		LinkType: store.LinkBlocks, CreatedAt: wireTestNow,
	}
	if !reflect.DeepEqual(wl, want) {
		t.Fatalf("link mapping mismatch:\ngot  %+v\nwant %+v", wl, want)
	}

	c := store.Comment{
		ID: "cmt_1", StoryID: "sty_a", AuthorID: "usr_1", AuthorName: "Dana",
		Content: "needs a spinner", CreatedAt: wireTestNow, UpdatedAt: wireTestNow,
	}
	wc := toWireComment(c)
	if wc.AuthorName != "Dana" || wc.StoryID != "sty_a" || wc.Content != "needs a spinner" {
		t.Fatalf("comment mapping mismatch: %+v", wc)
	}

	a := store.Attachment{
		ID: "att_1", StoryID: "sty_a", FileName: "mock.png",
		ContentType: "image/png", Size: 2048, UploadedBy: "usr_1", CreatedAt: wireTestNow,
	}
	wa := toWireAttachment(a)
	if wa.FileName != "mock.png" || wa.ContentType != "image/png" || wa.Size != 2048 {
		t.Fatalf("attachment mapping mismatch: %+v", wa)
	}

	tag := store.Tag{ID: "tag_1", StoryMapID: "map_1", Name: "backend", Color: "#00f"}
	if wt := toWireTag(tag); wt.Name != "backend" || wt.StoryMapID != "map_1" {
		t.Fatalf("tag mapping mismatch: %+v", wt)
	}
	p := store.Persona{ID: "per_1", StoryMapID: "map_1", Name: "Shopper", AvatarURL: "https://cdn/x.png"}
	if wp := toWirePersona(p); wp.Name != "Shopper" || wp.AvatarURL != "https://cdn/x.png" {
		t.Fatalf("persona mapping mismatch: %+v", wp)
	}
}
