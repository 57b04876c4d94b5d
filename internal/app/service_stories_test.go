package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"storymapper/api/internal/store"
)

func storyTestStore() *fakeStore {
	stories := map[string]store.Story{
		"sty_1": {
			ID:         "sty_1",
			StepID:     "stp_1",
			ReleaseID:  "rel_unassigned",
			StoryMapID: "map_1",
			Title:      "Pay with card",
			Status:     store.StatusReady,
		},
	}
	return &fakeStore{
		getStoryMapFn: func(_ context.Context, id string) (store.StoryMap, error) {
			return store.StoryMap{ID: id, OwnerID: "usr_owner"}, nil
		},
		getStepFn: func(_ context.Context, id string) (store.Step, error) {
			if id != "stp_1" && id != "stp_2" {
				return store.Step{}, sql.ErrNoRows
			}
			return store.Step{ID: id, JourneyID: "jrn_1", StoryMapID: "map_1"}, nil
		},
		getUnassignedReleaseFn: func(_ context.Context, mapID string) (store.Release, error) {
			return store.Release{ID: "rel_unassigned", StoryMapID: mapID, IsUnassigned: true}, nil
		},
		getReleaseFn: func(_ context.Context, id string) (store.Release, error) {
			if id == "rel_other_map" {
				return store.Release{ID: id, StoryMapID: "map_other"}, nil
			}
			return store.Release{ID: id, StoryMapID: "map_1"}, nil
		},
		getStoryFn: func(_ context.Context, id string) (store.Story, error) {
			st, ok := stories[id]
			if !ok {
				return store.Story{}, sql.ErrNoRows
			}
			return st, nil
		},
	}
}

func TestCreateStoryDefaults(t *testing.T) {
	fs := storyTestStore()
	var inserted store.Story
	fs.insertStoryFn = func(_ context.Context, st store.Story) (store.Story, error) {
		inserted = st
		inserted.SortOrder = 1000
		return inserted, nil
	}
	searcher := &fakeSearcher{}
	svc := newTestService(fs)
	svc.search = searcher

	out, err := svc.CreateStory(context.Background(), testSession("usr_owner", "O"), CreateStoryInput{
		StepID: "stp_1",
		Title:  "Pay with card",
	})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if inserted.ReleaseID != "rel_unassigned" {
		t.Fatalf("expected story to land in the unassigned release, got %q", inserted.ReleaseID)
	}
	if out.Status != store.StatusNotReady {
		t.Fatalf("expected default status, got %q", out.Status)
	}
	if len(searcher.indexed) != 1 {
		t.Fatalf("story not indexed: %v", searcher.indexed)
	}
}

func TestCreateStoryRejectsCrossMapRelease(t *testing.T) {
	svc := newTestService(storyTestStore())
	_, err := svc.CreateStory(context.Background(), testSession("usr_owner", "O"), CreateStoryInput{
		StepID:    "stp_1",
		ReleaseID: "rel_other_map",
		Title:     "Pay with card",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestUpdateStoryPatchesSortOrder(t *testing.T) {
	fs := storyTestStore()
	var updated store.Story
	fs.updateStoryFn = func(_ context.Context, st store.Story) error {
		updated = st
		return nil
	}
	svc := newTestService(fs)

	target := 2000
	_, err := svc.UpdateStory(context.Background(), testSession("usr_owner", "O"), "sty_1", UpdateStoryInput{
		SortOrder: &target,
	})
	if err != nil {
		t.Fatalf("UpdateStory: %v", err)
	}
	if updated.SortOrder != 2000 {
		t.Fatalf("sort_order patch not applied, got %d", updated.SortOrder)
	}

	negative := -1
	_, err = svc.UpdateStory(context.Background(), testSession("usr_owner", "O"), "sty_1", UpdateStoryInput{
		SortOrder: &negative,
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for negative sort_order, got %v", err)
	}
}

func TestMoveStoryKeepsCurrentCellWhenFieldsOmitted(t *testing.T) {
	fs := storyTestStore()
	var movedStep, movedRelease string
	fs.moveStoryFn = func(_ context.Context, storyID, stepID, releaseID, updatedBy string) (int, error) {
		movedStep, movedRelease = stepID, releaseID
		return 2000, nil
	}
	svc := newTestService(fs)

	if _, err := svc.MoveStory(context.Background(), testSession("usr_owner", "O"), "sty_1", MoveStoryInput{
		StepID: "stp_2",
	}); err != nil {
		t.Fatalf("MoveStory: %v", err)
	}
	if movedStep != "stp_2" {
		t.Fatalf("step not moved: %q", movedStep)
	}
	if movedRelease != "rel_unassigned" {
		t.Fatalf("omitted release should keep the current one, got %q", movedRelease)
	}
}

func TestMoveStoryRejectsCrossMapStep(t *testing.T) {
	fs := storyTestStore()
	fs.getStepFn = func(_ context.Context, id string) (store.Step, error) {
		return store.Step{ID: id, StoryMapID: "map_other"}, nil
	}
	svc := newTestService(fs)
	_, err := svc.MoveStory(context.Background(), testSession("usr_owner", "O"), "sty_1", MoveStoryInput{StepID: "stp_9"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestDeleteStoryCleansUpBlobsAndIndex(t *testing.T) {
	fs := storyTestStore()
	fs.deleteStoryFn = func(_ context.Context, storyID string) (int, []store.Attachment, error) {
		return 2, []store.Attachment{
			{ID: "att_1", StoryID: storyID, ObjectKey: "map_1/sty_1/report.pdf"},
		}, nil
	}
	searcher := &fakeSearcher{}
	files := newFakeFiles()
	files.blobs["map_1/sty_1/report.pdf"] = []byte("pdf")
	svc := newTestService(fs)
	svc.search = searcher
	svc.files = files

	out, err := svc.DeleteStory(context.Background(), testSession("usr_owner", "O"), "sty_1")
	if err != nil {
		t.Fatalf("DeleteStory: %v", err)
	}
	if out.DependenciesRemoved != 2 {
		t.Fatalf("expected 2 dependencies removed, got %d", out.DependenciesRemoved)
	}
	if _, ok := files.blobs["map_1/sty_1/report.pdf"]; ok {
		t.Fatal("attachment blob not removed")
	}
	if len(searcher.removed) != 1 || searcher.removed[0] != "sty_1" {
		t.Fatalf("story not removed from index: %v", searcher.removed)
	}
}

func TestSearchStoriesWithoutSearcher(t *testing.T) {
	svc := newTestService(storyTestStore())
	out, err := svc.SearchStories(context.Background(), testSession("usr_owner", "O"), "map_1", "card")
	if err != nil {
		t.Fatalf("SearchStories: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty result without a searcher, got %v", out)
	}
}
