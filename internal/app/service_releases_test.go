package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"storymapper/api/internal/store"
)

func releaseTestStore(unassigned bool) *fakeStore {
	return &fakeStore{
		getStoryMapFn: func(_ context.Context, id string) (store.StoryMap, error) {
			return store.StoryMap{ID: id, OwnerID: "usr_owner"}, nil
		},
		getReleaseFn: func(_ context.Context, id string) (store.Release, error) {
			return store.Release{
				ID:           id,
				StoryMapID:   "map_1",
				Name:         "Unassigned",
				IsUnassigned: unassigned,
			}, nil
		},
	}
}

func TestUpdateReleaseRejectsUnassigned(t *testing.T) {
	svc := newTestService(releaseTestStore(true))
	name := "MVP"
	_, err := svc.UpdateRelease(context.Background(), testSession("usr_owner", "O"), "rel_1", UpdateReleaseInput{Name: &name})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestUpdateReleaseDateOrdering(t *testing.T) {
	fs := releaseTestStore(false)
	svc := newTestService(fs)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, -7)
	_, err := svc.UpdateRelease(context.Background(), testSession("usr_owner", "O"), "rel_1", UpdateReleaseInput{
		StartDate: &start,
		DueDate:   &due,
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for due before start, got %v", err)
	}
}

func TestDeleteReleaseRejectsUnassigned(t *testing.T) {
	svc := newTestService(releaseTestStore(true))
	_, err := svc.DeleteRelease(context.Background(), testSession("usr_owner", "O"), "rel_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestDeleteReleaseReportsRelocatedStories(t *testing.T) {
	fs := releaseTestStore(false)
	var gotReleaseID, gotMapID string
	fs.deleteReleaseFn = func(_ context.Context, releaseID, storyMapID string) (int, error) {
		gotReleaseID, gotMapID = releaseID, storyMapID
		return 4, nil
	}
	svc := newTestService(fs)

	out, err := svc.DeleteRelease(context.Background(), testSession("usr_owner", "O"), "rel_1")
	if err != nil {
		t.Fatalf("DeleteRelease: %v", err)
	}
	if out.StoriesMoved != 4 {
		t.Fatalf("expected 4 relocated stories, got %d", out.StoriesMoved)
	}
	if gotReleaseID != "rel_1" || gotMapID != "map_1" {
		t.Fatalf("store delete got %s %s", gotReleaseID, gotMapID)
	}
}

func TestReorderReleaseRejectsUnassigned(t *testing.T) {
	svc := newTestService(releaseTestStore(true))
	_, err := svc.ReorderRelease(context.Background(), testSession("usr_owner", "O"), "rel_1", ReorderInput{NewSortOrder: 2})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestReorderReleaseClampsAboveUnassignedSlot(t *testing.T) {
	fs := releaseTestStore(false)
	gotIndex := -1
	fs.reorderReleasesFn = func(_ context.Context, _, _ string, newIndex int) error {
		gotIndex = newIndex
		return nil
	}
	svc := newTestService(fs)

	if _, err := svc.ReorderRelease(context.Background(), testSession("usr_owner", "O"), "rel_1", ReorderInput{NewSortOrder: 0}); err != nil {
		t.Fatalf("ReorderRelease: %v", err)
	}
	if gotIndex != 1 {
		t.Fatalf("expected target clamped to 1, got %d", gotIndex)
	}
}

func TestCreateReleaseRequiresWriteAccess(t *testing.T) {
	fs := releaseTestStore(false)
	fs.getMemberRoleFn = func(context.Context, string, string) (string, error) {
		return "viewer", nil
	}
	svc := newTestService(fs)
	_, err := svc.CreateRelease(context.Background(), testSession("usr_viewer", "V"), "map_1", CreateReleaseInput{Name: "MVP"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "PERMISSION_DENIED" {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}
}
