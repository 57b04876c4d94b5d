package app

import (
	"context"
	"errors"
	"testing"

	"storymapper/api/internal/store"
)

func linkTestStore() *fakeStore {
	return &fakeStore{
		getStoryMapFn: func(_ context.Context, id string) (store.StoryMap, error) {
			return store.StoryMap{ID: id, OwnerID: "usr_owner"}, nil
		},
		getStoryFn: func(_ context.Context, id string) (store.Story, error) {
			mapID := "map_1"
			if id == "sty_elsewhere" {
				mapID = "map_other"
			}
			return store.Story{ID: id, StoryMapID: mapID}, nil
		},
	}
}

func TestCreateStoryLinkValidation(t *testing.T) {
	svc := newTestService(linkTestStore())
	ctx := context.Background()
	owner := testSession("usr_owner", "O")
	var domainErr *DomainError

	_, err := svc.CreateStoryLink(ctx, owner, CreateLinkInput{
		SourceStoryID: "sty_1", TargetStoryID: "sty_1", LinkType: store.LinkBlocks,
	})
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for self-link, got %v", err)
	}

	_, err = svc.CreateStoryLink(ctx, owner, CreateLinkInput{
		SourceStoryID: "sty_1", TargetStoryID: "sty_2", LinkType: "relates_somehow",
	})
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for unknown link type, got %v", err)
	}

	_, err = svc.CreateStoryLink(ctx, owner, CreateLinkInput{
		SourceStoryID: "sty_1", TargetStoryID: "sty_elsewhere", LinkType: store.LinkBlocks,
	})
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for cross-map link, got %v", err)
	}
}

func TestCreateStoryLink(t *testing.T) {
	fs := linkTestStore()
	var inserted store.StoryLink
	fs.insertStoryLinkFn = func(_ context.Context, l store.StoryLink) error {
		inserted = l
		return nil
	}
	fs.getStoryLinkFn = func(_ context.Context, id string) (store.StoryLink, error) {
		return inserted, nil
	}
	svc := newTestService(fs)

	out, err := svc.CreateStoryLink(context.Background(), testSession("usr_owner", "O"), CreateLinkInput{
		SourceStoryID: "sty_1", TargetStoryID: "sty_2", LinkType: store.LinkIsBlockedBy,
	})
	if err != nil {
		t.Fatalf("CreateStoryLink: %v", err)
	}
	if out.LinkType != store.LinkIsBlockedBy || out.SourceStoryID != "sty_1" || out.TargetStoryID != "sty_2" {
		t.Fatalf("unexpected link: %+v", out)
	}
}
