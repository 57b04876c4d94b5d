package app

import (
	"context"
	"errors"
	"testing"

	"storymapper/api/internal/store"
)

func TestCreateStoryMapSeedsUnassignedRelease(t *testing.T) {
	var gotRelease store.Release
	var created store.StoryMap
	fs := &fakeStore{
		createStoryMapFn: func(_ context.Context, m store.StoryMap, rel store.Release) error {
			created = m
			gotRelease = rel
			return nil
		},
	}
	fs.getStoryMapFn = func(_ context.Context, id string) (store.StoryMap, error) {
		return created, nil
	}
	svc := newTestService(fs)

	out, err := svc.CreateStoryMap(context.Background(), testSession("usr_1", "Dana"), CreateStoryMapInput{
		Name: "  Checkout Flow  ",
	})
	if err != nil {
		t.Fatalf("CreateStoryMap: %v", err)
	}
	if out.Name != "Checkout Flow" {
		t.Fatalf("name not trimmed: %q", out.Name)
	}
	if created.OwnerID != "usr_1" {
		t.Fatalf("owner not set from session: %q", created.OwnerID)
	}
	if !gotRelease.IsUnassigned || gotRelease.Name != "Unassigned" || gotRelease.SortOrder != 0 {
		t.Fatalf("unexpected seed release: %+v", gotRelease)
	}
	if gotRelease.StoryMapID != created.ID {
		t.Fatal("seed release not bound to the new map")
	}
}

func TestCreateStoryMapRequiresName(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.CreateStoryMap(context.Background(), testSession("usr_1", "Dana"), CreateStoryMapInput{Name: "   "})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestDeleteStoryMapIsOwnerOnly(t *testing.T) {
	deleted := false
	fs := &fakeStore{
		getStoryMapFn: func(_ context.Context, id string) (store.StoryMap, error) {
			return store.StoryMap{ID: id, OwnerID: "usr_owner"}, nil
		},
		getMemberRoleFn: func(_ context.Context, _, _ string) (string, error) {
			return "admin", nil
		},
		deleteStoryMapFn: func(context.Context, string) error {
			deleted = true
			return nil
		},
	}
	searcher := &fakeSearcher{}
	svc := newTestService(fs)
	svc.search = searcher
	ctx := context.Background()

	// A member with the admin role is still not the owner.
	err := svc.DeleteStoryMap(ctx, testSession("usr_member", "M"), "map_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "PERMISSION_DENIED" {
		t.Fatalf("expected PERMISSION_DENIED for non-owner, got %v", err)
	}
	if deleted {
		t.Fatal("store delete should not have run")
	}

	if err := svc.DeleteStoryMap(ctx, testSession("usr_owner", "O"), "map_1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if !deleted {
		t.Fatal("store delete did not run")
	}
	if len(searcher.removed) != 1 || searcher.removed[0] != "map_1" {
		t.Fatalf("search index not purged: %v", searcher.removed)
	}
}

func TestAddMemberValidation(t *testing.T) {
	fs := &fakeStore{
		getStoryMapFn: func(_ context.Context, id string) (store.StoryMap, error) {
			return store.StoryMap{ID: id, OwnerID: "usr_owner"}, nil
		},
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if email == "owner@example.com" {
				return store.User{ID: "usr_owner", Email: email}, nil
			}
			return store.User{ID: "usr_2", Email: email, DisplayName: "Robin"}, nil
		},
	}
	svc := newTestService(fs)
	ctx := context.Background()
	owner := testSession("usr_owner", "Owner")

	_, err := svc.AddMember(ctx, owner, "map_1", MemberInput{Email: "robin@example.com", Role: "superuser"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for unknown role, got %v", err)
	}

	_, err = svc.AddMember(ctx, owner, "map_1", MemberInput{Email: "owner@example.com", Role: "editor"})
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION" {
		t.Fatalf("expected VALIDATION for owner-as-member, got %v", err)
	}

	member, err := svc.AddMember(ctx, owner, "map_1", MemberInput{Email: " Robin@Example.com ", Role: "editor"})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if member.UserID != "usr_2" || member.Role != "editor" {
		t.Fatalf("unexpected member: %+v", member)
	}
}
