package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"storymapper/api/internal/store"
)

func commentTestStore() *fakeStore {
	return &fakeStore{
		getStoryMapFn: func(_ context.Context, id string) (store.StoryMap, error) {
			return store.StoryMap{ID: id, OwnerID: "usr_owner"}, nil
		},
		getMemberRoleFn: func(_ context.Context, _, userID string) (string, error) {
			switch userID {
			case "usr_author":
				return "commenter", nil
			case "usr_other":
				return "editor", nil
			}
			return "", sql.ErrNoRows
		},
		getStoryFn: func(_ context.Context, id string) (store.Story, error) {
			return store.Story{ID: id, StoryMapID: "map_1"}, nil
		},
		getCommentFn: func(_ context.Context, id string) (store.Comment, error) {
			return store.Comment{
				ID:         id,
				StoryID:    "sty_1",
				AuthorID:   "usr_author",
				AuthorName: "Dana",
				Content:    "needs a spinner",
			}, nil
		},
	}
}

func TestCreateCommentSnapshotsAuthorName(t *testing.T) {
	fs := commentTestStore()
	var inserted store.Comment
	fs.insertCommentFn = func(_ context.Context, c store.Comment) error {
		inserted = c
		return nil
	}
	fs.getCommentFn = func(_ context.Context, id string) (store.Comment, error) {
		return inserted, nil
	}
	svc := newTestService(fs)

	out, err := svc.CreateComment(context.Background(), testSession("usr_author", "Dana"), "sty_1", CommentInput{
		Content: "  needs a spinner  ",
	})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if inserted.AuthorName != "Dana" {
		t.Fatalf("author name not snapshotted: %q", inserted.AuthorName)
	}
	if out.Content != "needs a spinner" {
		t.Fatalf("content not trimmed: %q", out.Content)
	}
}

func TestUpdateCommentAuthorOrAdminOnly(t *testing.T) {
	fs := commentTestStore()
	svc := newTestService(fs)
	ctx := context.Background()
	content := CommentInput{Content: "revised"}

	// An editor who is not the author cannot touch it.
	_, err := svc.UpdateComment(ctx, testSession("usr_other", "Robin"), "cmt_1", content)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "PERMISSION_DENIED" {
		t.Fatalf("expected PERMISSION_DENIED, got %v", err)
	}

	if _, err := svc.UpdateComment(ctx, testSession("usr_author", "Dana"), "cmt_1", content); err != nil {
		t.Fatalf("author update: %v", err)
	}
	if _, err := svc.DeleteComment(ctx, testSession("usr_owner", "Owner"), "cmt_1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}
