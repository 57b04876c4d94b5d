package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

// CreateComment snapshots the author's display name so the comment
// stays attributed even if the profile is renamed later.
func (s *Service) CreateComment(ctx context.Context, session Session, storyID string, input CommentInput) (wireComment, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return wireComment{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionComment); err != nil {
		return wireComment{}, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return wireComment{}, validationError("content is required", nil)
	}

	c := store.Comment{
		ID:         util.NewID("cmt"),
		StoryID:    storyID,
		AuthorID:   session.UserID,
		AuthorName: session.UserName,
		Content:    content,
	}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return wireComment{}, translateStoreError(err, "comment")
	}
	created, err := s.store.GetComment(ctx, c.ID)
	if err != nil {
		return wireComment{}, translateStoreError(err, "comment")
	}
	return toWireComment(created), nil
}

func (s *Service) ListComments(ctx context.Context, session Session, storyID string) ([]wireComment, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]wireComment, 0, len(comments))
	for _, c := range comments {
		out = append(out, toWireComment(c))
	}
	return out, nil
}

// commentForEdit loads a comment and checks the requester may change
// it: the author may, and so may a map admin.
func (s *Service) commentForEdit(ctx context.Context, session Session, commentID string) (store.Comment, error) {
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return store.Comment{}, translateStoreError(err, "comment")
	}
	st, err := s.store.GetStory(ctx, c.StoryID)
	if err != nil {
		return store.Comment{}, translateStoreError(err, "story")
	}
	role, err := s.roleOnMap(ctx, session, st.StoryMapID)
	if err != nil {
		return store.Comment{}, err
	}
	if c.AuthorID != session.UserID && !rbac.Can(role, rbac.ActionAdmin) {
		return store.Comment{}, permissionDeniedError("edit this comment")
	}
	return c, nil
}

func (s *Service) UpdateComment(ctx context.Context, session Session, commentID string, input CommentInput) (wireComment, error) {
	c, err := s.commentForEdit(ctx, session, commentID)
	if err != nil {
		return wireComment{}, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return wireComment{}, validationError("content is required", nil)
	}
	c.Content = content
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return wireComment{}, translateStoreError(err, "comment")
	}
	updated, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return wireComment{}, translateStoreError(err, "comment")
	}
	return toWireComment(updated), nil
}

func (s *Service) DeleteComment(ctx context.Context, session Session, commentID string) (wireComment, error) {
	c, err := s.commentForEdit(ctx, session, commentID)
	if err != nil {
		return wireComment{}, err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return wireComment{}, translateStoreError(err, "comment")
	}
	return toWireComment(c), nil
}
