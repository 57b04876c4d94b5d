package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

func (s *Service) CreateTag(ctx context.Context, session Session, storyMapID string, input CreateTagInput) (wireTag, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionWrite); err != nil {
		return wireTag{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return wireTag{}, validationError("name is required", nil)
	}

	t := store.Tag{
		ID:         util.NewID("tag"),
		StoryMapID: storyMapID,
		Name:       name,
		Color:      input.Color,
	}
	if err := s.store.InsertTag(ctx, t); err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	created, err := s.store.GetTag(ctx, t.ID)
	if err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	return toWireTag(created), nil
}

func (s *Service) ListTags(ctx context.Context, session Session, storyMapID string) ([]wireTag, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	tags, err := s.store.ListTags(ctx, storyMapID)
	if err != nil {
		return nil, err
	}
	out := make([]wireTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, toWireTag(t))
	}
	return out, nil
}

func (s *Service) UpdateTag(ctx context.Context, session Session, tagID string, input UpdateTagInput) (wireTag, error) {
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	if err := s.requireAccess(ctx, session, t.StoryMapID, rbac.ActionWrite); err != nil {
		return wireTag{}, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return wireTag{}, validationError("name cannot be empty", nil)
		}
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Color != nil {
		t.Color = *input.Color
	}
	if err := s.store.UpdateTag(ctx, t); err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	updated, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	return toWireTag(updated), nil
}

func (s *Service) DeleteTag(ctx context.Context, session Session, tagID string) (wireTag, error) {
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	if err := s.requireAccess(ctx, session, t.StoryMapID, rbac.ActionWrite); err != nil {
		return wireTag{}, err
	}
	if err := s.store.DeleteTag(ctx, tagID); err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	return toWireTag(t), nil
}

// storyAndTagOnSameMap loads both and rejects cross-map pairs.
func (s *Service) storyAndTagOnSameMap(ctx context.Context, session Session, storyID, tagID string) (store.Story, store.Tag, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return store.Story{}, store.Tag{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return store.Story{}, store.Tag{}, err
	}
	t, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return store.Story{}, store.Tag{}, translateStoreError(err, "tag")
	}
	if t.StoryMapID != st.StoryMapID {
		return store.Story{}, store.Tag{}, validationError("tag belongs to a different story map", nil)
	}
	return st, t, nil
}

func (s *Service) AssignTag(ctx context.Context, session Session, storyID, tagID string) (wireTag, error) {
	_, t, err := s.storyAndTagOnSameMap(ctx, session, storyID, tagID)
	if err != nil {
		return wireTag{}, err
	}
	if err := s.store.AssignTag(ctx, storyID, tagID); err != nil {
		return wireTag{}, translateStoreError(err, "tag")
	}
	return toWireTag(t), nil
}

func (s *Service) UnassignTag(ctx context.Context, session Session, storyID, tagID string) error {
	if _, _, err := s.storyAndTagOnSameMap(ctx, session, storyID, tagID); err != nil {
		return err
	}
	if err := s.store.UnassignTag(ctx, storyID, tagID); err != nil {
		return translateStoreError(err, "tag")
	}
	return nil
}
