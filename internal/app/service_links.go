package app

import (
	"context"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

var allowedLinkTypes = map[string]struct{}{
	store.LinkLinkedTo:       {},
	store.LinkBlocks:         {},
	store.LinkIsBlockedBy:    {},
	store.LinkDuplicates:     {},
	store.LinkIsDuplicatedBy: {},
}

// CreateStoryLink connects two stories on the same map. Self-links and
// duplicate (source, target, type) edges are rejected.
func (s *Service) CreateStoryLink(ctx context.Context, session Session, input CreateLinkInput) (wireStoryLink, error) {
	if input.SourceStoryID == input.TargetStoryID {
		return wireStoryLink{}, validationError("a story cannot link to itself", nil)
	}
	if _, ok := allowedLinkTypes[input.LinkType]; !ok {
		return wireStoryLink{}, validationError("unknown link type", map[string]any{"link_type": input.LinkType})
	}

	source, err := s.store.GetStory(ctx, input.SourceStoryID)
	if err != nil {
		return wireStoryLink{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, source.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStoryLink{}, err
	}
	target, err := s.store.GetStory(ctx, input.TargetStoryID)
	if err != nil {
		return wireStoryLink{}, translateStoreError(err, "story")
	}
	if target.StoryMapID != source.StoryMapID {
		return wireStoryLink{}, validationError("stories belong to different story maps", nil)
	}

	l := store.StoryLink{
		ID:            util.NewID("lnk"),
		SourceStoryID: input.SourceStoryID,
		TargetStoryID: input.TargetStoryID,
		LinkType:      input.LinkType,
	}
	if err := s.store.InsertStoryLink(ctx, l); err != nil {
		return wireStoryLink{}, translateStoreError(err, "story link")
	}
	created, err := s.store.GetStoryLink(ctx, l.ID)
	if err != nil {
		return wireStoryLink{}, translateStoreError(err, "story link")
	}
	return toWireStoryLink(created), nil
}

func (s *Service) ListStoryLinks(ctx context.Context, session Session, storyID string) ([]wireStoryLink, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	links, err := s.store.ListLinksForStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]wireStoryLink, 0, len(links))
	for _, l := range links {
		out = append(out, toWireStoryLink(l))
	}
	return out, nil
}

func (s *Service) DeleteStoryLink(ctx context.Context, session Session, linkID string) (wireStoryLink, error) {
	l, err := s.store.GetStoryLink(ctx, linkID)
	if err != nil {
		return wireStoryLink{}, translateStoreError(err, "story link")
	}
	source, err := s.store.GetStory(ctx, l.SourceStoryID)
	if err != nil {
		return wireStoryLink{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, source.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStoryLink{}, err
	}
	if err := s.store.DeleteStoryLink(ctx, linkID); err != nil {
		return wireStoryLink{}, translateStoreError(err, "story link")
	}
	return toWireStoryLink(l), nil
}
