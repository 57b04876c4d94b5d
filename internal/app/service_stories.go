package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

var allowedStoryStatuses = map[string]struct{}{
	store.StatusNotReady:   {},
	store.StatusReady:      {},
	store.StatusInProgress: {},
	store.StatusDone:       {},
	store.StatusBlocked:    {},
}

// StoryDetail bundles a story with its related entities for the detail
// endpoint.
type StoryDetail struct {
	Story       wireStory        `json:"story"`
	Tags        []wireTag        `json:"tags"`
	Personas    []wirePersona    `json:"personas"`
	Links       []wireStoryLink  `json:"links"`
	Comments    []wireComment    `json:"comments"`
	Attachments []wireAttachment `json:"attachments"`
}

// StoryDeleted reports the side effects of a story deletion.
type StoryDeleted struct {
	Story               wireStory `json:"story"`
	DependenciesRemoved int       `json:"dependencies_removed"`
}

// CreateStory places a story in the (step, release) cell. When no
// release is named the story lands in the map's unassigned release.
func (s *Service) CreateStory(ctx context.Context, session Session, input CreateStoryInput) (wireStory, error) {
	step, err := s.store.GetStep(ctx, input.StepID)
	if err != nil {
		return wireStory{}, translateStoreError(err, "step")
	}
	if err := s.requireAccess(ctx, session, step.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStory{}, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return wireStory{}, validationError("title is required", nil)
	}

	releaseID := input.ReleaseID
	if releaseID == "" {
		unassigned, err := s.store.GetUnassignedRelease(ctx, step.StoryMapID)
		if err != nil {
			return wireStory{}, translateStoreError(err, "release")
		}
		releaseID = unassigned.ID
	} else {
		release, err := s.store.GetRelease(ctx, releaseID)
		if err != nil {
			return wireStory{}, translateStoreError(err, "release")
		}
		if release.StoryMapID != step.StoryMapID {
			return wireStory{}, validationError("release belongs to a different story map", nil)
		}
	}

	status := input.Status
	if status == "" {
		status = store.StatusNotReady
	}
	if _, ok := allowedStoryStatuses[status]; !ok {
		return wireStory{}, validationError("unknown status", map[string]any{"status": input.Status})
	}

	st := store.Story{
		ID:          util.NewID("sty"),
		StepID:      input.StepID,
		ReleaseID:   releaseID,
		Title:       title,
		Description: input.Description,
		Status:      status,
		Size:        input.Size,
		Labels:      input.Labels,
		CreatedBy:   session.UserID,
		UpdatedBy:   session.UserID,
	}
	created, err := s.store.InsertStory(ctx, st)
	if err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	created.StoryMapID = step.StoryMapID
	if s.search != nil {
		s.search.IndexStory(created)
	}
	return toWireStory(created), nil
}

func (s *Service) GetStory(ctx context.Context, session Session, storyID string) (StoryDetail, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return StoryDetail{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionRead); err != nil {
		return StoryDetail{}, err
	}

	tags, err := s.store.ListTagsForStory(ctx, storyID)
	if err != nil {
		return StoryDetail{}, err
	}
	personas, err := s.store.ListPersonasForStory(ctx, storyID)
	if err != nil {
		return StoryDetail{}, err
	}
	links, err := s.store.ListLinksForStory(ctx, storyID)
	if err != nil {
		return StoryDetail{}, err
	}
	comments, err := s.store.ListComments(ctx, storyID)
	if err != nil {
		return StoryDetail{}, err
	}
	attachments, err := s.store.ListAttachments(ctx, storyID)
	if err != nil {
		return StoryDetail{}, err
	}

	detail := StoryDetail{
		Story:       toWireStory(st),
		Tags:        make([]wireTag, 0, len(tags)),
		Personas:    make([]wirePersona, 0, len(personas)),
		Links:       make([]wireStoryLink, 0, len(links)),
		Comments:    make([]wireComment, 0, len(comments)),
		Attachments: make([]wireAttachment, 0, len(attachments)),
	}
	for _, t := range tags {
		detail.Tags = append(detail.Tags, toWireTag(t))
	}
	for _, p := range personas {
		detail.Personas = append(detail.Personas, toWirePersona(p))
	}
	for _, l := range links {
		detail.Links = append(detail.Links, toWireStoryLink(l))
	}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, toWireComment(c))
	}
	for _, a := range attachments {
		detail.Attachments = append(detail.Attachments, toWireAttachment(a))
	}
	return detail, nil
}

func (s *Service) ListStoriesByStep(ctx context.Context, session Session, stepID string) ([]wireStory, error) {
	step, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return nil, translateStoreError(err, "step")
	}
	if err := s.requireAccess(ctx, session, step.StoryMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	stories, err := s.store.ListStoriesByStep(ctx, stepID)
	if err != nil {
		return nil, err
	}
	return toWireStories(stories), nil
}

func (s *Service) UpdateStory(ctx context.Context, session Session, storyID string, input UpdateStoryInput) (wireStory, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStory{}, err
	}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return wireStory{}, validationError("title cannot be empty", nil)
		}
		st.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		st.Description = *input.Description
	}
	if input.Status != nil {
		if _, ok := allowedStoryStatuses[*input.Status]; !ok {
			return wireStory{}, validationError("unknown status", map[string]any{"status": *input.Status})
		}
		st.Status = *input.Status
	}
	if input.Size != nil {
		if *input.Size < 0 {
			return wireStory{}, validationError("size cannot be negative", nil)
		}
		st.Size = input.Size
	}
	if input.Labels != nil {
		st.Labels = *input.Labels
	}
	// The spaced cell keys leave room for direct position patches within
	// a cell, no neighbor rewrite needed.
	if input.SortOrder != nil {
		if *input.SortOrder < 0 {
			return wireStory{}, validationError("sort_order cannot be negative", nil)
		}
		st.SortOrder = *input.SortOrder
	}
	st.UpdatedBy = session.UserID
	if err := s.store.UpdateStory(ctx, st); err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	updated, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	if s.search != nil {
		s.search.IndexStory(updated)
	}
	return toWireStory(updated), nil
}

// MoveStory relocates a story to another (step, release) cell. Both
// targets must live on the story's own map; the new sort key is derived
// from the destination cell's population.
func (s *Service) MoveStory(ctx context.Context, session Session, storyID string, input MoveStoryInput) (wireStory, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStory{}, err
	}

	stepID := input.StepID
	if stepID == "" {
		stepID = st.StepID
	}
	releaseID := input.ReleaseID
	if releaseID == "" {
		releaseID = st.ReleaseID
	}

	if stepID != st.StepID {
		step, err := s.store.GetStep(ctx, stepID)
		if err != nil {
			return wireStory{}, translateStoreError(err, "step")
		}
		if step.StoryMapID != st.StoryMapID {
			return wireStory{}, validationError("step belongs to a different story map", nil)
		}
	}
	if releaseID != st.ReleaseID {
		release, err := s.store.GetRelease(ctx, releaseID)
		if err != nil {
			return wireStory{}, translateStoreError(err, "release")
		}
		if release.StoryMapID != st.StoryMapID {
			return wireStory{}, validationError("release belongs to a different story map", nil)
		}
	}

	if _, err := s.store.MoveStory(ctx, storyID, stepID, releaseID, session.UserID); err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	moved, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return wireStory{}, translateStoreError(err, "story")
	}
	if s.search != nil {
		s.search.IndexStory(moved)
	}
	return toWireStory(moved), nil
}

// DeleteStory removes the story and everything attached to it. Object
// storage cleanup happens after the database commit; an orphaned blob
// is preferable to a dangling database row.
func (s *Service) DeleteStory(ctx context.Context, session Session, storyID string) (StoryDeleted, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return StoryDeleted{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return StoryDeleted{}, err
	}
	linksRemoved, attachments, err := s.store.DeleteStory(ctx, storyID)
	if err != nil {
		return StoryDeleted{}, translateStoreError(err, "story")
	}
	if s.files != nil {
		for _, a := range attachments {
			_ = s.files.Remove(ctx, a.ObjectKey)
		}
	}
	if s.search != nil {
		s.search.RemoveStory(st.StoryMapID, storyID)
	}
	return StoryDeleted{Story: toWireStory(st), DependenciesRemoved: linksRemoved}, nil
}

// SearchStories runs full-text search scoped to one story map.
// StoryMapIDForStory resolves the story map a story belongs to, after
// checking the requester may read that map. The collaboration gateway
// uses it to pin events to the story's real map instead of trusting the
// client-claimed one.
func (s *Service) StoryMapIDForStory(ctx context.Context, session Session, storyID string) (string, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return "", translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionRead); err != nil {
		return "", err
	}
	return st.StoryMapID, nil
}

func (s *Service) SearchStories(ctx context.Context, session Session, storyMapID, query string) ([]wireStory, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	if s.search == nil {
		return []wireStory{}, nil
	}
	stories, err := s.search.Search(ctx, storyMapID, query)
	if err != nil {
		return nil, err
	}
	return toWireStories(stories), nil
}
