package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

func (s *Service) CreateRelease(ctx context.Context, session Session, storyMapID string, input CreateReleaseInput) (wireRelease, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionWrite); err != nil {
		return wireRelease{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return wireRelease{}, validationError("name is required", nil)
	}
	if input.StartDate != nil && input.DueDate != nil && input.DueDate.Before(*input.StartDate) {
		return wireRelease{}, validationError("due_date cannot precede start_date", nil)
	}

	r := store.Release{
		ID:          util.NewID("rel"),
		StoryMapID:  storyMapID,
		Name:        name,
		Description: input.Description,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		CreatedBy:   session.UserID,
		UpdatedBy:   session.UserID,
	}
	created, err := s.store.InsertRelease(ctx, r)
	if err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	return toWireRelease(created), nil
}

func (s *Service) ListReleases(ctx context.Context, session Session, storyMapID string) ([]wireRelease, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	releases, err := s.store.ListReleases(ctx, storyMapID)
	if err != nil {
		return nil, err
	}
	return toWireReleases(releases), nil
}

func (s *Service) GetRelease(ctx context.Context, session Session, releaseID string) (wireRelease, error) {
	r, err := s.store.GetRelease(ctx, releaseID)
	if err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	if err := s.requireAccess(ctx, session, r.StoryMapID, rbac.ActionRead); err != nil {
		return wireRelease{}, err
	}
	return toWireRelease(r), nil
}

func (s *Service) UpdateRelease(ctx context.Context, session Session, releaseID string, input UpdateReleaseInput) (wireRelease, error) {
	r, err := s.store.GetRelease(ctx, releaseID)
	if err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	if err := s.requireAccess(ctx, session, r.StoryMapID, rbac.ActionWrite); err != nil {
		return wireRelease{}, err
	}
	// The unassigned release is structural; only shipping state of real
	// releases can change and its name stays fixed.
	if r.IsUnassigned {
		return wireRelease{}, validationError("the unassigned release cannot be edited", nil)
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return wireRelease{}, validationError("name cannot be empty", nil)
		}
		r.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		r.Description = *input.Description
	}
	if input.StartDate != nil {
		r.StartDate = input.StartDate
	}
	if input.DueDate != nil {
		r.DueDate = input.DueDate
	}
	if input.Shipped != nil {
		r.Shipped = *input.Shipped
	}
	if r.StartDate != nil && r.DueDate != nil && r.DueDate.Before(*r.StartDate) {
		return wireRelease{}, validationError("due_date cannot precede start_date", nil)
	}
	r.UpdatedBy = session.UserID
	if err := s.store.UpdateRelease(ctx, r); err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	updated, err := s.store.GetRelease(ctx, releaseID)
	if err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	return toWireRelease(updated), nil
}

// ReleaseDeleted reports what a release deletion did to the board.
type ReleaseDeleted struct {
	Release      wireRelease `json:"release"`
	StoriesMoved int         `json:"stories_moved"`
}

// DeleteRelease relocates the release's stories to the unassigned
// release rather than dropping them.
func (s *Service) DeleteRelease(ctx context.Context, session Session, releaseID string) (ReleaseDeleted, error) {
	r, err := s.store.GetRelease(ctx, releaseID)
	if err != nil {
		return ReleaseDeleted{}, translateStoreError(err, "release")
	}
	if err := s.requireAccess(ctx, session, r.StoryMapID, rbac.ActionWrite); err != nil {
		return ReleaseDeleted{}, err
	}
	if r.IsUnassigned {
		return ReleaseDeleted{}, validationError("the unassigned release cannot be deleted", nil)
	}
	moved, err := s.store.DeleteRelease(ctx, releaseID, r.StoryMapID)
	if err != nil {
		return ReleaseDeleted{}, translateStoreError(err, "release")
	}
	return ReleaseDeleted{Release: toWireRelease(r), StoriesMoved: moved}, nil
}

func (s *Service) ReorderRelease(ctx context.Context, session Session, releaseID string, input ReorderInput) (wireRelease, error) {
	r, err := s.store.GetRelease(ctx, releaseID)
	if err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	if err := s.requireAccess(ctx, session, r.StoryMapID, rbac.ActionWrite); err != nil {
		return wireRelease{}, err
	}
	// The unassigned release stays pinned at position 0; other releases
	// cannot displace it, so targets below 1 clamp to 1.
	if r.IsUnassigned {
		return wireRelease{}, validationError("the unassigned release cannot be reordered", nil)
	}
	target := input.NewSortOrder
	if target < 1 {
		target = 1
	}
	if err := s.store.ReorderReleases(ctx, r.StoryMapID, releaseID, target); err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	moved, err := s.store.GetRelease(ctx, releaseID)
	if err != nil {
		return wireRelease{}, translateStoreError(err, "release")
	}
	return toWireRelease(moved), nil
}
