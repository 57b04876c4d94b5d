package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

func (s *Service) CreateJourney(ctx context.Context, session Session, storyMapID string, input CreateJourneyInput) (wireJourney, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionWrite); err != nil {
		return wireJourney{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return wireJourney{}, validationError("name is required", nil)
	}

	j := store.Journey{
		ID:          util.NewID("jrn"),
		StoryMapID:  storyMapID,
		Name:        name,
		Description: input.Description,
		Color:       input.Color,
		CreatedBy:   session.UserID,
		UpdatedBy:   session.UserID,
	}
	created, err := s.store.InsertJourney(ctx, j)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	return toWireJourney(created), nil
}

func (s *Service) ListJourneys(ctx context.Context, session Session, storyMapID string) ([]wireJourney, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	journeys, err := s.store.ListJourneys(ctx, storyMapID)
	if err != nil {
		return nil, err
	}
	return toWireJourneys(journeys), nil
}

func (s *Service) GetJourney(ctx context.Context, session Session, journeyID string) (wireJourney, error) {
	j, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	if err := s.requireAccess(ctx, session, j.StoryMapID, rbac.ActionRead); err != nil {
		return wireJourney{}, err
	}
	return toWireJourney(j), nil
}

func (s *Service) UpdateJourney(ctx context.Context, session Session, journeyID string, input UpdateJourneyInput) (wireJourney, error) {
	j, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	if err := s.requireAccess(ctx, session, j.StoryMapID, rbac.ActionWrite); err != nil {
		return wireJourney{}, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return wireJourney{}, validationError("name cannot be empty", nil)
		}
		j.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		j.Description = *input.Description
	}
	if input.Color != nil {
		j.Color = *input.Color
	}
	j.UpdatedBy = session.UserID
	if err := s.store.UpdateJourney(ctx, j); err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	updated, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	return toWireJourney(updated), nil
}

// DeleteJourney cascades to the journey's steps and their stories, and
// the surviving journeys are renumbered to stay dense.
func (s *Service) DeleteJourney(ctx context.Context, session Session, journeyID string) (wireJourney, error) {
	j, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	if err := s.requireAccess(ctx, session, j.StoryMapID, rbac.ActionWrite); err != nil {
		return wireJourney{}, err
	}
	if err := s.store.DeleteJourney(ctx, journeyID, j.StoryMapID); err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	return toWireJourney(j), nil
}

func (s *Service) ReorderJourney(ctx context.Context, session Session, journeyID string, input ReorderInput) (wireJourney, error) {
	j, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	if err := s.requireAccess(ctx, session, j.StoryMapID, rbac.ActionWrite); err != nil {
		return wireJourney{}, err
	}
	if err := s.store.ReorderJourneys(ctx, j.StoryMapID, journeyID, input.NewSortOrder); err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	moved, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return wireJourney{}, translateStoreError(err, "journey")
	}
	return toWireJourney(moved), nil
}
