package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

func (s *Service) CreateStep(ctx context.Context, session Session, input CreateStepInput) (wireStep, error) {
	j, err := s.store.GetJourney(ctx, input.JourneyID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "journey")
	}
	if err := s.requireAccess(ctx, session, j.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStep{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return wireStep{}, validationError("name is required", nil)
	}

	st := store.Step{
		ID:          util.NewID("stp"),
		JourneyID:   input.JourneyID,
		Name:        name,
		Description: input.Description,
		CreatedBy:   session.UserID,
		UpdatedBy:   session.UserID,
	}
	created, err := s.store.InsertStep(ctx, st)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	created.StoryMapID = j.StoryMapID
	return toWireStep(created), nil
}

func (s *Service) ListSteps(ctx context.Context, session Session, journeyID string) ([]wireStep, error) {
	j, err := s.store.GetJourney(ctx, journeyID)
	if err != nil {
		return nil, translateStoreError(err, "journey")
	}
	if err := s.requireAccess(ctx, session, j.StoryMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	steps, err := s.store.ListSteps(ctx, journeyID)
	if err != nil {
		return nil, err
	}
	return toWireSteps(steps), nil
}

func (s *Service) GetStep(ctx context.Context, session Session, stepID string) (wireStep, error) {
	st, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionRead); err != nil {
		return wireStep{}, err
	}
	return toWireStep(st), nil
}

func (s *Service) UpdateStep(ctx context.Context, session Session, stepID string, input UpdateStepInput) (wireStep, error) {
	st, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStep{}, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return wireStep{}, validationError("name cannot be empty", nil)
		}
		st.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		st.Description = *input.Description
	}
	st.UpdatedBy = session.UserID
	if err := s.store.UpdateStep(ctx, st); err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	updated, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	return toWireStep(updated), nil
}

func (s *Service) DeleteStep(ctx context.Context, session Session, stepID string) (wireStep, error) {
	st, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStep{}, err
	}
	if err := s.store.DeleteStep(ctx, stepID, st.JourneyID); err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	return toWireStep(st), nil
}

func (s *Service) ReorderStep(ctx context.Context, session Session, stepID string, input ReorderInput) (wireStep, error) {
	st, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return wireStep{}, err
	}
	if err := s.store.ReorderSteps(ctx, st.JourneyID, stepID, input.NewSortOrder); err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	moved, err := s.store.GetStep(ctx, stepID)
	if err != nil {
		return wireStep{}, translateStoreError(err, "step")
	}
	return toWireStep(moved), nil
}
