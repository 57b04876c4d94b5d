package app

import (
	"context"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

func (s *Service) CreatePersona(ctx context.Context, session Session, storyMapID string, input CreatePersonaInput) (wirePersona, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionWrite); err != nil {
		return wirePersona{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return wirePersona{}, validationError("name is required", nil)
	}

	p := store.Persona{
		ID:          util.NewID("per"),
		StoryMapID:  storyMapID,
		Name:        name,
		Description: input.Description,
		AvatarURL:   input.AvatarURL,
	}
	if err := s.store.InsertPersona(ctx, p); err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	created, err := s.store.GetPersona(ctx, p.ID)
	if err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	return toWirePersona(created), nil
}

func (s *Service) ListPersonas(ctx context.Context, session Session, storyMapID string) ([]wirePersona, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	personas, err := s.store.ListPersonas(ctx, storyMapID)
	if err != nil {
		return nil, err
	}
	out := make([]wirePersona, 0, len(personas))
	for _, p := range personas {
		out = append(out, toWirePersona(p))
	}
	return out, nil
}

func (s *Service) UpdatePersona(ctx context.Context, session Session, personaID string, input UpdatePersonaInput) (wirePersona, error) {
	p, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	if err := s.requireAccess(ctx, session, p.StoryMapID, rbac.ActionWrite); err != nil {
		return wirePersona{}, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return wirePersona{}, validationError("name cannot be empty", nil)
		}
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.AvatarURL != nil {
		p.AvatarURL = *input.AvatarURL
	}
	if err := s.store.UpdatePersona(ctx, p); err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	updated, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	return toWirePersona(updated), nil
}

func (s *Service) DeletePersona(ctx context.Context, session Session, personaID string) (wirePersona, error) {
	p, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	if err := s.requireAccess(ctx, session, p.StoryMapID, rbac.ActionWrite); err != nil {
		return wirePersona{}, err
	}
	if err := s.store.DeletePersona(ctx, personaID); err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	return toWirePersona(p), nil
}

func (s *Service) storyAndPersonaOnSameMap(ctx context.Context, session Session, storyID, personaID string) (store.Persona, error) {
	st, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return store.Persona{}, translateStoreError(err, "story")
	}
	if err := s.requireAccess(ctx, session, st.StoryMapID, rbac.ActionWrite); err != nil {
		return store.Persona{}, err
	}
	p, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return store.Persona{}, translateStoreError(err, "persona")
	}
	if p.StoryMapID != st.StoryMapID {
		return store.Persona{}, validationError("persona belongs to a different story map", nil)
	}
	return p, nil
}

func (s *Service) AssignPersona(ctx context.Context, session Session, storyID, personaID string) (wirePersona, error) {
	p, err := s.storyAndPersonaOnSameMap(ctx, session, storyID, personaID)
	if err != nil {
		return wirePersona{}, err
	}
	if err := s.store.AssignPersona(ctx, storyID, personaID); err != nil {
		return wirePersona{}, translateStoreError(err, "persona")
	}
	return toWirePersona(p), nil
}

func (s *Service) UnassignPersona(ctx context.Context, session Session, storyID, personaID string) error {
	if _, err := s.storyAndPersonaOnSameMap(ctx, session, storyID, personaID); err != nil {
		return err
	}
	if err := s.store.UnassignPersona(ctx, storyID, personaID); err != nil {
		return translateStoreError(err, "persona")
	}
	return nil
}
