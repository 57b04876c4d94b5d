package app

import (
	"context"
	"log"
	"strings"

	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

// CreateStoryMap creates the map together with its unassigned release,
// so every board starts with a row for unscheduled stories.
func (s *Service) CreateStoryMap(ctx context.Context, session Session, input CreateStoryMapInput) (wireStoryMap, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return wireStoryMap{}, validationError("name is required", nil)
	}

	m := store.StoryMap{
		ID:          util.NewID("map"),
		Name:        name,
		Description: input.Description,
		OwnerID:     session.UserID,
	}
	unassigned := store.Release{
		ID:           util.NewID("rel"),
		StoryMapID:   m.ID,
		Name:         "Unassigned",
		IsUnassigned: true,
		SortOrder:    0,
		CreatedBy:    session.UserID,
		UpdatedBy:    session.UserID,
	}
	if err := s.store.CreateStoryMap(ctx, m, unassigned); err != nil {
		return wireStoryMap{}, translateStoreError(err, "story map")
	}

	created, err := s.store.GetStoryMap(ctx, m.ID)
	if err != nil {
		return wireStoryMap{}, translateStoreError(err, "story map")
	}
	return toWireStoryMap(created), nil
}

func (s *Service) ListStoryMaps(ctx context.Context, session Session) ([]wireStoryMap, error) {
	maps, err := s.store.ListStoryMapsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]wireStoryMap, 0, len(maps))
	for _, m := range maps {
		out = append(out, toWireStoryMap(m))
	}
	return out, nil
}

func (s *Service) GetStoryMap(ctx context.Context, session Session, storyMapID string) (wireStoryMap, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return wireStoryMap{}, err
	}
	m, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return wireStoryMap{}, translateStoreError(err, "story map")
	}
	return toWireStoryMap(m), nil
}

// GetBoard assembles the full grid in one response.
func (s *Service) GetBoard(ctx context.Context, session Session, storyMapID string) (wireBoard, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return wireBoard{}, err
	}
	m, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return wireBoard{}, translateStoreError(err, "story map")
	}
	journeys, err := s.store.ListJourneys(ctx, storyMapID)
	if err != nil {
		return wireBoard{}, err
	}
	steps, err := s.store.ListStepsByMap(ctx, storyMapID)
	if err != nil {
		return wireBoard{}, err
	}
	releases, err := s.store.ListReleases(ctx, storyMapID)
	if err != nil {
		return wireBoard{}, err
	}
	stories, err := s.store.ListStoriesByMap(ctx, storyMapID)
	if err != nil {
		return wireBoard{}, err
	}
	return wireBoard{
		StoryMap: toWireStoryMap(m),
		Journeys: toWireJourneys(journeys),
		Steps:    toWireSteps(steps),
		Releases: toWireReleases(releases),
		Stories:  toWireStories(stories),
	}, nil
}

func (s *Service) UpdateStoryMap(ctx context.Context, session Session, storyMapID string, input UpdateStoryMapInput) (wireStoryMap, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionAdmin); err != nil {
		return wireStoryMap{}, err
	}
	m, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return wireStoryMap{}, translateStoreError(err, "story map")
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return wireStoryMap{}, validationError("name cannot be empty", nil)
		}
		m.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		m.Description = *input.Description
	}
	if err := s.store.UpdateStoryMap(ctx, m); err != nil {
		return wireStoryMap{}, translateStoreError(err, "story map")
	}
	updated, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return wireStoryMap{}, translateStoreError(err, "story map")
	}
	return toWireStoryMap(updated), nil
}

// DeleteStoryMap is owner-only; even admins granted via membership
// cannot drop the whole workspace.
func (s *Service) DeleteStoryMap(ctx context.Context, session Session, storyMapID string) error {
	m, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return translateStoreError(err, "story map")
	}
	if m.OwnerID != session.UserID {
		return permissionDeniedError("delete story map")
	}
	if err := s.store.DeleteStoryMap(ctx, storyMapID); err != nil {
		return translateStoreError(err, "story map")
	}
	if s.search != nil {
		s.search.RemoveMap(storyMapID)
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, session Session, storyMapID string) ([]wireMember, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionRead); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, storyMapID)
	if err != nil {
		return nil, err
	}
	out := make([]wireMember, 0, len(members))
	for _, m := range members {
		out = append(out, toWireMember(m))
	}
	return out, nil
}

// AddMember grants a role by email. Re-adding an existing member
// updates their role; the owner cannot be demoted to a member row.
func (s *Service) AddMember(ctx context.Context, session Session, storyMapID string, input MemberInput) (wireMember, error) {
	if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionAdmin); err != nil {
		return wireMember{}, err
	}
	if !rbac.Valid(input.Role) {
		return wireMember{}, validationError("unknown role", map[string]any{"role": input.Role})
	}
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return wireMember{}, notFoundError("user not found")
	}
	m, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return wireMember{}, translateStoreError(err, "story map")
	}
	if user.ID == m.OwnerID {
		return wireMember{}, validationError("owner already has full access", nil)
	}
	if err := s.store.AddMember(ctx, storyMapID, user.ID, input.Role); err != nil {
		return wireMember{}, translateStoreError(err, "member")
	}
	if s.mail != nil && s.mail.IsConfigured() {
		go func() {
			if err := s.mail.SendMemberAdded(user.Email, user.DisplayName, session.UserName, m.Name, input.Role); err != nil {
				log.Printf("mail: member added notification to %s: %v", user.Email, err)
			}
		}()
	}
	return wireMember{
		UserID:      user.ID,
		Role:        input.Role,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}

func (s *Service) RemoveMember(ctx context.Context, session Session, storyMapID, userID string) error {
	// Members may remove themselves; removing anyone else takes admin.
	if userID != session.UserID {
		if err := s.requireAccess(ctx, session, storyMapID, rbac.ActionAdmin); err != nil {
			return err
		}
	} else if _, err := s.roleOnMap(ctx, session, storyMapID); err != nil {
		return err
	}
	if err := s.store.RemoveMember(ctx, storyMapID, userID); err != nil {
		return translateStoreError(err, "member")
	}
	return nil
}
