package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateStoryMap inserts the map and its sentinel unassigned release in
// one transaction so a workspace is never visible without it.
func (s *PostgresStore) CreateStoryMap(ctx context.Context, m StoryMap, unassigned Release) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO story_maps (id, name, description, owner_id)
			VALUES ($1, $2, $3, $4)
		`, m.ID, m.Name, m.Description, m.OwnerID); err != nil {
			return fmt.Errorf("insert story map: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO releases (id, story_map_id, name, is_unassigned, sort_order, created_by, updated_by)
			VALUES ($1, $2, $3, TRUE, 0, $4, $4)
		`, unassigned.ID, m.ID, unassigned.Name, m.OwnerID); err != nil {
			return fmt.Errorf("insert unassigned release: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetStoryMap(ctx context.Context, storyMapID string) (StoryMap, error) {
	var m StoryMap
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), owner_id, created_at, updated_at
		FROM story_maps
		WHERE id=$1
	`, storyMapID).Scan(&m.ID, &m.Name, &m.Description, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return StoryMap{}, err
	}
	return m, nil
}

// ListStoryMapsForUser returns maps the user owns plus maps shared with
// them through membership, most recently updated first.
func (s *PostgresStore) ListStoryMapsForUser(ctx context.Context, userID string) ([]StoryMap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT sm.id, sm.name, COALESCE(sm.description, ''), sm.owner_id, sm.created_at, sm.updated_at
		FROM story_maps sm
		LEFT JOIN story_map_members mm ON mm.story_map_id = sm.id
		WHERE sm.owner_id=$1 OR mm.user_id=$1
		ORDER BY sm.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list story maps: %w", err)
	}
	defer rows.Close()

	items := make([]StoryMap, 0)
	for rows.Next() {
		var m StoryMap
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan story map: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate story maps: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateStoryMap(ctx context.Context, m StoryMap) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE story_maps SET name=$2, description=$3, updated_at=NOW()
		WHERE id=$1
	`, m.ID, m.Name, m.Description)
	if err != nil {
		return fmt.Errorf("update story map: %w", err)
	}
	return nil
}

// DeleteStoryMap removes the map; journeys, steps, releases, stories and
// everything below fall to the storage-layer cascade inside one statement.
func (s *PostgresStore) DeleteStoryMap(ctx context.Context, storyMapID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM story_maps WHERE id=$1`, storyMapID)
	if err != nil {
		return fmt.Errorf("delete story map: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddMember(ctx context.Context, storyMapID, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story_map_members (story_map_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (story_map_id, user_id) DO UPDATE SET role=EXCLUDED.role
	`, storyMapID, userID, role)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, storyMapID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM story_map_members WHERE story_map_id=$1 AND user_id=$2
	`, storyMapID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, storyMapID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mm.story_map_id, mm.user_id, mm.role, u.display_name, u.email, mm.added_at
		FROM story_map_members mm
		JOIN users u ON u.id = mm.user_id
		WHERE mm.story_map_id=$1
		ORDER BY mm.added_at ASC
	`, storyMapID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.StoryMapID, &m.UserID, &m.Role, &m.DisplayName, &m.Email, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

// GetMemberRole returns the membership role for a user on a map, or
// sql.ErrNoRows when the user is not a member.
func (s *PostgresStore) GetMemberRole(ctx context.Context, storyMapID, userID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM story_map_members WHERE story_map_id=$1 AND user_id=$2
	`, storyMapID, userID).Scan(&role)
	if err != nil {
		return "", err
	}
	return role, nil
}
