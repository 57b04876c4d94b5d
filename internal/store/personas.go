package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) InsertPersona(ctx context.Context, p Persona) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO personas (id, story_map_id, name, description, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.StoryMapID, p.Name, p.Description, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("insert persona: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPersona(ctx context.Context, personaID string) (Persona, error) {
	var p Persona
	err := s.db.QueryRowContext(ctx, `
		SELECT id, story_map_id, name, description, avatar_url, created_at, updated_at
		FROM personas
		WHERE id=$1
	`, personaID).Scan(&p.ID, &p.StoryMapID, &p.Name, &p.Description, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Persona{}, err
	}
	return p, nil
}

func (s *PostgresStore) ListPersonas(ctx context.Context, storyMapID string) ([]Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, story_map_id, name, description, avatar_url, created_at, updated_at
		FROM personas
		WHERE story_map_id=$1
		ORDER BY name ASC
	`, storyMapID)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()
	return collectPersonas(rows)
}

func (s *PostgresStore) UpdatePersona(ctx context.Context, p Persona) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE personas SET name=$2, description=$3, avatar_url=$4, updated_at=NOW()
		WHERE id=$1
	`, p.ID, p.Name, p.Description, p.AvatarURL)
	if err != nil {
		return fmt.Errorf("update persona: %w", err)
	}
	return nil
}

// DeletePersona removes the persona and its story assignments.
func (s *PostgresStore) DeletePersona(ctx context.Context, personaID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM story_personas WHERE persona_id=$1`, personaID); err != nil {
			return fmt.Errorf("delete persona assignments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM personas WHERE id=$1`, personaID); err != nil {
			return fmt.Errorf("delete persona: %w", err)
		}
		return nil
	})
}

// AssignPersona is idempotent, matching tag assignment.
func (s *PostgresStore) AssignPersona(ctx context.Context, storyID, personaID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO story_personas (story_id, persona_id)
		VALUES ($1, $2)
		ON CONFLICT (story_id, persona_id) DO NOTHING
	`, storyID, personaID)
	if err != nil {
		return fmt.Errorf("assign persona: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnassignPersona(ctx context.Context, storyID, personaID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM story_personas WHERE story_id=$1 AND persona_id=$2
	`, storyID, personaID)
	if err != nil {
		return fmt.Errorf("unassign persona: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPersonasForStory(ctx context.Context, storyID string) ([]Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.story_map_id, p.name, p.description, p.avatar_url, p.created_at, p.updated_at
		FROM personas p
		JOIN story_personas sp ON sp.persona_id = p.id
		WHERE sp.story_id=$1
		ORDER BY p.name ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("list personas for story: %w", err)
	}
	defer rows.Close()
	return collectPersonas(rows)
}

func collectPersonas(rows *sql.Rows) ([]Persona, error) {
	items := make([]Persona, 0)
	for rows.Next() {
		var p Persona
		if err := rows.Scan(&p.ID, &p.StoryMapID, &p.Name, &p.Description, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan persona: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personas: %w", err)
	}
	return items, nil
}
