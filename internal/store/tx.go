package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnassignedReleaseMissing signals a corrupted workspace: every story
// map must hold exactly one unassigned release.
var ErrUnassignedReleaseMissing = errors.New("story map has no unassigned release")

// withTx runs fn inside a transaction, rolling back on any error. The
// error returned by fn is surfaced unchanged so callers can translate it.
func (s *PostgresStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
