package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tacticboard/projects-api/internal/projects/domain"
)

// ActivityRepository stores developer membership changes in PostgreSQL.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// InsertBatch inserts entries in a single transaction.
// Missing ids and timestamps are filled in.
func (r *ActivityRepository) InsertBatch(ctx context.Context, entries []domain.Activity) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_activity (id, project_id, user_id, action, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}

		var actor sql.NullString
		if e.Actor != "" {
			actor = sql.NullString{String: e.Actor, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, e.ID, e.ProjectID, e.UserID, e.Action, actor, e.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByProject returns the most recent entries for a project, newest first.
func (r *ActivityRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]domain.Activity, error) {
	limit = domain.ClampActivityLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, user_id, action, actor, created_at
		FROM project_activity
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		var actor sql.NullString
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.Action, &actor, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if actor.Valid {
			a.Actor = actor.String
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return out, nil
}

// EnsureSchema creates the activity table when missing.
func (r *ActivityRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS project_activity (
			id         UUID PRIMARY KEY,
			project_id TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			action     TEXT NOT NULL,
			actor      TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS project_activity_project_idx ON project_activity (project_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure activity schema: %w", err)
	}
	return nil
}
