package repository

import (
	"context"
	"fmt"
	"time"
)

// UnlockRepository handles database operations for profile unlock grants
type UnlockRepository struct {
	db *DB
}

// NewUnlockRepository creates a new unlock grant repository
func NewUnlockRepository(db *DB) *UnlockRepository {
	return &UnlockRepository{db: db}
}

// Create inserts a grant, reporting false when it already existed
func (r *UnlockRepository) Create(ctx context.Context, viewerID, creatorID int64, at time.Time) (bool, error) {
	query := `
		INSERT INTO unlock_grants (viewer_id, creator_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (viewer_id, creator_id) DO NOTHING
	`
	tag, err := r.db.conn(ctx).Exec(ctx, query, viewerID, creatorID, at)
	if err != nil {
		return false, fmt.Errorf("failed to create unlock grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Exists checks if viewerID has unlocked creatorID
func (r *UnlockRepository) Exists(ctx context.Context, viewerID, creatorID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM unlock_grants WHERE viewer_id = $1 AND creator_id = $2)`
	var exists bool
	if err := r.db.conn(ctx).QueryRow(ctx, query, viewerID, creatorID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check unlock grant: %w", err)
	}
	return exists, nil
}
