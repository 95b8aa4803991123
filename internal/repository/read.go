package repository

import (
	"context"
	"fmt"
	"time"
)

// ReadRepository handles database operations for read events
type ReadRepository struct {
	db *DB
}

// NewReadRepository creates a new read event repository
func NewReadRepository(db *DB) *ReadRepository {
	return &ReadRepository{db: db}
}

// Record inserts a read event unless one already exists for the pair.
// Reports true only for the caller whose insert created the row.
func (r *ReadRepository) Record(ctx context.Context, userID, messageID int64, at time.Time) (bool, error) {
	query := `
		INSERT INTO read_events (user_id, message_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, message_id) DO NOTHING
	`
	tag, err := r.db.conn(ctx).Exec(ctx, query, userID, messageID, at)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return false, fmt.Errorf("message or user not found: %w", ErrNotFound)
		}
		return false, fmt.Errorf("failed to record read: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Exists checks if a user has read a message
func (r *ReadRepository) Exists(ctx context.Context, userID, messageID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM read_events WHERE user_id = $1 AND message_id = $2)`
	var exists bool
	if err := r.db.conn(ctx).QueryRow(ctx, query, userID, messageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check read: %w", err)
	}
	return exists, nil
}

// ReadMessageIDs returns which of messageIDs the user has read
func (r *ReadRepository) ReadMessageIDs(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error) {
	read := make(map[int64]bool)
	if len(messageIDs) == 0 {
		return read, nil
	}

	query := `SELECT message_id FROM read_events WHERE user_id = $1 AND message_id = ANY($2)`
	rows, err := r.db.conn(ctx).Query(ctx, query, userID, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get read messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan read message: %w", err)
		}
		read[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating read messages: %w", err)
	}

	return read, nil
}

// CountByUserFromCreator counts distinct messages by creatorID that userID has read
func (r *ReadRepository) CountByUserFromCreator(ctx context.Context, userID, creatorID int64) (int, error) {
	query := `
		SELECT COUNT(DISTINCT r.message_id)
		FROM read_events r
		JOIN messages m ON m.id = r.message_id
		WHERE r.user_id = $1 AND m.user_id = $2
	`
	var count int
	if err := r.db.conn(ctx).QueryRow(ctx, query, userID, creatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reads from creator: %w", err)
	}
	return count, nil
}
