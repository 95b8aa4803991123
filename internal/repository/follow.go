package repository

import (
	"context"
	"fmt"
	"time"

	"geodrop-backend/internal/models"
)

// FollowRepository handles database operations for follow edges
type FollowRepository struct {
	db *DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Create inserts a follow edge, reporting false when it already existed
func (r *FollowRepository) Create(ctx context.Context, followerID, followingID int64, at time.Time) (bool, error) {
	query := `
		INSERT INTO follow_edges (follower_id, following_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`
	tag, err := r.db.conn(ctx).Exec(ctx, query, followerID, followingID, at)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return false, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return false, fmt.Errorf("failed to create follow: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a follow edge, reporting whether one existed
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `DELETE FROM follow_edges WHERE follower_id = $1 AND following_id = $2`
	tag, err := r.db.conn(ctx).Exec(ctx, query, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IsFollowing checks if followerID follows followingID
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follow_edges WHERE follower_id = $1 AND following_id = $2)`
	var exists bool
	if err := r.db.conn(ctx).QueryRow(ctx, query, followerID, followingID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// ListFollowers retrieves the users following userID, oldest edge first
func (r *FollowRepository) ListFollowers(ctx context.Context, userID int64) ([]*models.FollowUser, error) {
	query := `
		SELECT u.id, u.name, u.nickname, u.bio,
			EXISTS(SELECT 1 FROM follow_edges b WHERE b.follower_id = $1 AND b.following_id = u.id)
		FROM follow_edges f
		JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.created_at, u.id
	`
	return r.listUsers(ctx, query, userID)
}

// ListFollowing retrieves the users userID follows, oldest edge first
func (r *FollowRepository) ListFollowing(ctx context.Context, userID int64) ([]*models.FollowUser, error) {
	query := `
		SELECT u.id, u.name, u.nickname, u.bio,
			EXISTS(SELECT 1 FROM follow_edges b WHERE b.follower_id = u.id AND b.following_id = $1)
		FROM follow_edges f
		JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.created_at, u.id
	`
	return r.listUsers(ctx, query, userID)
}

// CountFollowers counts the users following userID
func (r *FollowRepository) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM follow_edges WHERE following_id = $1`, userID)
}

// CountFollowing counts the users userID follows
func (r *FollowRepository) CountFollowing(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM follow_edges WHERE follower_id = $1`, userID)
}

func (r *FollowRepository) count(ctx context.Context, query string, userID int64) (int64, error) {
	var count int64
	if err := r.db.conn(ctx).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count follows: %w", err)
	}
	return count, nil
}

func (r *FollowRepository) listUsers(ctx context.Context, query string, userID int64) ([]*models.FollowUser, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follows: %w", err)
	}
	defer rows.Close()

	users := []*models.FollowUser{}
	for rows.Next() {
		var u models.FollowUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Nickname, &u.Bio, &u.IsMutual); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follows: %w", err)
	}

	return users, nil
}
