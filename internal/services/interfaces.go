package services

import (
	"context"
	"time"

	"geodrop-backend/internal/cache"
	"geodrop-backend/internal/models"
)

// Transactor opens storage transactions. Repositories called with the
// context passed to fn take part in the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockAuthor(ctx context.Context, authorID int64) error
	LockViewer(ctx context.Context, viewerID int64) error
}

// MessageRepository stores messages
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	CountByAuthorBetween(ctx context.Context, authorID int64, from, to time.Time) (int, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.Message, error)
	ListTopBetween(ctx context.Context, from, to time.Time, limit int) ([]*models.Message, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]*models.Message, error)
	ListByAuthorBetween(ctx context.Context, authorID int64, from, to time.Time) ([]*models.Message, error)
	IncrementReadCount(ctx context.Context, id int64) (int, error)
}

// ReadRepository stores read events
type ReadRepository interface {
	Record(ctx context.Context, userID, messageID int64, at time.Time) (bool, error)
	Exists(ctx context.Context, userID, messageID int64) (bool, error)
	ReadMessageIDs(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error)
	CountByUserFromCreator(ctx context.Context, userID, creatorID int64) (int, error)
}

// UnlockRepository stores profile unlock grants
type UnlockRepository interface {
	Create(ctx context.Context, viewerID, creatorID int64, at time.Time) (bool, error)
	Exists(ctx context.Context, viewerID, creatorID int64) (bool, error)
}

// FollowRepository stores follow edges
type FollowRepository interface {
	Create(ctx context.Context, followerID, followingID int64, at time.Time) (bool, error)
	Delete(ctx context.Context, followerID, followingID int64) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error)
	ListFollowers(ctx context.Context, userID int64) ([]*models.FollowUser, error)
	ListFollowing(ctx context.Context, userID int64) ([]*models.FollowUser, error)
	CountFollowers(ctx context.Context, userID int64) (int64, error)
	CountFollowing(ctx context.Context, userID int64) (int64, error)
}

// UserRepository looks up users
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// CountCache caches follow counts
type CountCache interface {
	Get(ctx context.Context, kind cache.CountKind, userID int64) (int64, bool, error)
	Set(ctx context.Context, kind cache.CountKind, userID, count int64) error
	InvalidateEdge(ctx context.Context, followerID, followingID int64) error
}
