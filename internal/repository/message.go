package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geodrop-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const messageColumns = `
	m.id, m.user_id, m.content, m.latitude, m.longitude, m.tag, m.read_count, m.created_at,
	u.nickname
`

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db *DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create validates and inserts a message, filling in its ID
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	query := `
		INSERT INTO messages (user_id, content, latitude, longitude, tag, read_count, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING id
	`
	err := r.db.conn(ctx).QueryRow(ctx, query,
		msg.AuthorID, msg.Content, msg.Latitude, msg.Longitude, msg.Tag, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("author not found: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	msg.ReadCount = 0
	return nil
}

// GetByID retrieves a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = $1
	`
	msg, err := scanMessage(r.db.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// CountByAuthorBetween counts an author's messages created in [from, to)
func (r *MessageRepository) CountByAuthorBetween(ctx context.Context, authorID int64, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
	`
	var count int
	if err := r.db.conn(ctx).QueryRow(ctx, query, authorID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// ListBetween retrieves all messages created in [from, to), newest first
func (r *MessageRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.created_at >= $1 AND m.created_at < $2
		ORDER BY m.created_at DESC, m.id DESC
	`
	return r.list(ctx, query, from, to)
}

// ListTopBetween retrieves the most read messages created in [from, to).
// Ties on read_count go to the earlier message.
func (r *MessageRepository) ListTopBetween(ctx context.Context, from, to time.Time, limit int) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.created_at >= $1 AND m.created_at < $2
		ORDER BY m.read_count DESC, m.created_at ASC, m.id ASC
		LIMIT $3
	`
	return r.list(ctx, query, from, to, limit)
}

// ListByAuthor retrieves all of an author's messages, newest first
func (r *MessageRepository) ListByAuthor(ctx context.Context, authorID int64) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.user_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`
	return r.list(ctx, query, authorID)
}

// ListByAuthorBetween retrieves an author's messages created in [from, to), newest first
func (r *MessageRepository) ListByAuthorBetween(ctx context.Context, authorID int64, from, to time.Time) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.user_id = $1 AND m.created_at >= $2 AND m.created_at < $3
		ORDER BY m.created_at DESC, m.id DESC
	`
	return r.list(ctx, query, authorID, from, to)
}

// IncrementReadCount atomically bumps the read counter and returns the new value
func (r *MessageRepository) IncrementReadCount(ctx context.Context, id int64) (int, error) {
	query := `UPDATE messages SET read_count = read_count + 1 WHERE id = $1 RETURNING read_count`
	var count int
	if err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("message not found: %w", ErrNotFound)
		}
		return 0, fmt.Errorf("failed to increment read count: %w", err)
	}
	return count, nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		msg      models.Message
		nickname *string
	)
	err := row.Scan(
		&msg.ID, &msg.AuthorID, &msg.Content, &msg.Latitude, &msg.Longitude,
		&msg.Tag, &msg.ReadCount, &msg.CreatedAt, &nickname,
	)
	if err != nil {
		return nil, err
	}
	msg.Author = &models.Author{ID: msg.AuthorID, Nickname: models.DisplayNickname(nickname)}
	return &msg, nil
}
