package services

import (
	"context"
	"fmt"

	"geodrop-backend/internal/clock"
)

// QuotaDecision is the result of a daily quota check
type QuotaDecision struct {
	Allowed bool
	Posted  int
	Limit   int
}

// Remaining returns how many posts are left today, counting the post
// just created when consumed is true.
func (d QuotaDecision) Remaining(consumed bool) int {
	left := d.Limit - d.Posted
	if consumed {
		left--
	}
	return max(0, left)
}

// QuotaEngine enforces the per-author daily posting limit
type QuotaEngine struct {
	messages MessageRepository
	clock    clock.Clock
	limit    int
}

// NewQuotaEngine creates a new quota engine
func NewQuotaEngine(messages MessageRepository, clk clock.Clock, dailyLimit int) *QuotaEngine {
	return &QuotaEngine{
		messages: messages,
		clock:    clk,
		limit:    dailyLimit,
	}
}

// Check counts the author's posts in today's window against the limit
func (q *QuotaEngine) Check(ctx context.Context, authorID int64) (QuotaDecision, error) {
	today := clock.Today(q.clock)
	posted, err := q.messages.CountByAuthorBetween(ctx, authorID, today.Start, today.End)
	if err != nil {
		return QuotaDecision{}, fmt.Errorf("failed to count today's messages: %w", err)
	}
	return QuotaDecision{
		Allowed: posted < q.limit,
		Posted:  posted,
		Limit:   q.limit,
	}, nil
}

// Remaining returns how many posts the author has left today
func (q *QuotaEngine) Remaining(ctx context.Context, authorID int64) (int, error) {
	decision, err := q.Check(ctx, authorID)
	if err != nil {
		return 0, err
	}
	return decision.Remaining(false), nil
}
