package services

import (
	"context"
	"fmt"

	"geodrop-backend/internal/clock"
	"geodrop-backend/internal/models"
)

// RankingEngine orders today's messages by reads
type RankingEngine struct {
	messages    MessageRepository
	clock       clock.Clock
	hotRank     int
	topLimit    int
	maxTopLimit int
}

// NewRankingEngine creates a new ranking engine. hotRank is the 1-based
// position whose read count becomes the hot threshold.
func NewRankingEngine(messages MessageRepository, clk clock.Clock, hotRank, topLimit, maxTopLimit int) *RankingEngine {
	return &RankingEngine{
		messages:    messages,
		clock:       clk,
		hotRank:     hotRank,
		topLimit:    topLimit,
		maxTopLimit: maxTopLimit,
	}
}

// TopToday returns today's most read messages. Non-positive limits use the
// default and larger ones are capped.
func (e *RankingEngine) TopToday(ctx context.Context, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = e.topLimit
	}
	if limit > e.maxTopLimit {
		limit = e.maxTopLimit
	}

	today := clock.Today(e.clock)
	messages, err := e.messages.ListTopBetween(ctx, today.Start, today.End, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top messages: %w", err)
	}
	return messages, nil
}

// HotThreshold returns the read count of the message at position hotRank
// in today's ranking, or 0 when fewer messages were posted today.
func (e *RankingEngine) HotThreshold(ctx context.Context) (int, error) {
	today := clock.Today(e.clock)
	top, err := e.messages.ListTopBetween(ctx, today.Start, today.End, e.hotRank)
	if err != nil {
		return 0, fmt.Errorf("failed to compute hot threshold: %w", err)
	}
	if len(top) < e.hotRank {
		return 0, nil
	}
	return top[e.hotRank-1].ReadCount, nil
}

// IsTop reports whether msg meets the hot threshold
func IsTop(msg *models.Message, threshold int) bool {
	return msg.ReadCount >= threshold
}
