package services

import (
	"context"
	"fmt"

	"geodrop-backend/internal/clock"
)

// ReadTracker records at most one read per user and message
type ReadTracker struct {
	reads ReadRepository
	clock clock.Clock
}

// NewReadTracker creates a new read tracker
func NewReadTracker(reads ReadRepository, clk clock.Clock) *ReadTracker {
	return &ReadTracker{reads: reads, clock: clk}
}

// RecordRead stores the read and reports whether this call created it.
// Concurrent duplicates are settled by the storage uniqueness constraint.
func (t *ReadTracker) RecordRead(ctx context.Context, userID, messageID int64) (bool, error) {
	isNew, err := t.reads.Record(ctx, userID, messageID, t.clock.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record read: %w", err)
	}
	return isNew, nil
}

// HasRead reports whether the user has read the message
func (t *ReadTracker) HasRead(ctx context.Context, userID, messageID int64) (bool, error) {
	return t.reads.Exists(ctx, userID, messageID)
}

// ReadSet returns the subset of messageIDs the user has read
func (t *ReadTracker) ReadSet(ctx context.Context, userID int64, messageIDs []int64) (map[int64]bool, error) {
	return t.reads.ReadMessageIDs(ctx, userID, messageIDs)
}

// CountReadsByUserFromCreator counts distinct messages by creatorID read by userID
func (t *ReadTracker) CountReadsByUserFromCreator(ctx context.Context, userID, creatorID int64) (int, error) {
	return t.reads.CountByUserFromCreator(ctx, userID, creatorID)
}
