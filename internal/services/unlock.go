package services

import (
	"context"
	"fmt"

	"geodrop-backend/internal/clock"
)

// UnlockEngine grants permanent profile access once a viewer has read
// enough distinct messages from a creator
type UnlockEngine struct {
	reads     *ReadTracker
	unlocks   UnlockRepository
	clock     clock.Clock
	threshold int
}

// NewUnlockEngine creates a new unlock engine
func NewUnlockEngine(reads *ReadTracker, unlocks UnlockRepository, clk clock.Clock, threshold int) *UnlockEngine {
	return &UnlockEngine{
		reads:     reads,
		unlocks:   unlocks,
		clock:     clk,
		threshold: threshold,
	}
}

// EvaluateAndMaybeUnlock grants access when the threshold is met and reports
// whether the viewer has unlocked the creator.
func (e *UnlockEngine) EvaluateAndMaybeUnlock(ctx context.Context, viewerID, creatorID int64) (bool, error) {
	if viewerID == creatorID {
		return false, nil
	}

	count, err := e.reads.CountReadsByUserFromCreator(ctx, viewerID, creatorID)
	if err != nil {
		return false, fmt.Errorf("failed to count reads: %w", err)
	}

	if count >= e.threshold {
		if _, err := e.unlocks.Create(ctx, viewerID, creatorID, e.clock.Now()); err != nil {
			return false, fmt.Errorf("failed to grant unlock: %w", err)
		}
		return true, nil
	}

	// grants are permanent even if the count is below threshold now
	return e.HasUnlocked(ctx, viewerID, creatorID)
}

// HasUnlocked reports whether viewerID has unlocked creatorID's profile
func (e *UnlockEngine) HasUnlocked(ctx context.Context, viewerID, creatorID int64) (bool, error) {
	if viewerID == creatorID {
		return false, nil
	}
	unlocked, err := e.unlocks.Exists(ctx, viewerID, creatorID)
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return unlocked, nil
}
