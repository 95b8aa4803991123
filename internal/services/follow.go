package services

import (
	"context"
	"fmt"

	"geodrop-backend/internal/cache"
	"geodrop-backend/internal/clock"
	"geodrop-backend/internal/models"

	"github.com/rs/zerolog"
)

// FollowOutcome is the result variant of a follow attempt
type FollowOutcome int

const (
	FollowCreated FollowOutcome = iota
	FollowRejectedSelf
	FollowRejectedDuplicate
)

// Reason returns the user-facing description of the outcome
func (o FollowOutcome) Reason() string {
	switch o {
	case FollowRejectedSelf:
		return "You cannot follow yourself"
	case FollowRejectedDuplicate:
		return "Already following this user"
	default:
		return "User followed successfully"
	}
}

// FollowResult is returned by FollowGraph.Follow
type FollowResult struct {
	Outcome  FollowOutcome
	IsMutual bool
}

// Created reports whether a new edge was stored
func (r FollowResult) Created() bool {
	return r.Outcome == FollowCreated
}

// FollowGraph manages directed follow edges between users
type FollowGraph struct {
	follows FollowRepository
	users   UserRepository
	counts  CountCache
	clock   clock.Clock
}

// NewFollowGraph creates a new follow graph. counts may be nil.
func NewFollowGraph(follows FollowRepository, users UserRepository, counts CountCache, clk clock.Clock) *FollowGraph {
	if counts == nil {
		counts = (*cache.FollowCountCache)(nil)
	}
	return &FollowGraph{
		follows: follows,
		users:   users,
		counts:  counts,
		clock:   clk,
	}
}

// Follow creates the edge followerID -> followingID
func (g *FollowGraph) Follow(ctx context.Context, followerID, followingID int64) (FollowResult, error) {
	if followerID == followingID {
		return FollowResult{Outcome: FollowRejectedSelf}, nil
	}

	if err := g.requireUser(ctx, followingID); err != nil {
		return FollowResult{}, err
	}

	created, err := g.follows.Create(ctx, followerID, followingID, g.clock.Now())
	if err != nil {
		return FollowResult{}, fmt.Errorf("failed to create follow: %w", err)
	}
	if !created {
		return FollowResult{Outcome: FollowRejectedDuplicate}, nil
	}
	g.invalidate(ctx, followerID, followingID)

	mutual, err := g.follows.IsFollowing(ctx, followingID, followerID)
	if err != nil {
		return FollowResult{}, fmt.Errorf("failed to check mutual follow: %w", err)
	}

	return FollowResult{Outcome: FollowCreated, IsMutual: mutual}, nil
}

// Unfollow removes the edge followerID -> followingID
func (g *FollowGraph) Unfollow(ctx context.Context, followerID, followingID int64) (bool, error) {
	if err := g.requireUser(ctx, followingID); err != nil {
		return false, err
	}

	removed, err := g.follows.Delete(ctx, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	if removed {
		g.invalidate(ctx, followerID, followingID)
	}
	return removed, nil
}

// IsFollowing reports whether followerID follows followingID
func (g *FollowGraph) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	return g.follows.IsFollowing(ctx, followerID, followingID)
}

// IsMutual reports whether a and b follow each other
func (g *FollowGraph) IsMutual(ctx context.Context, a, b int64) (bool, error) {
	if a == b {
		return false, nil
	}
	ab, err := g.follows.IsFollowing(ctx, a, b)
	if err != nil || !ab {
		return false, err
	}
	return g.follows.IsFollowing(ctx, b, a)
}

// Followers lists the users following userID
func (g *FollowGraph) Followers(ctx context.Context, userID int64) ([]*models.FollowUser, error) {
	if err := g.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return g.follows.ListFollowers(ctx, userID)
}

// Following lists the users userID follows
func (g *FollowGraph) Following(ctx context.Context, userID int64) ([]*models.FollowUser, error) {
	if err := g.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return g.follows.ListFollowing(ctx, userID)
}

// CountFollowers returns the possibly cached follower count
func (g *FollowGraph) CountFollowers(ctx context.Context, userID int64) (int64, error) {
	return g.cachedCount(ctx, cache.Followers, userID, g.follows.CountFollowers)
}

// CountFollowing returns the possibly cached following count
func (g *FollowGraph) CountFollowing(ctx context.Context, userID int64) (int64, error) {
	return g.cachedCount(ctx, cache.Following, userID, g.follows.CountFollowing)
}

// Status describes the relationship from viewerID to targetID
func (g *FollowGraph) Status(ctx context.Context, viewerID, targetID int64) (*models.FollowStatus, error) {
	if err := g.requireUser(ctx, targetID); err != nil {
		return nil, err
	}

	following, err := g.follows.IsFollowing(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	followedBy, err := g.follows.IsFollowing(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}
	followers, err := g.CountFollowers(ctx, targetID)
	if err != nil {
		return nil, err
	}
	followingCount, err := g.CountFollowing(ctx, targetID)
	if err != nil {
		return nil, err
	}

	return &models.FollowStatus{
		IsFollowing:    following,
		IsFollowedBy:   followedBy,
		IsMutual:       following && followedBy && viewerID != targetID,
		FollowersCount: followers,
		FollowingCount: followingCount,
	}, nil
}

func (g *FollowGraph) requireUser(ctx context.Context, userID int64) error {
	exists, err := g.users.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

func (g *FollowGraph) cachedCount(
	ctx context.Context,
	kind cache.CountKind,
	userID int64,
	load func(context.Context, int64) (int64, error),
) (int64, error) {
	logger := zerolog.Ctx(ctx)

	if n, hit, err := g.counts.Get(ctx, kind, userID); err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Msg("Follow count cache read failed")
	} else if hit {
		return n, nil
	}

	n, err := load(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	if err := g.counts.Set(ctx, kind, userID, n); err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Msg("Follow count cache write failed")
	}
	return n, nil
}

// stale counts are tolerated, so cache failures are only logged
func (g *FollowGraph) invalidate(ctx context.Context, followerID, followingID int64) {
	if err := g.counts.InvalidateEdge(ctx, followerID, followingID); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Int64("follower_id", followerID).
			Int64("following_id", followingID).
			Msg("Follow count cache invalidation failed")
	}
}
