package services

import (
	"context"
	"errors"
	"strings"

	"geodrop-backend/internal/clock"
	"geodrop-backend/internal/models"
	"geodrop-backend/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Anonymous is the viewer id used for unauthenticated map requests
const Anonymous int64 = 0

// PostOutcome is the payload of PostMessage
type PostOutcome struct {
	Message   *models.Message `json:"message,omitempty"`
	Remaining int             `json:"remaining"`
}

// ReadOutcome is the payload of ReadMessage
type ReadOutcome struct {
	IsNewRead       bool `json:"isNewRead"`
	NewReadCount    int  `json:"newReadCount"`
	ProfileUnlocked bool `json:"profileUnlocked"`
}

// RemainingOutcome is the payload of Remaining
type RemainingOutcome struct {
	Remaining int `json:"remaining"`
}

// MessageService orchestrates posting, reading and listing messages
type MessageService struct {
	tx       Transactor
	messages MessageRepository
	users    UserRepository
	quota    *QuotaEngine
	reads    *ReadTracker
	unlocks  *UnlockEngine
	ranking  *RankingEngine
	follows  *FollowGraph
	clock    clock.Clock
}

// NewMessageService creates a new message service
func NewMessageService(
	tx Transactor,
	messages MessageRepository,
	users UserRepository,
	quota *QuotaEngine,
	reads *ReadTracker,
	unlocks *UnlockEngine,
	ranking *RankingEngine,
	follows *FollowGraph,
	clk clock.Clock,
) *MessageService {
	return &MessageService{
		tx:       tx,
		messages: messages,
		users:    users,
		quota:    quota,
		reads:    reads,
		unlocks:  unlocks,
		ranking:  ranking,
		follows:  follows,
		clock:    clk,
	}
}

// PostMessage creates a message if the author is under today's quota.
// The quota check and insert run under a per-author lock.
func (s *MessageService) PostMessage(ctx context.Context, authorID int64, input models.NewMessage) Result[PostOutcome] {
	if input.Tag != nil && strings.TrimSpace(*input.Tag) == "" {
		input.Tag = nil
	}
	if err := input.Validate(); err != nil {
		return invalid[PostOutcome](err)
	}

	var (
		decision QuotaDecision
		msg      *models.Message
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.tx.LockAuthor(ctx, authorID); err != nil {
			return err
		}

		d, err := s.quota.Check(ctx, authorID)
		if err != nil {
			return err
		}
		decision = d
		if !d.Allowed {
			return nil
		}

		m := &models.Message{
			AuthorID:  authorID,
			Content:   input.Content,
			Latitude:  *input.Latitude,
			Longitude: *input.Longitude,
			Tag:       input.Tag,
			CreatedAt: s.clock.Now(),
		}
		if err := s.messages.Create(ctx, m); err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return invalid[PostOutcome](verr)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return fail[PostOutcome](StatusNotFound, "User not found")
		}
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", authorID).Msg("Failed to create message")
		return fail[PostOutcome](StatusInternal, "An error occurred while creating the message")
	}

	if !decision.Allowed {
		res := fail[PostOutcome](StatusQuotaExceeded, "Daily message limit reached")
		res.Data = PostOutcome{Remaining: 0}
		return res
	}

	zerolog.Ctx(ctx).Info().
		Int64("user_id", authorID).
		Int64("message_id", msg.ID).
		Int("remaining", decision.Remaining(true)).
		Msg("Message posted")

	return created(PostOutcome{Message: msg, Remaining: decision.Remaining(true)})
}

// ReadMessage records viewerID's read of a message, bumps its read count on
// the first read and re-evaluates the profile unlock. Safe to retry.
func (s *MessageService) ReadMessage(ctx context.Context, viewerID, messageID int64) Result[ReadOutcome] {
	logger := zerolog.Ctx(ctx).With().Int64("user_id", viewerID).Int64("message_id", messageID).Logger()

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail[ReadOutcome](StatusNotFound, "Message not found")
		}
		logger.Error().Err(err).Msg("Failed to get message")
		return fail[ReadOutcome](StatusInternal, "An error occurred while marking message as read")
	}

	if msg.AuthorID == viewerID {
		return fail[ReadOutcome](StatusNoop, "Cannot read own message")
	}

	var out ReadOutcome
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		// the unlock count below must see the viewer's other reads
		if err := s.tx.LockViewer(ctx, viewerID); err != nil {
			return err
		}

		isNew, err := s.reads.RecordRead(ctx, viewerID, messageID)
		if err != nil {
			return err
		}
		out.IsNewRead = isNew

		if isNew {
			count, err := s.messages.IncrementReadCount(ctx, messageID)
			if err != nil {
				return err
			}
			out.NewReadCount = count
		} else {
			fresh, err := s.messages.GetByID(ctx, messageID)
			if err != nil {
				return err
			}
			out.NewReadCount = fresh.ReadCount
		}

		unlocked, err := s.unlocks.EvaluateAndMaybeUnlock(ctx, viewerID, msg.AuthorID)
		if err != nil {
			return err
		}
		out.ProfileUnlocked = unlocked
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail[ReadOutcome](StatusNotFound, "Message or user not found")
		}
		logger.Error().Err(err).Msg("Failed to mark message as read")
		return fail[ReadOutcome](StatusInternal, "An error occurred while marking message as read")
	}

	return ok(out)
}

// FeedFor lists creatorID's messages, newest first, if viewerID and creatorID
// follow each other
func (s *MessageService) FeedFor(ctx context.Context, viewerID, creatorID int64) Result[[]*models.Message] {
	logger := zerolog.Ctx(ctx).With().Int64("user_id", viewerID).Int64("creator_id", creatorID).Logger()

	exists, err := s.users.Exists(ctx, creatorID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to check user")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting messages")
	}
	if !exists {
		return fail[[]*models.Message](StatusNotFound, "User not found")
	}

	mutual, err := s.follows.IsMutual(ctx, viewerID, creatorID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to check mutual follow")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting messages")
	}
	if !mutual {
		return fail[[]*models.Message](StatusForbidden, "Not authorized")
	}

	messages, err := s.messages.ListByAuthor(ctx, creatorID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to get user messages")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting messages")
	}
	return ok(messages)
}

// MyMessages lists all of the user's own messages, newest first
func (s *MessageService) MyMessages(ctx context.Context, userID int64) Result[[]*models.Message] {
	messages, err := s.messages.ListByAuthor(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to get own messages")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting messages")
	}
	return ok(messages)
}

// Today lists all messages posted today, newest first
func (s *MessageService) Today(ctx context.Context) Result[[]*models.Message] {
	today := clock.Today(s.clock)
	messages, err := s.messages.ListBetween(ctx, today.Start, today.End)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to get today messages")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting today's messages")
	}
	return ok(messages)
}

// TopToday lists today's most read messages
func (s *MessageService) TopToday(ctx context.Context, limit int) Result[[]*models.Message] {
	messages, err := s.ranking.TopToday(ctx, limit)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int("limit", limit).Msg("Failed to get top messages today")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting top messages")
	}
	return ok(messages)
}

// Remaining reports how many messages the user may still post today
func (s *MessageService) Remaining(ctx context.Context, userID int64) Result[RemainingOutcome] {
	remaining, err := s.quota.Remaining(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to get remaining messages")
		res := fail[RemainingOutcome](StatusInternal, "An error occurred while getting remaining messages")
		res.Data = RemainingOutcome{Remaining: 0}
		return res
	}
	return ok(RemainingOutcome{Remaining: remaining})
}

// MyToday lists the user's own messages posted today, newest first
func (s *MessageService) MyToday(ctx context.Context, userID int64) Result[[]*models.Message] {
	today := clock.Today(s.clock)
	messages, err := s.messages.ListByAuthorBetween(ctx, userID, today.Start, today.End)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to get my messages today")
		return fail[[]*models.Message](StatusInternal, "An error occurred while getting today's messages")
	}
	return ok(messages)
}

// MapView lists today's messages annotated for viewerID. Pass Anonymous for
// unauthenticated requests; nothing is then marked as read.
func (s *MessageService) MapView(ctx context.Context, viewerID int64) Result[[]*models.MapMessage] {
	logger := zerolog.Ctx(ctx)
	today := clock.Today(s.clock)

	var (
		messages  []*models.Message
		threshold int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.messages.ListBetween(gctx, today.Start, today.End)
		return err
	})
	g.Go(func() error {
		var err error
		threshold, err = s.ranking.HotThreshold(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Failed to get map messages")
		return fail[[]*models.MapMessage](StatusInternal, "An error occurred while getting map messages")
	}

	read := map[int64]bool{}
	if viewerID != Anonymous && len(messages) > 0 {
		ids := make([]int64, len(messages))
		for i, m := range messages {
			ids[i] = m.ID
		}
		var err error
		read, err = s.reads.ReadSet(ctx, viewerID, ids)
		if err != nil {
			logger.Error().Err(err).Int64("user_id", viewerID).Msg("Failed to get read messages")
			return fail[[]*models.MapMessage](StatusInternal, "An error occurred while getting map messages")
		}
	}

	out := make([]*models.MapMessage, len(messages))
	for i, m := range messages {
		out[i] = &models.MapMessage{
			Message:      m,
			UserHasRead:  read[m.ID],
			IsTopMessage: IsTop(m, threshold),
		}
	}
	return ok(out)
}

func invalid[T any](err error) Result[T] {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return fail[T](StatusInvalid, verr.Message)
	}
	return fail[T](StatusInvalid, err.Error())
}
