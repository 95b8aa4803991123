package handlers

import (
	"context"
	"errors"
	"net/http"

	"geodrop-backend/internal/models"
	"geodrop-backend/internal/services"

	"github.com/rs/zerolog"
)

// FollowGraph is the follow relationship store used by the HTTP layer
type FollowGraph interface {
	Follow(ctx context.Context, followerID, followingID int64) (services.FollowResult, error)
	Unfollow(ctx context.Context, followerID, followingID int64) (bool, error)
	Followers(ctx context.Context, userID int64) ([]*models.FollowUser, error)
	Following(ctx context.Context, userID int64) ([]*models.FollowUser, error)
	Status(ctx context.Context, viewerID, targetID int64) (*models.FollowStatus, error)
}

// FollowHandler handles follow-related HTTP requests
type FollowHandler struct {
	follows FollowGraph
}

// NewFollowHandler creates a new follow handler
func NewFollowHandler(follows FollowGraph) *FollowHandler {
	return &FollowHandler{follows: follows}
}

type followResponse struct {
	IsMutual bool `json:"is_mutual"`
}

// Follow handles POST /api/v1/users/{user}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}

	res, err := h.follows.Follow(r.Context(), userID, targetID)
	if err != nil {
		h.fail(w, r, err, targetID, "Failed to follow user")
		return
	}

	if !res.Created() {
		respondJSON(w, http.StatusUnprocessableEntity, Envelope{Message: res.Outcome.Reason()})
		return
	}

	zerolog.Ctx(r.Context()).Info().
		Int64("target_id", targetID).
		Bool("is_mutual", res.IsMutual).
		Msg("User followed")

	respondJSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: res.Outcome.Reason(),
		Data:    followResponse{IsMutual: res.IsMutual},
	})
}

// Unfollow handles POST /api/v1/users/{user}/unfollow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}

	removed, err := h.follows.Unfollow(r.Context(), userID, targetID)
	if err != nil {
		h.fail(w, r, err, targetID, "Failed to unfollow user")
		return
	}

	if !removed {
		respondJSON(w, http.StatusUnprocessableEntity, Envelope{Message: "Not following this user"})
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: "User unfollowed successfully"})
}

// Followers handles GET /api/v1/users/{user}/followers
func (h *FollowHandler) Followers(w http.ResponseWriter, r *http.Request) {
	_, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}

	users, err := h.follows.Followers(r.Context(), targetID)
	if err != nil {
		h.fail(w, r, err, targetID, "Failed to get followers")
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: users})
}

// Following handles GET /api/v1/users/{user}/following
func (h *FollowHandler) Following(w http.ResponseWriter, r *http.Request) {
	_, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}

	users, err := h.follows.Following(r.Context(), targetID)
	if err != nil {
		h.fail(w, r, err, targetID, "Failed to get following")
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: users})
}

// Status handles GET /api/v1/users/{user}/follow-status
func (h *FollowHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := h.pair(w, r)
	if !ok {
		return
	}

	status, err := h.follows.Status(r.Context(), userID, targetID)
	if err != nil {
		h.fail(w, r, err, targetID, "Failed to get follow status")
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: status})
}

// pair returns the authenticated user and the {user} path parameter
func (h *FollowHandler) pair(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return 0, 0, false
	}
	targetID, ok := pathID(w, r, "user")
	if !ok {
		return 0, 0, false
	}
	return userID, targetID, true
}

func (h *FollowHandler) fail(w http.ResponseWriter, r *http.Request, err error, targetID int64, msg string) {
	if errors.Is(err, services.ErrUserNotFound) {
		respondJSON(w, http.StatusNotFound, Envelope{Message: "User not found"})
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Int64("target_id", targetID).Msg(msg)
	respondJSON(w, http.StatusInternalServerError, Envelope{Message: "An error occurred while processing the request"})
}
