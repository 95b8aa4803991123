package handlers

import (
	"context"
	"net/http"

	"geodrop-backend/internal/middleware"
	"geodrop-backend/internal/services"
)

// ProfileService resolves public profiles
type ProfileService interface {
	GetProfile(ctx context.Context, viewerID, userID int64) services.Result[*services.Profile]
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	profiles ProfileService
	messages MessageService
}

// NewUserHandler creates a new user handler
func NewUserHandler(profiles ProfileService, messages MessageService) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		messages: messages,
	}
}

// GetProfile handles GET /api/v1/users/{user}. Authentication is optional;
// anonymous viewers never see the profile as unlocked.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		viewerID = services.Anonymous
	}
	userID, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	writeResult(w, h.profiles.GetProfile(r.Context(), viewerID, userID))
}

// MyMessages handles GET /api/v1/users/me/messages
func (h *UserHandler) MyMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeResult(w, h.messages.MyMessages(r.Context(), userID))
}

// UserMessages handles GET /api/v1/users/{user}/messages
func (h *UserHandler) UserMessages(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	creatorID, ok := pathID(w, r, "user")
	if !ok {
		return
	}
	writeResult(w, h.messages.FeedFor(r.Context(), viewerID, creatorID))
}
