package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"geodrop-backend/internal/middleware"
	"geodrop-backend/internal/models"
	"geodrop-backend/internal/services"
)

// MessageService is the message workflow used by the HTTP layer
type MessageService interface {
	PostMessage(ctx context.Context, authorID int64, input models.NewMessage) services.Result[services.PostOutcome]
	ReadMessage(ctx context.Context, viewerID, messageID int64) services.Result[services.ReadOutcome]
	FeedFor(ctx context.Context, viewerID, creatorID int64) services.Result[[]*models.Message]
	MyMessages(ctx context.Context, userID int64) services.Result[[]*models.Message]
	Today(ctx context.Context) services.Result[[]*models.Message]
	TopToday(ctx context.Context, limit int) services.Result[[]*models.Message]
	Remaining(ctx context.Context, userID int64) services.Result[services.RemainingOutcome]
	MyToday(ctx context.Context, userID int64) services.Result[[]*models.Message]
	MapView(ctx context.Context, viewerID int64) services.Result[[]*models.MapMessage]
}

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	messages MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// PostMessage handles POST /api/v1/messages
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.NewMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	writeResult(w, h.messages.PostMessage(r.Context(), userID, req))
}

// ReadMessage handles POST /api/v1/messages/{message}/read
func (h *MessageHandler) ReadMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "message")
	if !ok {
		return
	}

	writeResult(w, h.messages.ReadMessage(r.Context(), userID, messageID))
}

// Today handles GET /api/v1/messages
func (h *MessageHandler) Today(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.messages.Today(r.Context()))
}

// TopToday handles GET /api/v1/messages/top/today
func (h *MessageHandler) TopToday(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	writeResult(w, h.messages.TopToday(r.Context(), limit))
}

// Remaining handles GET /api/v1/messages/remaining
func (h *MessageHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeResult(w, h.messages.Remaining(r.Context(), userID))
}

// MyToday handles GET /api/v1/messages/my/today
func (h *MessageHandler) MyToday(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeResult(w, h.messages.MyToday(r.Context(), userID))
}

// MapView handles GET /api/v1/map/messages. Authentication is optional.
func (h *MessageHandler) MapView(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		viewerID = services.Anonymous
	}
	writeResult(w, h.messages.MapView(r.Context(), viewerID))
}
