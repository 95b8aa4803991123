package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"geodrop-backend/internal/middleware"
	"geodrop-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Envelope is the body of every domain response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeResult maps a service result onto the response envelope
func writeResult[T any](w http.ResponseWriter, res services.Result[T]) {
	env := Envelope{Success: res.Success, Message: res.Message}
	if res.Success || res.Status == services.StatusQuotaExceeded {
		env.Data = res.Data
	}
	respondJSON(w, httpStatus(res.Status), env)
}

func httpStatus(s services.Status) int {
	switch s {
	case services.StatusOK, services.StatusNoop:
		return http.StatusOK
	case services.StatusCreated:
		return http.StatusCreated
	case services.StatusInvalid:
		return http.StatusUnprocessableEntity
	case services.StatusQuotaExceeded:
		return http.StatusTooManyRequests
	case services.StatusForbidden:
		return http.StatusForbidden
	case services.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses a positive integer URL parameter
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, "Invalid "+name+" id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// currentUser returns the authenticated user ID; routes using it sit behind
// AuthMiddleware
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("path", r.URL.Path).Msg("Missing user in authenticated route")
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}
