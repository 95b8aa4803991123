package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"geodrop-backend/internal/clock"
	"geodrop-backend/internal/models"
	"geodrop-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const jwtExpDays = 365

// Profile is a user's public profile as seen by a viewer
type Profile struct {
	*models.User
	ProfileUnlocked bool `json:"profileUnlocked"`
}

// UserService handles user-related business logic
type UserService struct {
	users     UserRepository
	unlocks   *UnlockEngine
	jwtSecret string
	clock     clock.Clock
}

// NewUserService creates a new user service
func NewUserService(users UserRepository, unlocks *UnlockEngine, jwtSecret string, clk clock.Clock) *UserService {
	return &UserService{
		users:     users,
		unlocks:   unlocks,
		jwtSecret: jwtSecret,
		clock:     clk,
	}
}

// GetProfile returns userID's profile together with whether viewerID has
// unlocked it
func (s *UserService) GetProfile(ctx context.Context, viewerID, userID int64) Result[*Profile] {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail[*Profile](StatusNotFound, "User not found")
		}
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to get user")
		return fail[*Profile](StatusInternal, "An error occurred while getting the profile")
	}

	unlocked, err := s.unlocks.HasUnlocked(ctx, viewerID, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to check profile unlock")
		return fail[*Profile](StatusInternal, "An error occurred while getting the profile")
	}

	return ok(&Profile{User: user, ProfileUnlocked: unlocked})
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID int64) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	raw, ok := claims["user_id"].(json.Number)
	if !ok {
		return 0, fmt.Errorf("user_id not found in token")
	}
	userID, err := raw.Int64()
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("invalid user_id in token")
	}

	return userID, nil
}
