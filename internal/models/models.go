package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Field limits for messages
const (
	MaxContentLength = 500
	MaxTagLength     = 50
	MinLatitude      = -90.0
	MaxLatitude      = 90.0
	MinLongitude     = -180.0
	MaxLongitude     = 180.0

	AnonymousNickname = "Anonymous"
)

// User represents a user known to the identity store
type User struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Nickname *string `json:"nickname"`
	Bio      *string `json:"bio"`
}

// Author is the public summary attached to listed messages
type Author struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// Message represents a geotagged message dropped on the map
type Message struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"user_id"`
	Content   string    `json:"content"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Tag       *string   `json:"tag"`
	ReadCount int       `json:"read_count"`
	CreatedAt time.Time `json:"created_at"`
	Author    *Author   `json:"user,omitempty"`
}

// ReadEvent records that a user has read a message
type ReadEvent struct {
	UserID    int64     `json:"user_id"`
	MessageID int64     `json:"message_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowEdge is a directed follow from FollowerID to FollowingID
type FollowEdge struct {
	FollowerID  int64     `json:"follower_id"`
	FollowingID int64     `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// UnlockGrant records that a viewer has unlocked a creator's profile
type UnlockGrant struct {
	ViewerID  int64     `json:"viewer_id"`
	CreatorID int64     `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FollowUser is a follower/following entry
type FollowUser struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Nickname *string `json:"nickname"`
	Bio      *string `json:"bio"`
	IsMutual bool    `json:"is_mutual"`
}

// FollowStatus describes the relationship between a viewer and a target user
type FollowStatus struct {
	IsFollowing    bool  `json:"is_following"`
	IsFollowedBy   bool  `json:"is_followed_by"`
	IsMutual       bool  `json:"is_mutual"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// MapMessage is a today's message annotated for the requesting viewer
type MapMessage struct {
	*Message
	UserHasRead  bool `json:"userHasRead"`
	IsTopMessage bool `json:"isTopMessage"`
}

// NewMessage is the author-supplied part of a message
type NewMessage struct {
	Content   string   `json:"content"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Tag       *string  `json:"tag"`
}

// ValidationError reports an invalid message field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the incoming payload, including presence of coordinates
func (n *NewMessage) Validate() error {
	if n.Latitude == nil {
		return &ValidationError{Field: "latitude", Message: "Location latitude is required"}
	}
	if n.Longitude == nil {
		return &ValidationError{Field: "longitude", Message: "Location longitude is required"}
	}
	return validateFields(n.Content, *n.Latitude, *n.Longitude, n.Tag)
}

// Validate checks the stored fields of a message
func (m *Message) Validate() error {
	return validateFields(m.Content, m.Latitude, m.Longitude, m.Tag)
}

// DisplayNickname returns the nickname or the anonymous placeholder
func DisplayNickname(nickname *string) string {
	if nickname == nil || *nickname == "" {
		return AnonymousNickname
	}
	return *nickname
}

func validateFields(content string, lat, lon float64, tag *string) error {
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Message: "Message content is required"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return &ValidationError{Field: "content", Message: fmt.Sprintf("Message cannot exceed %d characters", MaxContentLength)}
	}
	if math.IsNaN(lat) || lat < MinLatitude || lat > MaxLatitude {
		return &ValidationError{Field: "latitude", Message: "Invalid latitude value"}
	}
	if math.IsNaN(lon) || lon < MinLongitude || lon > MaxLongitude {
		return &ValidationError{Field: "longitude", Message: "Invalid longitude value"}
	}
	if tag != nil && utf8.RuneCountInString(*tag) > MaxTagLength {
		return &ValidationError{Field: "tag", Message: fmt.Sprintf("Tag cannot exceed %d characters", MaxTagLength)}
	}
	return nil
}
