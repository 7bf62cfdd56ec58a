// models.go -- Shared domain types for the store package.
// Used by both Postgres (durable store) and Redis (token denylist / rate limiter).
package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrRateLimitExceeded is returned by Allow when the caller is locked out.
// Callers use errors.Is to distinguish rate limit rejections from Redis failures.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// User represents a row in the users table.
// Nullable columns are pointers — nil means SQL NULL.
// At least one of PasswordHash and IDPSubject is always set (DB CHECK).
type User struct {
	ID           uuid.UUID
	Email        string
	FullName     *string
	AvatarURL    *string
	PasswordHash *string
	IDPSubject   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Conversation represents a row in the conversations table.
type Conversation struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Title          string
	TargetPlatform string
	Model          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Message represents a row in the messages table.
// Thinking holds model reasoning extracted from the raw completion; nil for
// user messages and for models that emit none.
// Metadata snapshots the generation context (platform, model) and, for
// assistant messages, the analytics computed at generation time, so history
// fetches can surface them without recomputing. Nil means none recorded.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           string
	Content        string
	Thinking       *string
	Metadata       map[string]any
	CreatedAt      time.Time
}

// UserSettings represents a row in the user_settings table.
type UserSettings struct {
	UserID          uuid.UUID
	DefaultModel    string
	DefaultPlatform string
	Theme           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ConversationUpdate holds the mutable subset of Conversation for PUT
// requests. Nil fields are left unchanged.
type ConversationUpdate struct {
	Title          *string
	TargetPlatform *string
	Model          *string
}

// SettingsUpdate holds the mutable subset of UserSettings for PUT requests.
// Nil fields are left unchanged.
type SettingsUpdate struct {
	DefaultModel    *string
	DefaultPlatform *string
	Theme           *string
}

// RateLimit defines the policy for a rate-limited action.
// All three fields required, zero values disable the respective behaviour.
type RateLimit struct {
	MaxAttempts int           // attempts allowed within Window before lockout
	Window      time.Duration // rolling window for attempt counting
	LockoutTTL  time.Duration // how long to block after MaxAttempts is hit
}
