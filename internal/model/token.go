package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenContext selects which flow a token unlocks.
type TokenContext string

const (
	ContextAttendance TokenContext = "attendance"
	ContextSpend      TokenContext = "spend"
)

func (c TokenContext) Valid() bool {
	return c == ContextAttendance || c == ContextSpend
}

// TokenPayload is the server-side mapping behind an opaque token. The
// token string itself carries none of this; the cache is the only place
// the association exists.
type TokenPayload struct {
	HolderID  uuid.UUID    `json:"holder_id"`
	Context   TokenContext `json:"context"`
	ClassID   *uuid.UUID   `json:"class_id,omitempty"`
	SessionID *uuid.UUID   `json:"session_id,omitempty"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// IssuedToken is what the holder receives.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
