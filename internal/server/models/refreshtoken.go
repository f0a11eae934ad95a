package models

import "time"

// SessionMetadata is request information captured when a refresh token is
// issued. It is shown to users in session listings and never drives a
// security decision.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
}

// RefreshToken is one stored link of a rotation chain. All links descended
// from one login share Family.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	Family    string
	Used      bool
	UsedAt    *time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
	Metadata  SessionMetadata
}

// Expired reports whether the token is past its expiry at now. At exactly
// ExpiresAt it is not expired yet.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// Active reports whether the token is listed as a live session at now:
// unused and expiring strictly after now. At exactly ExpiresAt a token is
// neither Active nor Expired, so it still rotates once but no longer shows
// in session listings.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Used && t.ExpiresAt.After(now)
}

// Summary projects the token into the shape shown in session listings.
func (t *RefreshToken) Summary() SessionSummary {
	return SessionSummary{
		ID:        t.ID,
		Family:    t.Family,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
		IPAddress: t.Metadata.IPAddress,
		UserAgent: t.Metadata.UserAgent,
	}
}

// SessionSummary is the public view of an active session.
type SessionSummary struct {
	ID        string    `json:"id"`
	Family    string    `json:"family"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}
