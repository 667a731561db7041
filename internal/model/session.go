package model

import "time"

// Session lives in the session backend, not in SQL. The raw token is only
// ever held by the client, the backend is keyed by TokenHash.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	TokenHash     string    `json:"tokenHash"`
	IPAddress     string    `json:"ipAddress"`
	UserAgent     string    `json:"userAgent"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	LastTouchedAt time.Time `json:"lastTouchedAt"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
