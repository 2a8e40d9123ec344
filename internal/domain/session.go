package domain

import "time"

// Session is one authenticated login. The raw token is never stored;
// TokenHash is a SHA-256 digest of it. LastSeenAt drives least-recently-
// used eviction when a council principal exceeds the concurrency cap.
type Session struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PrincipalID   uint       `gorm:"index;not null" json:"principal_id"`
	TokenHash     string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	TokenID       string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	Device        string     `gorm:"size:512" json:"device"`
	IssuedAt      time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt     time.Time  `gorm:"index;not null" json:"expires_at"`
	LastSeenAt    time.Time  `gorm:"index;not null" json:"last_seen_at"`
	RevokedAt     *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	RevokedReason *string    `gorm:"size:64" json:"revoked_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Active reports whether the session is valid at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
