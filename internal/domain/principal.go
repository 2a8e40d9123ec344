package domain

import "time"

// Principal is any identity that can log in: a student or a council
// account. Exactly one role tier per principal.
type Principal struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	ExternalID          string     `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Identifier          string     `gorm:"size:128;uniqueIndex;not null" json:"identifier"`
	DisplayName         string     `gorm:"size:256" json:"display_name"`
	Role                Role       `gorm:"size:32;index;not null" json:"role"`
	PasswordHash        string     `gorm:"size:128;not null" json:"-"`
	ForcePasswordChange bool       `gorm:"not null;default:false" json:"force_password_change"`
	LastActiveAt        *time.Time `gorm:"index" json:"last_active_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
