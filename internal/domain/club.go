package domain

import "time"

// Club has exactly one head principal who administers its pending
// membership requests and owns its events.
type Club struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ExternalID      string    `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Name            string    `gorm:"size:256;uniqueIndex;not null" json:"name"`
	HeadPrincipalID uint      `gorm:"uniqueIndex;not null" json:"head_principal_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
