package domain

import "time"

// Event belongs to a club; mutation rights follow the club's head and
// the council tiers above it.
type Event struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ExternalID  string    `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	ClubID      uint      `gorm:"index;not null" json:"club_id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"size:2048" json:"description"`
	StartsAt    time.Time `gorm:"index;not null" json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedBy   uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
