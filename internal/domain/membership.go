package domain

import "time"

type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipActive   MembershipStatus = "active"
	MembershipRejected MembershipStatus = "rejected"
)

// Membership relates a student principal to a club. A student may hold
// active membership in any number of clubs at once; rejected rows do
// not block a later request.
type Membership struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	StudentID   uint             `gorm:"index:idx_membership_student_club;not null" json:"student_id"`
	ClubID      uint             `gorm:"index:idx_membership_student_club;index;not null" json:"club_id"`
	Status      MembershipStatus `gorm:"size:16;index;not null" json:"status"`
	RequestedAt time.Time        `gorm:"not null" json:"requested_at"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
