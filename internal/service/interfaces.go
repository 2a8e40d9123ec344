package service

import (
	"context"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/repository"
)

// Authenticator is what the HTTP layer needs from the auth service.
type Authenticator interface {
	Login(ctx context.Context, identifier string, role domain.Role, password, device string) (*LoginResult, error)
	ChangePassword(ctx context.Context, principal *domain.Principal, session *domain.Session, newPassword string) error
	Verify(ctx context.Context, token string) (*domain.Principal, *domain.Session, error)
	Logout(ctx context.Context, token string) error
	Sessions(ctx context.Context, principalID uint) ([]domain.Session, error)
}

// MembershipManager is what the HTTP layer needs from the ledger.
type MembershipManager interface {
	RequestJoin(ctx context.Context, student *domain.Principal, clubID uint) (*domain.Membership, error)
	Decide(ctx context.Context, actor *domain.Principal, membershipID uint, approve bool) (*domain.Membership, error)
	Leave(ctx context.Context, student *domain.Principal, clubID uint) error
	ActiveClubs(ctx context.Context, studentID uint) ([]domain.Club, error)
	Roster(ctx context.Context, actor *domain.Principal, clubID uint, req repository.PageRequest) (repository.PageResult[domain.Principal], error)
	PendingRequests(ctx context.Context, actor *domain.Principal, clubID uint) ([]domain.Membership, error)
	CreateClub(ctx context.Context, actor *domain.Principal, club *domain.Club) error
	ListClubs(ctx context.Context) ([]domain.Club, error)
	ClubByID(ctx context.Context, clubID uint) (*domain.Club, error)
}

// EventManager is what the HTTP layer needs from the event service.
type EventManager interface {
	Create(ctx context.Context, actor *domain.Principal, clubID uint, in EventInput) (*domain.Event, error)
	Update(ctx context.Context, actor *domain.Principal, eventID uint, in EventInput) (*domain.Event, error)
	Delete(ctx context.Context, actor *domain.Principal, eventID uint) error
	Get(ctx context.Context, eventID uint) (*domain.Event, error)
	ListByClub(ctx context.Context, clubID uint, req repository.PageRequest) (repository.PageResult[domain.Event], error)
	BroadcastClub(ctx context.Context, actor *domain.Principal, clubID uint, subject, body string) error
	BroadcastCollege(ctx context.Context, actor *domain.Principal, subject, body string) error
}
