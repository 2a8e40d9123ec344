package service

import (
	"context"
	"errors"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"
)

// LoginResult carries everything a successful login hands back. The raw
// token appears here once and is never stored.
type LoginResult struct {
	Principal           *domain.Principal
	Session             *domain.Session
	Token               string
	ForcePasswordChange bool
}

// AuthService composes credential verification with session issuance.
// It is the only entry point handlers use for the login flows.
type AuthService struct {
	credentials *CredentialStore
	registry    *SessionRegistry
}

func NewAuthService(credentials *CredentialStore, registry *SessionRegistry) *AuthService {
	return &AuthService{credentials: credentials, registry: registry}
}

// Login verifies the triple and opens a session. The role argument pins
// the login surface: a council member cannot log in through the student
// door and vice versa, and the mismatch is indistinguishable from a bad
// password.
func (s *AuthService) Login(ctx context.Context, identifier string, role domain.Role, password, device string) (*LoginResult, error) {
	principal, err := s.credentials.Verify(identifier, role, password)
	if err != nil {
		if errors.Is(err, ErrAuthFailure) {
			observability.RecordLogin(string(role), "failure")
		}
		return nil, err
	}

	session, token, err := s.registry.Create(principal, device)
	if err != nil {
		observability.RecordLogin(string(role), "error")
		return nil, err
	}
	observability.RecordLogin(string(role), "success")
	return &LoginResult{
		Principal:           principal,
		Session:             session,
		Token:               token,
		ForcePasswordChange: principal.ForcePasswordChange,
	}, nil
}

// ChangePassword swaps the principal's password and revokes every other
// session, so a bootstrap credential stops working everywhere the moment
// it is replaced. The current session stays alive.
func (s *AuthService) ChangePassword(ctx context.Context, principal *domain.Principal, session *domain.Session, newPassword string) error {
	if err := s.credentials.ChangePassword(principal.ID, newPassword); err != nil {
		return err
	}
	revoked, err := s.registry.revokeOthers(principal.ID, session.ID, "password_changed")
	if err != nil {
		return err
	}
	if revoked > 0 {
		observability.RecordSessionEvent("revoked_on_password_change")
	}
	return nil
}

// Verify resolves a bearer token to its principal and session.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.Principal, *domain.Session, error) {
	return s.registry.Validate(token)
}

// Logout revokes the presented token. Unknown and already revoked
// tokens log out successfully.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.registry.Revoke(token)
}

// Sessions lists the principal's live sessions, oldest activity first.
func (s *AuthService) Sessions(ctx context.Context, principalID uint) ([]domain.Session, error) {
	return s.registry.ListActive(principalID)
}
