package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/observability"
	"github.com/campushub/campus-events-backend/internal/repository"
	"github.com/campushub/campus-events-backend/internal/security"
)

// SessionRegistry tracks active sessions. Council-tier principals hold
// at most councilLimit concurrent sessions; on breach the least-recently
// used session is evicted (policy choice: eviction over rejection, so a
// head who lost a phone can always log in from a new device). Students
// are uncapped. Expiry is fixed from issuance, never sliding.
type SessionRegistry struct {
	sessions     repository.SessionRepository
	principals   repository.PrincipalRepository
	tokens       *security.TokenManager
	pepper       string
	ttl          time.Duration
	councilLimit int
	locks        *stripedMutex
}

func NewSessionRegistry(
	sessions repository.SessionRepository,
	principals repository.PrincipalRepository,
	tokens *security.TokenManager,
	pepper string,
	ttl time.Duration,
	councilLimit int,
) *SessionRegistry {
	return &SessionRegistry{
		sessions:     sessions,
		principals:   principals,
		tokens:       tokens,
		pepper:       pepper,
		ttl:          ttl,
		councilLimit: councilLimit,
		locks:        newStripedMutex(),
	}
}

// Create issues a session and its token. The cap check and the insert
// are serialized per principal so concurrent logins cannot slip a third
// council session past the limit.
func (r *SessionRegistry) Create(principal *domain.Principal, device string) (*domain.Session, string, error) {
	r.locks.Lock(principal.ID)
	defer r.locks.Unlock(principal.ID)

	if principal.Role.IsCouncil() {
		active, err := r.sessions.ListActiveByPrincipal(principal.ID)
		if err != nil {
			return nil, "", err
		}
		for len(active) >= r.councilLimit {
			evictee := active[0]
			if _, err := r.sessions.RevokeByID(evictee.ID, "evicted_lru"); err != nil {
				return nil, "", err
			}
			observability.RecordSessionEvent("evicted")
			active = active[1:]
		}
	}

	token, jti, err := r.tokens.SignSessionToken(principal, r.ttl)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	session := &domain.Session{
		PrincipalID: principal.ID,
		TokenHash:   security.HashSessionToken(token, r.pepper),
		TokenID:     jti,
		Device:      device,
		IssuedAt:    now,
		ExpiresAt:   now.Add(r.ttl),
		LastSeenAt:  now,
	}
	if err := r.sessions.Create(session); err != nil {
		return nil, "", err
	}
	observability.RecordSessionEvent("created")
	return session, token, nil
}

// Validate resolves a raw token to its principal. Expired sessions and
// expired tokens report ErrSessionExpired; revoked or unknown tokens
// report ErrSessionNotFound. A valid call refreshes LastSeenAt, which
// only feeds eviction ordering, not expiry.
func (r *SessionRegistry) Validate(token string) (*domain.Principal, *domain.Session, error) {
	if _, err := r.tokens.ParseSessionToken(token); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, ErrSessionExpired
		}
		return nil, nil, ErrSessionNotFound
	}

	session, err := r.sessions.FindByTokenHash(security.HashSessionToken(token, r.pepper))
	if err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	if session.RevokedAt != nil {
		return nil, nil, ErrSessionNotFound
	}
	if !session.ExpiresAt.After(now) {
		observability.RecordSessionEvent("expired")
		return nil, nil, ErrSessionExpired
	}

	principal, err := r.principals.FindByID(session.PrincipalID)
	if err != nil {
		return nil, nil, err
	}
	if err := r.sessions.TouchLastSeen(session.ID, now); err != nil {
		return nil, nil, err
	}
	if err := r.principals.TouchLastActive(principal.ID, now); err != nil {
		return nil, nil, err
	}
	session.LastSeenAt = now
	return principal, session, nil
}

// Revoke is idempotent: revoking an unknown or already revoked token
// succeeds quietly.
func (r *SessionRegistry) Revoke(token string) error {
	changed, err := r.sessions.RevokeByTokenHash(security.HashSessionToken(token, r.pepper), "logout")
	if err != nil {
		return err
	}
	if changed {
		observability.RecordSessionEvent("revoked")
	}
	return nil
}

// revokeOthers closes every session of the principal except the one
// driving the change.
func (r *SessionRegistry) revokeOthers(principalID, keepSessionID uint, reason string) (int64, error) {
	return r.sessions.RevokeByPrincipalExcept(principalID, keepSessionID, reason)
}

// ListActive returns the caller's live sessions, least recently used
// first.
func (r *SessionRegistry) ListActive(principalID uint) ([]domain.Session, error) {
	return r.sessions.ListActiveByPrincipal(principalID)
}
