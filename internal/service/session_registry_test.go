package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/security"
)

func newTestRegistry(sessions *inMemorySessionRepo, principals *inMemoryPrincipalRepo, ttl time.Duration) *SessionRegistry {
	tokens := security.NewTokenManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	return NewSessionRegistry(sessions, principals, tokens, "pepper-1234567890", ttl, 2)
}

func newTestPrincipal(t *testing.T, principals *inMemoryPrincipalRepo, role domain.Role) *domain.Principal {
	t.Helper()
	p := &domain.Principal{
		ExternalID:   "ext-" + string(role),
		Identifier:   "head@campus.edu",
		DisplayName:  "Head",
		Role:         role,
		PasswordHash: "irrelevant",
	}
	if err := principals.Create(p); err != nil {
		t.Fatalf("create principal: %v", err)
	}
	return p
}

func TestCouncilThirdSessionEvictsLeastRecentlyUsed(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	registry := newTestRegistry(sessions, principals, time.Hour)
	head := newTestPrincipal(t, principals, domain.RoleClubHead)

	first, _, err := registry.Create(head, "phone")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, _, err := registry.Create(head, "laptop"); err != nil {
		t.Fatalf("second create: %v", err)
	}
	// make the first session clearly the oldest activity
	if err := sessions.TouchLastSeen(first.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("touch: %v", err)
	}

	if _, _, err := registry.Create(head, "tablet"); err != nil {
		t.Fatalf("third create: %v", err)
	}

	active, err := registry.ListActive(head.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(active))
	}
	for _, s := range active {
		if s.ID == first.ID {
			t.Fatal("expected the least recently used session to be evicted")
		}
	}
}

func TestStudentSessionsAreUncapped(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	registry := newTestRegistry(sessions, principals, time.Hour)
	student := newTestPrincipal(t, principals, domain.RoleStudent)

	for i := 0; i < 5; i++ {
		if _, _, err := registry.Create(student, "device"); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	active, err := registry.ListActive(student.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 5 {
		t.Fatalf("expected 5 active sessions, got %d", len(active))
	}
}

func TestConcurrentCouncilLoginsNeverExceedCap(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	registry := newTestRegistry(sessions, principals, time.Hour)
	head := newTestPrincipal(t, principals, domain.RoleOC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := registry.Create(head, "device"); err != nil {
				t.Errorf("create: %v", err)
			}
		}()
	}
	wg.Wait()

	count, err := sessions.CountActiveByPrincipal(head.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count > 2 {
		t.Fatalf("cap breached: %d active sessions", count)
	}
}

func TestValidateTouchesLastSeenWithoutExtendingExpiry(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	registry := newTestRegistry(sessions, principals, time.Hour)
	head := newTestPrincipal(t, principals, domain.RoleClubHead)

	created, token, err := registry.Create(head, "phone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	principal, session, err := registry.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if principal.ID != head.ID {
		t.Fatalf("expected principal %d, got %d", head.ID, principal.ID)
	}
	if !session.ExpiresAt.Equal(created.ExpiresAt) {
		t.Fatal("validation must not move the expiry")
	}
	if !session.LastSeenAt.After(created.LastSeenAt) && !session.LastSeenAt.Equal(created.LastSeenAt) {
		t.Fatal("expected last seen to be refreshed")
	}
}

func TestValidateRejectsRevokedAndExpired(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	head := newTestPrincipal(t, principals, domain.RoleClubHead)

	registry := newTestRegistry(sessions, principals, time.Hour)
	_, token, err := registry.Create(head, "phone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Revoke(token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := registry.Validate(token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for revoked token, got %v", err)
	}

	shortLived := newTestRegistry(sessions, principals, -time.Minute)
	_, expired, err := shortLived.Create(head, "phone")
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, _, err := shortLived.Validate(expired); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	registry := newTestRegistry(sessions, principals, time.Hour)
	head := newTestPrincipal(t, principals, domain.RoleClubHead)

	_, token, err := registry.Create(head, "phone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Revoke(token); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := registry.Revoke(token); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if err := registry.Revoke("never-issued"); err != nil {
		t.Fatalf("unknown token revoke: %v", err)
	}
}

func TestValidateRejectsForeignToken(t *testing.T) {
	sessions := newInMemorySessionRepo()
	principals := newInMemoryPrincipalRepo()
	registry := newTestRegistry(sessions, principals, time.Hour)

	foreign := security.NewTokenManager("other-iss", "other-aud", "zyxwvutsrqponmlkjihgfedcba654321")
	head := newTestPrincipal(t, principals, domain.RoleClubHead)
	token, _, err := foreign.SignSessionToken(head, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := registry.Validate(token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
