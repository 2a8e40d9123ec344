package service

import (
	"errors"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/repository"
	"github.com/campushub/campus-events-backend/internal/security"
)

// dummyHash is compared against when the identifier is unknown so the
// failure path costs the same as a real comparison.
const dummyHash = "$2a$12$8Kc1R1U0q1m9c8S7y6B5uOQ0b3l7aT9XoPqWm2nJ4vZr6sD8fGhiW"

// CredentialStore verifies identifier + role + password triples and
// applies password changes. It never returns or logs hash material.
type CredentialStore struct {
	principals repository.PrincipalRepository
	bcryptCost int
}

func NewCredentialStore(principals repository.PrincipalRepository, bcryptCost int) *CredentialStore {
	return &CredentialStore{principals: principals, bcryptCost: bcryptCost}
}

// Verify resolves the principal for the identifier and checks the
// password. Every failure collapses into the same ErrAuthFailure value;
// bootstrap default passwords take this exact path, their only special
// consequence being the ForcePasswordChange flag on the principal.
func (s *CredentialStore) Verify(identifier string, role domain.Role, password string) (*domain.Principal, error) {
	principal, err := s.principals.FindByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, repository.ErrPrincipalNotFound) {
			security.CheckPassword(dummyHash, password)
			return nil, ErrAuthFailure
		}
		return nil, err
	}
	if principal.Role != role {
		security.CheckPassword(dummyHash, password)
		return nil, ErrAuthFailure
	}
	if !security.CheckPassword(principal.PasswordHash, password) {
		return nil, ErrAuthFailure
	}
	return principal, nil
}

// ChangePassword enforces the strength policy, swaps the hash, and
// clears ForcePasswordChange in the same write.
func (s *CredentialStore) ChangePassword(principalID uint, newPassword string) error {
	if err := security.ValidatePasswordStrength(newPassword); err != nil {
		return ErrWeakPassword
	}
	hash, err := security.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.principals.UpdatePassword(principalID, hash)
}
