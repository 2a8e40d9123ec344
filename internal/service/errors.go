package service

import (
	"errors"

	"github.com/campushub/campus-events-backend/internal/repository"
)

// Expected outcomes returned to callers. None of these are fatal; the
// HTTP layer maps them to status codes.
var (
	// ErrAuthFailure covers both unknown identifier and wrong password so
	// callers cannot enumerate identifiers.
	ErrAuthFailure = errors.New("invalid credentials")

	ErrSessionLimitExceeded = errors.New("session limit exceeded")
	ErrSessionExpired       = errors.New("session expired")
	ErrSessionNotFound      = repository.ErrSessionNotFound

	ErrWeakPassword           = errors.New("password does not meet the strength policy")
	ErrPasswordChangeRequired = errors.New("password change required before any other action")

	ErrAlreadyMember    = errors.New("already an active member of this club")
	ErrDuplicateRequest = errors.New("a join request for this club is already pending")
	ErrAlreadyDecided   = errors.New("membership request already decided")

	ErrNotAuthorized   = errors.New("not authorized for this action")
	ErrCrossClubDenied = errors.New("club heads cannot act on another club's resources")
)
