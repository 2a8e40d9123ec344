package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/campushub/campus-events-backend/internal/repository"
	"github.com/campushub/campus-events-backend/internal/service"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
	Meta    meta        `json:"meta"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Meta: buildMeta(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &apiError{Code: code, Message: message, Details: details}, Meta: buildMeta(r)})
}

// FromError maps domain outcomes onto the wire. Anything unmapped is a
// 500 with a generic message so internals never leak.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrAuthFailure):
		Error(w, r, http.StatusUnauthorized, "AUTH_FAILED", "invalid credentials", nil)
	case errors.Is(err, service.ErrSessionExpired):
		Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "session expired, log in again", nil)
	case errors.Is(err, service.ErrSessionNotFound):
		Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token", nil)
	case errors.Is(err, service.ErrPasswordChangeRequired):
		Error(w, r, http.StatusForbidden, "PASSWORD_CHANGE_REQUIRED", "change your password before doing anything else", nil)
	case errors.Is(err, service.ErrCrossClubDenied):
		Error(w, r, http.StatusForbidden, "CROSS_CLUB_DENIED", "you can only act on your own club", nil)
	case errors.Is(err, service.ErrNotAuthorized):
		Error(w, r, http.StatusForbidden, "FORBIDDEN", "not authorized for this action", nil)
	case errors.Is(err, service.ErrWeakPassword):
		Error(w, r, http.StatusBadRequest, "WEAK_PASSWORD", "password does not meet the strength policy", nil)
	case errors.Is(err, service.ErrSessionLimitExceeded):
		Error(w, r, http.StatusConflict, "SESSION_LIMIT", "too many concurrent sessions", nil)
	case errors.Is(err, service.ErrAlreadyMember):
		Error(w, r, http.StatusConflict, "ALREADY_MEMBER", "already an active member of this club", nil)
	case errors.Is(err, service.ErrDuplicateRequest):
		Error(w, r, http.StatusConflict, "DUPLICATE_REQUEST", "a join request for this club is already pending", nil)
	case errors.Is(err, service.ErrAlreadyDecided):
		Error(w, r, http.StatusConflict, "ALREADY_DECIDED", "this request has already been decided", nil)
	case errors.Is(err, repository.ErrClubNotFound):
		Error(w, r, http.StatusNotFound, "CLUB_NOT_FOUND", "club not found", nil)
	case errors.Is(err, repository.ErrMembershipNotFound):
		Error(w, r, http.StatusNotFound, "MEMBERSHIP_NOT_FOUND", "membership not found", nil)
	case errors.Is(err, repository.ErrEventNotFound):
		Error(w, r, http.StatusNotFound, "EVENT_NOT_FOUND", "event not found", nil)
	case errors.Is(err, repository.ErrPrincipalNotFound):
		Error(w, r, http.StatusNotFound, "PRINCIPAL_NOT_FOUND", "account not found", nil)
	default:
		Error(w, r, http.StatusInternalServerError, "INTERNAL", "something went wrong", nil)
	}
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: time.Now().UTC()}
}
