package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/http/middleware"
	"github.com/campushub/campus-events-backend/internal/http/response"
	"github.com/campushub/campus-events-backend/internal/observability"
	"github.com/campushub/campus-events-backend/internal/service"
)

type AuthHandler struct {
	auth service.Authenticator
}

func NewAuthHandler(auth service.Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	Device     string `json:"device"`
}

type loginResponse struct {
	Token               string            `json:"token"`
	ExpiresAt           string            `json:"expires_at"`
	ForcePasswordChange bool              `json:"force_password_change"`
	Principal           *domain.Principal `json:"principal"`
}

// StudentLogin is the student door: the role is pinned, not read from
// the request.
func (h *AuthHandler) StudentLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, domain.RoleStudent, false)
}

// CouncilLogin accepts any council tier. Students knocking here get the
// same generic failure as a wrong password.
func (h *AuthHandler) CouncilLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, "", true)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, fixedRole domain.Role, council bool) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "identifier and password are required", nil)
		return
	}

	role := fixedRole
	if council {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil || !parsed.IsCouncil() {
			// an invalid role claim must look like any other bad credential
			response.FromError(w, r, service.ErrAuthFailure)
			return
		}
		role = parsed
	}

	result, err := h.auth.Login(r.Context(), req.Identifier, role, req.Password, req.Device)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "login", "principal_id", result.Principal.ID, "role", result.Principal.Role.String())
	response.JSON(w, r, http.StatusOK, loginResponse{
		Token:               result.Token,
		ExpiresAt:           result.Session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		ForcePasswordChange: result.ForcePasswordChange,
		Principal:           result.Principal,
	})
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
		return
	}
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), principal, session, req.NewPassword); err != nil {
		response.FromError(w, r, err)
		return
	}
	observability.Audit(r, "password_changed", "principal_id", principal.ID)
	response.JSON(w, r, http.StatusOK, map[string]bool{"changed": true})
}

type verifyResponse struct {
	Principal           *domain.Principal `json:"principal"`
	SessionExpiresAt    string            `json:"session_expires_at"`
	ForcePasswordChange bool              `json:"force_password_change"`
}

// VerifyToken lets other backend components resolve a token to its
// principal without sharing the signing secret.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
		return
	}
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, verifyResponse{
		Principal:           principal,
		SessionExpiresAt:    session.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		ForcePasswordChange: principal.ForcePasswordChange,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if err := h.auth.Logout(r.Context(), raw); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
		return
	}
	sessions, err := h.auth.Sessions(r.Context(), principal.ID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": sessions})
}
