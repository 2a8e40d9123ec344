package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/http/middleware"
	"github.com/campushub/campus-events-backend/internal/service"
)

type scriptedAuth struct {
	loginResult *service.LoginResult
	loginErr    error
	changeErr   error
	gotRole     domain.Role
}

func (a *scriptedAuth) Login(_ context.Context, _ string, role domain.Role, _, _ string) (*service.LoginResult, error) {
	a.gotRole = role
	return a.loginResult, a.loginErr
}

func (a *scriptedAuth) ChangePassword(context.Context, *domain.Principal, *domain.Session, string) error {
	return a.changeErr
}

func (a *scriptedAuth) Verify(context.Context, string) (*domain.Principal, *domain.Session, error) {
	return nil, nil, service.ErrSessionNotFound
}

func (a *scriptedAuth) Logout(context.Context, string) error { return nil }

func (a *scriptedAuth) Sessions(context.Context, uint) ([]domain.Session, error) { return nil, nil }

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestStudentLoginPinsRole(t *testing.T) {
	auth := &scriptedAuth{
		loginResult: &service.LoginResult{
			Principal: &domain.Principal{ID: 1, Role: domain.RoleStudent},
			Session:   &domain.Session{ID: 1, ExpiresAt: time.Now().Add(time.Hour)},
			Token:     "tok",
		},
	}
	h := NewAuthHandler(auth)

	rr := postJSON(h.StudentLogin, "/auth/student-login",
		`{"identifier":"22bd1a0501","password":"Kmit123$","role":"admin"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if auth.gotRole != domain.RoleStudent {
		t.Fatalf("role = %s, the student door must ignore role claims", auth.gotRole)
	}
}

func TestCouncilLoginRejectsNonCouncilRole(t *testing.T) {
	h := NewAuthHandler(&scriptedAuth{})

	for _, body := range []string{
		`{"identifier":"x","password":"y","role":"student"}`,
		`{"identifier":"x","password":"y","role":"superuser"}`,
		`{"identifier":"x","password":"y"}`,
	} {
		rr := postJSON(h.CouncilLogin, "/auth/council-login", body)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", body, rr.Code)
		}
	}
}

func TestLoginFailureMapsTo401(t *testing.T) {
	h := NewAuthHandler(&scriptedAuth{loginErr: service.ErrAuthFailure})

	rr := postJSON(h.StudentLogin, "/auth/student-login",
		`{"identifier":"22bd1a0501","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestLoginRejectsMissingFields(t *testing.T) {
	h := NewAuthHandler(&scriptedAuth{})

	rr := postJSON(h.StudentLogin, "/auth/student-login", `{"identifier":" "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestVerifyTokenRequiresSessionInContext(t *testing.T) {
	h := NewAuthHandler(&scriptedAuth{})

	req := httptest.NewRequest(http.MethodGet, "/auth/verify-token", nil)
	ctx := context.WithValue(req.Context(), middleware.PrincipalContextKey, &domain.Principal{ID: 1})
	rr := httptest.NewRecorder()
	h.VerifyToken(rr, req.WithContext(ctx))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a session in context, got %d", rr.Code)
	}

	ctx = context.WithValue(ctx, middleware.SessionContextKey, &domain.Session{ID: 1, ExpiresAt: time.Now().Add(time.Hour)})
	rr = httptest.NewRecorder()
	h.VerifyToken(rr, req.WithContext(ctx))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with a full context, got %d", rr.Code)
	}
}

func TestChangePasswordWeakMapsTo400(t *testing.T) {
	h := NewAuthHandler(&scriptedAuth{changeErr: service.ErrWeakPassword})

	req := httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(`{"new_password":"short"}`))
	ctx := context.WithValue(req.Context(), middleware.PrincipalContextKey, &domain.Principal{ID: 1})
	ctx = context.WithValue(ctx, middleware.SessionContextKey, &domain.Session{ID: 1})
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, req.WithContext(ctx))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
