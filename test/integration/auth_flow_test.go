package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/campushub/campus-events-backend/internal/domain"
)

func TestBootstrapLoginForcesPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrincipal("22bd1a0501", domain.RoleStudent, studentBootstrapPass, true)

	data, resp, _ := env.studentLogin("22bd1a0501", studentBootstrapPass)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	if !data.ForcePasswordChange {
		t.Fatal("expected force_password_change on bootstrap login")
	}

	// everything except the password change is gated off
	resp, envlp := env.do(http.MethodGet, "/api/v1/me/clubs", data.Token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("gated route: expected 403, got %d", resp.StatusCode)
	}
	if envlp.Error == nil || envlp.Error.Code != "PASSWORD_CHANGE_REQUIRED" {
		t.Fatalf("expected PASSWORD_CHANGE_REQUIRED, got %+v", envlp.Error)
	}

	resp, envlp = env.do(http.MethodPost, "/api/v1/auth/change-password", data.Token,
		map[string]string{"new_password": "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("weak password: expected 400, got %d", resp.StatusCode)
	}
	if envlp.Error == nil || envlp.Error.Code != "WEAK_PASSWORD" {
		t.Fatalf("expected WEAK_PASSWORD, got %+v", envlp.Error)
	}

	resp, _ = env.do(http.MethodPost, "/api/v1/auth/change-password", data.Token,
		map[string]string{"new_password": strongPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = env.do(http.MethodGet, "/api/v1/me/clubs", data.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("after change: expected 200, got %d", resp.StatusCode)
	}

	// the bootstrap password is dead
	_, resp, _ = env.studentLogin("22bd1a0501", studentBootstrapPass)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d", resp.StatusCode)
	}
	data, resp, _ = env.studentLogin("22bd1a0501", strongPassword)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new password: expected 200, got %d", resp.StatusCode)
	}
	if data.ForcePasswordChange {
		t.Fatal("flag should be cleared after the change")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrincipal("22bd1a0502", domain.RoleStudent, strongPassword, false)

	_, respUnknown, envUnknown := env.studentLogin("no-such-student", "whatever")
	_, respWrong, envWrong := env.studentLogin("22bd1a0502", "wrong-password")
	// a council identifier through the student door fails the same way
	env.seedPrincipal("head.x", domain.RoleClubHead, councilBootstrapPass, false)
	_, respDoor, envDoor := env.studentLogin("head.x", councilBootstrapPass)

	for _, resp := range []*http.Response{respUnknown, respWrong, respDoor} {
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	}
	a, _ := json.Marshal(envUnknown.Error)
	b, _ := json.Marshal(envWrong.Error)
	c, _ := json.Marshal(envDoor.Error)
	if string(a) != string(b) || string(b) != string(c) {
		t.Fatalf("failure envelopes differ: %s vs %s vs %s", a, b, c)
	}
}

func TestCouncilSessionCapEvictsOldest(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrincipal("head.coding", domain.RoleClubHead, strongPassword, false)

	first, resp, _ := env.councilLogin("head.coding", "club_head", strongPassword)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first login: expected 200, got %d", resp.StatusCode)
	}
	second, resp, _ := env.councilLogin("head.coding", "club_head", strongPassword)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second login: expected 200, got %d", resp.StatusCode)
	}
	third, resp, _ := env.councilLogin("head.coding", "club_head", strongPassword)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("third login: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = env.do(http.MethodPost, "/api/v1/auth/verify-token", first.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("evicted session: expected 401, got %d", resp.StatusCode)
	}
	for _, token := range []string{second.Token, third.Token} {
		resp, _ = env.do(http.MethodPost, "/api/v1/auth/verify-token", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("surviving session: expected 200, got %d", resp.StatusCode)
		}
	}
}

func TestStudentSessionsAreUncapped(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrincipal("22bd1a0503", domain.RoleStudent, strongPassword, false)

	tokens := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		data, resp, _ := env.studentLogin("22bd1a0503", strongPassword)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login %d: expected 200, got %d", i, resp.StatusCode)
		}
		tokens = append(tokens, data.Token)
	}
	for i, token := range tokens {
		resp, _ := env.do(http.MethodPost, "/api/v1/auth/verify-token", token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("session %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrincipal("22bd1a0504", domain.RoleStudent, strongPassword, false)

	other, _, _ := env.studentLogin("22bd1a0504", strongPassword)
	current, _, _ := env.studentLogin("22bd1a0504", strongPassword)

	resp, _ := env.do(http.MethodPost, "/api/v1/auth/change-password", current.Token,
		map[string]string{"new_password": anotherStrongPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = env.do(http.MethodPost, "/api/v1/auth/verify-token", other.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("other session: expected 401, got %d", resp.StatusCode)
	}
	resp, _ = env.do(http.MethodPost, "/api/v1/auth/verify-token", current.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current session: expected 200, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedPrincipal("22bd1a0505", domain.RoleStudent, strongPassword, false)
	data, _, _ := env.studentLogin("22bd1a0505", strongPassword)

	resp, _ := env.do(http.MethodPost, "/api/v1/auth/logout", data.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(http.MethodPost, "/api/v1/auth/verify-token", data.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", resp.StatusCode)
	}
}
