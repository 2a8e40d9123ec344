package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campushub/campus-events-backend/internal/domain"
	"github.com/campushub/campus-events-backend/internal/http/handler"
	"github.com/campushub/campus-events-backend/internal/http/router"
	"github.com/campushub/campus-events-backend/internal/notify"
	"github.com/campushub/campus-events-backend/internal/repository"
	"github.com/campushub/campus-events-backend/internal/security"
	"github.com/campushub/campus-events-backend/internal/service"
)

const (
	testBcryptCost        = 4
	studentBootstrapPass  = "Kmit123$"
	councilBootstrapPass  = "Council123$"
	strongPassword        = "N3w$tr0ngPass!"
	anotherStrongPassword = "Oth3r$tr0ngPass!"
)

var dbSeq atomic.Int64

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type testEnv struct {
	t       *testing.T
	baseURL string
	client  *http.Client
	db      *gorm.DB
}

// newTestEnv wires the full stack onto an in-memory sqlite database
// behind a real HTTP listener. Rate limits are set high enough that no
// test trips them.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:integration%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Principal{},
		&domain.Session{},
		&domain.Club{},
		&domain.Membership{},
		&domain.Event{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	principals := repository.NewPrincipalRepository(db)
	sessions := repository.NewSessionRepository(db)
	memberships := repository.NewMembershipRepository(db)
	events := repository.NewEventRepository(db)

	tokens := security.NewTokenManager("test-issuer", "test-audience", "integration-test-secret-0123456789ab")
	credentials := service.NewCredentialStore(principals, testBcryptCost)
	registry := service.NewSessionRegistry(sessions, principals, tokens, "test-pepper", 45*24*time.Hour, 2)
	authSvc := service.NewAuthService(credentials, registry)

	authorizer := service.NewRoleAuthorizer()
	ledger := service.NewMembershipLedger(memberships, authorizer,
		service.NewInMemoryMembershipCacheStore(), time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eventSvc := service.NewEventService(events, memberships, authorizer, notify.NewLogNotifier(logger))

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		ClubHandler:      handler.NewClubHandler(ledger),
		EventHandler:     handler.NewEventHandler(eventSvc),
		Auth:             authSvc,
		CORSOrigins:      []string{"http://localhost"},
		APIRateLimitRPM:  100000,
		AuthRateLimitRPM: 100000,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testEnv{
		t:       t,
		baseURL: srv.URL,
		client:  srv.Client(),
		db:      db,
	}
}

func (e *testEnv) seedPrincipal(identifier string, role domain.Role, password string, forceChange bool) *domain.Principal {
	e.t.Helper()
	hash, err := security.HashPassword(password, testBcryptCost)
	if err != nil {
		e.t.Fatalf("hash password: %v", err)
	}
	p := &domain.Principal{
		ExternalID:          uuid.NewString(),
		Identifier:          identifier,
		DisplayName:         identifier,
		Role:                role,
		PasswordHash:        hash,
		ForcePasswordChange: forceChange,
	}
	if err := e.db.Create(p).Error; err != nil {
		e.t.Fatalf("seed principal %s: %v", identifier, err)
	}
	return p
}

func (e *testEnv) seedClub(name string, headID uint) *domain.Club {
	e.t.Helper()
	club := &domain.Club{
		ExternalID:      uuid.NewString(),
		Name:            name,
		HeadPrincipalID: headID,
	}
	if err := e.db.Create(club).Error; err != nil {
		e.t.Fatalf("seed club %s: %v", name, err)
	}
	return club
}

func (e *testEnv) do(method, path, token string, body any) (*http.Response, apiEnvelope) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.baseURL+path, reader)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		e.t.Fatalf("decode envelope for %s %s: %v", method, path, err)
	}
	return resp, env
}

type loginData struct {
	Token               string `json:"token"`
	ForcePasswordChange bool   `json:"force_password_change"`
}

func (e *testEnv) login(path, identifier, role, password string) (loginData, *http.Response, apiEnvelope) {
	e.t.Helper()
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
		"device":     "integration-test",
	}
	if role != "" {
		body["role"] = role
	}
	resp, env := e.do(http.MethodPost, path, "", body)
	var data loginData
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			e.t.Fatalf("decode login data: %v", err)
		}
	}
	return data, resp, env
}

func (e *testEnv) studentLogin(identifier, password string) (loginData, *http.Response, apiEnvelope) {
	return e.login("/api/v1/auth/student-login", identifier, "", password)
}

func (e *testEnv) councilLogin(identifier, role, password string) (loginData, *http.Response, apiEnvelope) {
	return e.login("/api/v1/auth/council-login", identifier, role, password)
}
