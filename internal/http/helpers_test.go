package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	mocks "github.com/snr-automations/teamdash/internal/mocks/auth"
	"github.com/snr-automations/teamdash/internal/service"
)

const (
	bobEmail = "bob@snr.example"
	bobID    = "0b0b0b0b-0000-4000-8000-000000000002"
	bobPass  = "hunter22"
	tabID    = "3d7a1b52-9a41-4f6e-8d0c-5c2b1f0a9e11"
)

type allowlistMap map[string]bool

func (m allowlistMap) FindByEmail(_ context.Context, email string) (*domainauth.AllowListEntry, error) {
	active, ok := m[email]
	if !ok {
		return nil, apperrors.NotFoundf("authorized user %q not found", email)
	}
	return &domainauth.AllowListEntry{Email: email, Active: active}, nil
}

type profileMap map[string]domainauth.UserProfile

func (m profileMap) GetByID(_ context.Context, id string) (*domainauth.UserProfile, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %q not found", id)
	}
	return &p, nil
}

// testStack wires the real services over in-memory adapters.
type testStack struct {
	provider *mocks.MockIdentityProvider
	recovery *mocks.MemoryRecoveryStore
	registry *service.RuntimeRegistry
	handler  http.Handler
}

type stackOptions struct {
	rateLimiter *RateLimiter
	health      map[string]Pinger
	metrics     http.Handler
}

func newTestStack(t *testing.T, opts stackOptions) *testStack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider := mocks.NewMockIdentityProvider(map[string]mocks.MockUser{
		bobEmail: {ID: bobID, Password: bobPass},
	})
	profiles := service.NewProfileLoader(service.ProfileLoaderOptions{
		Repo: profileMap{bobID: {
			ID:    bobID,
			Email: bobEmail,
			Name:  "Bob",
			Role:  domainauth.RoleTech,
		}},
		Logger: logger,
	})
	gate := service.NewAllowlistGate(service.AllowlistGateOptions{
		Repo:   allowlistMap{bobEmail: true, "gone@snr.example": false},
		Logger: logger,
	})
	registry := service.NewRuntimeRegistry(service.RuntimeRegistryOptions{
		Provider: provider,
		Sessions: mocks.NewMemorySessionStore(),
		Profiles: profiles,
		Logger:   logger,
	})
	t.Cleanup(registry.Close)

	recovery := mocks.NewMemoryRecoveryStore()
	h := NewRouter(RouterServices{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Gate:             gate,
			Profiles:         profiles,
			ResetRedirectURL: "http://localhost:3001/set-password",
			Logger:           logger,
		}),
		Recovery:    service.NewRecoveryService(service.RecoveryServiceOptions{Store: recovery, Logger: logger}),
		Runtimes:    registry,
		SignInPath:  "/login",
		RateLimiter: opts.rateLimiter,
		Health:      opts.health,
		Metrics:     opts.metrics,
		Logger:      logger,
	})
	return &testStack{provider: provider, recovery: recovery, registry: registry, handler: h}
}

type request struct {
	method  string
	path    string
	body    any
	cookies []*http.Cookie
	header  map[string]string
}

func (s *testStack) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader = http.NoBody
	if r.body != nil {
		switch b := r.body.(type) {
		case string:
			body = bytes.NewBufferString(b)
		default:
			buf, err := json.Marshal(b)
			require.NoError(t, err)
			body = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// clientCookie returns the client_id cookie set on rec.
func clientCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == ClientIDCookie {
			return c
		}
	}
	t.Fatalf("response did not set %s", ClientIDCookie)
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// signIn logs bob in and returns the client cookie.
func (s *testStack) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	rec := s.do(t, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": bobEmail, "password": bobPass},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return clientCookie(t, rec)
}
