package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider   = (*MockIdentityProvider)(nil)
	_ ports.SessionStore       = (*MemorySessionStore)(nil)
	_ ports.RecoveryTokenStore = (*MemoryRecoveryStore)(nil)
)

// MockIdentityProvider simulates the identity provider with deterministic tokens.
// Set a *Func field to override one operation; otherwise Users drives the behavior.
type MockIdentityProvider struct {
	SignInFunc         func(ctx context.Context, cred domainauth.Credential) (domainauth.ProviderSession, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (domainauth.ProviderSession, error)
	SignOutFunc        func(ctx context.Context, accessToken string) error
	GetUserFunc        func(ctx context.Context, accessToken string) (domainauth.Identity, error)
	UpdatePasswordFunc func(ctx context.Context, accessToken, newPassword string) error
	ResetFunc          func(ctx context.Context, email, redirectTo string) error

	// Users maps email to {ID, Password}.
	Users map[string]MockUser
	// SessionTTL is the lifetime of issued sessions (default 1h).
	SessionTTL time.Duration

	mu      sync.Mutex
	counter int
	tokens  map[string]domainauth.Identity
	calls   map[string]int
}

// MockUser is one account known to MockIdentityProvider.
type MockUser struct {
	ID       string
	Password string
}

// NewMockIdentityProvider creates a provider that knows the given users.
func NewMockIdentityProvider(users map[string]MockUser) *MockIdentityProvider {
	return &MockIdentityProvider{Users: users}
}

// Calls reports how many times op was invoked.
func (m *MockIdentityProvider) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockIdentityProvider) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func (m *MockIdentityProvider) issue(id domainauth.Identity) domainauth.ProviderSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]domainauth.Identity)
	}
	m.counter++
	ttl := m.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	sess := domainauth.ProviderSession{
		AccessToken:  fmt.Sprintf("access-%d", m.counter),
		RefreshToken: fmt.Sprintf("refresh-%d", m.counter),
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(ttl),
		User:         id,
	}
	m.tokens[sess.AccessToken] = id
	m.tokens[sess.RefreshToken] = id
	return sess
}

func (m *MockIdentityProvider) lookup(token string) (domainauth.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	return id, ok
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, cred domainauth.Credential) (domainauth.ProviderSession, error) {
	m.record("SignInWithPassword")
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, cred)
	}
	u, ok := m.Users[cred.Email]
	if !ok || u.Password != cred.Password {
		return domainauth.ProviderSession{}, apperrors.InvalidCredentials(nil)
	}
	return m.issue(domainauth.Identity{ID: u.ID, Email: cred.Email}), nil
}

func (m *MockIdentityProvider) RefreshSession(ctx context.Context, refreshToken string) (domainauth.ProviderSession, error) {
	m.record("RefreshSession")
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	id, ok := m.lookup(refreshToken)
	if !ok {
		return domainauth.ProviderSession{}, apperrors.InvalidCredentials(nil)
	}
	return m.issue(id), nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	m.record("SignOut")
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockIdentityProvider) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	m.record("GetUser")
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, accessToken)
	}
	id, ok := m.lookup(accessToken)
	if !ok {
		return domainauth.Identity{}, apperrors.InvalidCredentials(nil)
	}
	return id, nil
}

func (m *MockIdentityProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	m.record("UpdatePassword")
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, accessToken, newPassword)
	}
	return nil
}

func (m *MockIdentityProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	m.record("ResetPasswordForEmail")
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, email, redirectTo)
	}
	return nil
}

// MemorySessionStore is an in-memory session store for unit tests. TTLs are ignored.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.ProviderSession
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.ProviderSession)}
}

func (m *MemorySessionStore) Save(_ context.Context, clientID string, sess domainauth.ProviderSession, _ time.Duration) error {
	if clientID == "" {
		return apperrors.Validation("client id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[clientID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, clientID string) (domainauth.ProviderSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[clientID]
	if !ok {
		return domainauth.ProviderSession{}, ports.ErrNoSession
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, clientID)
	return nil
}

// MemoryRecoveryStore is an in-memory recovery token store that counts writes.
type MemoryRecoveryStore struct {
	mu      sync.Mutex
	tokens  map[string]string
	puts    int
	takes   int
}

// NewMemoryRecoveryStore creates a new in-memory recovery token store.
func NewMemoryRecoveryStore() *MemoryRecoveryStore {
	return &MemoryRecoveryStore{tokens: make(map[string]string)}
}

func (m *MemoryRecoveryStore) Put(_ context.Context, tabID, token string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[tabID]; ok {
		return false, nil
	}
	m.tokens[tabID] = token
	m.puts++
	return true, nil
}

func (m *MemoryRecoveryStore) Get(_ context.Context, tabID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tabID]
	return token, ok, nil
}

func (m *MemoryRecoveryStore) Take(_ context.Context, tabID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tabID]
	if ok {
		m.takes++
		delete(m.tokens, tabID)
	}
	return token, ok, nil
}

// Puts reports how many tokens were stored.
func (m *MemoryRecoveryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Takes reports how many held tokens were handed out.
func (m *MemoryRecoveryStore) Takes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takes
}
