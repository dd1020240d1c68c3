package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	mocks "github.com/snr-automations/teamdash/internal/mocks/auth"
	"github.com/snr-automations/teamdash/internal/ports"
)

type allowlistRepoFunc func(ctx context.Context, email string) (*domainauth.AllowListEntry, error)

func (f allowlistRepoFunc) FindByEmail(ctx context.Context, email string) (*domainauth.AllowListEntry, error) {
	return f(ctx, email)
}

type profileRepoFunc func(ctx context.Context, id string) (*domainauth.UserProfile, error)

func (f profileRepoFunc) GetByID(ctx context.Context, id string) (*domainauth.UserProfile, error) {
	return f(ctx, id)
}

// memoryAllowlist answers from a fixed email -> active map.
type memoryAllowlist map[string]bool

func (m memoryAllowlist) FindByEmail(_ context.Context, email string) (*domainauth.AllowListEntry, error) {
	active, ok := m[email]
	if !ok {
		return nil, apperrors.NotFoundf("authorized user %q not found", email)
	}
	return &domainauth.AllowListEntry{Email: email, Active: active}, nil
}

// memoryProfiles answers from a fixed id -> profile map and counts lookups.
type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]domainauth.UserProfile
	calls    atomic.Int32
}

func newMemoryProfiles(ps ...domainauth.UserProfile) *memoryProfiles {
	m := &memoryProfiles{profiles: make(map[string]domainauth.UserProfile)}
	for _, p := range ps {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *memoryProfiles) GetByID(_ context.Context, id string) (*domainauth.UserProfile, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.NotFoundf("profile %q not found", id)
	}
	return &p, nil
}

const (
	aliceEmail = "alice@snr.example"
	aliceID    = "6f1c2d3e-0000-4000-8000-000000000001"
	alicePass  = "correct horse"
)

func aliceProfile() domainauth.UserProfile {
	return domainauth.UserProfile{
		ID:       aliceID,
		Email:    aliceEmail,
		Name:     "Alice",
		Role:     domainauth.RoleCTO,
		Skillset: []string{"go"},
	}
}

func aliceProvider() *mocks.MockIdentityProvider {
	return mocks.NewMockIdentityProvider(map[string]mocks.MockUser{
		aliceEmail: {ID: aliceID, Password: alicePass},
	})
}

type registryFixture struct {
	provider ports.IdentityProvider
	sessions *mocks.MemorySessionStore
	profiles ports.ProfileRepository
	loader   *ProfileLoader
	registry *RuntimeRegistry
}

func newRegistryFixture(t *testing.T, provider ports.IdentityProvider, profiles ports.ProfileRepository) *registryFixture {
	t.Helper()
	f := &registryFixture{
		provider: provider,
		sessions: mocks.NewMemorySessionStore(),
		profiles: profiles,
		loader:   NewProfileLoader(ProfileLoaderOptions{Repo: profiles, Timeout: time.Second}),
	}
	f.registry = NewRuntimeRegistry(RuntimeRegistryOptions{
		Provider:       provider,
		Sessions:       f.sessions,
		Profiles:       f.loader,
		RequestTimeout: time.Second,
	})
	t.Cleanup(f.registry.Close)
	return f
}

func stateKind(rt *Runtime) domainauth.StateKind {
	s, _ := rt.State.Current()
	return s.Kind
}

func requireEventuallyState(t *testing.T, rt *Runtime, want domainauth.StateKind) {
	t.Helper()
	require.Eventually(t, func() bool { return stateKind(rt) == want },
		time.Second, 5*time.Millisecond, "state never became %s", want)
}
