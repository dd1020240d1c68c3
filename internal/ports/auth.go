package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
)

// ErrNoSession is returned by stores when nothing is held for the key.
var ErrNoSession = errors.New("no session")

// IdentityProvider is the external email/password identity service.
// Adapters map provider failures onto the errors taxonomy.
type IdentityProvider interface {
	// SignInWithPassword exchanges a credential for a provider session.
	SignInWithPassword(ctx context.Context, cred domainauth.Credential) (domainauth.ProviderSession, error)

	// RefreshSession exchanges a refresh token for a new provider session.
	RefreshSession(ctx context.Context, refreshToken string) (domainauth.ProviderSession, error)

	// SignOut revokes the session identified by accessToken.
	SignOut(ctx context.Context, accessToken string) error

	// GetUser resolves the identity an access token belongs to.
	GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error)

	// UpdatePassword sets a new password for the user the bearer accessToken belongs to.
	UpdatePassword(ctx context.Context, accessToken, newPassword string) error

	// ResetPasswordForEmail sends a recovery email whose link targets redirectTo.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
}

// AllowlistRepository looks up authorized_users rows.
type AllowlistRepository interface {
	// FindByEmail returns the entry for email; a missing row is an errors.ErrCodeNotFound error.
	FindByEmail(ctx context.Context, email string) (*domainauth.AllowListEntry, error)
}

// ProfileRepository looks up user_profiles rows.
type ProfileRepository interface {
	// GetByID returns the profile keyed by the provider user id; a missing row is ErrCodeNotFound.
	GetByID(ctx context.Context, id string) (*domainauth.UserProfile, error)
}

// SessionStore persists the provider session of each client runtime.
type SessionStore interface {
	Save(ctx context.Context, clientID string, sess domainauth.ProviderSession, ttl time.Duration) error
	// Get returns ErrNoSession when nothing is held for clientID.
	Get(ctx context.Context, clientID string) (domainauth.ProviderSession, error)
	Delete(ctx context.Context, clientID string) error
}

// RecoveryTokenStore holds at most one recovery token per browser tab.
type RecoveryTokenStore interface {
	// Put stores token for tabID only if none is held. stored is false when a token already existed.
	Put(ctx context.Context, tabID, token string, ttl time.Duration) (stored bool, err error)
	// Get returns the held token, or ok=false.
	Get(ctx context.Context, tabID string) (token string, ok bool, err error)
	// Take atomically returns and removes the held token. Concurrent callers
	// never both receive it.
	Take(ctx context.Context, tabID string) (token string, ok bool, err error)
}
