package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuthMode selects the identity provider implementation.
type AuthMode string

const (
	// AuthModeSupabase talks to a Supabase (GoTrue) auth server.
	AuthModeSupabase AuthMode = "supabase"
	// AuthModeMock uses the in-process development identity provider.
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "supabase", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: supabase, mock)", v)
	}
}

// SupabaseConfig contains the hosted identity provider settings.
type SupabaseConfig struct {
	// URL is the project URL, e.g. https://abc.supabase.co. The auth API lives under /auth/v1.
	URL string `env:"URL"`
	// AnonKey is the public anon key sent as the apikey header.
	AnonKey string `env:"ANON_KEY"`
}

// DevAuthUser is one account of the development identity provider, written as
// email:password[:id]. Users are separated by ';'.
type DevAuthUser struct {
	Email    string
	Password string
	ID       string
}

// UnmarshalText implements encoding.TextUnmarshaler for DevAuthUser.
func (u *DevAuthUser) UnmarshalText(text []byte) error {
	parts := strings.SplitN(strings.TrimSpace(string(text)), ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid dev auth user %q (want email:password[:id])", string(text))
	}
	u.Email, u.Password = parts[0], parts[1]
	if len(parts) == 3 {
		u.ID = parts[2]
	}
	return nil
}

// devUserNamespace derives stable ids for dev users configured without one.
var devUserNamespace = uuid.MustParse("6f2c7c1e-4d59-4c53-9a39-2f0a7d1b7e55")

// UserID returns the configured id, or one derived from the email so that
// restarts and the dev seeder agree on it.
func (u DevAuthUser) UserID() string {
	if u.ID != "" {
		return u.ID
	}
	return uuid.NewSHA1(devUserNamespace, []byte(strings.ToLower(u.Email))).String()
}

// DevAuthConfig controls the development identity provider.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Users []DevAuthUser `env:"USERS" envDefault:"dev@example.com:devpassword" envSeparator:";"`
	// SigningKey signs dev access and recovery tokens. A random key is used when empty.
	SigningKey string `env:"SIGNING_KEY"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"supabase"`

	Supabase SupabaseConfig `envPrefix:"SUPABASE_"`
	DevAuth  DevAuthConfig  `envPrefix:"DEV_AUTH_"`

	// AllowlistTimeout bounds one allow-list lookup. Lookups that exceed it deny access.
	AllowlistTimeout time.Duration `env:"AUTH_ALLOWLIST_TIMEOUT" envDefault:"5s"`
	// ProviderTimeout bounds one identity provider call.
	ProviderTimeout time.Duration `env:"AUTH_PROVIDER_TIMEOUT" envDefault:"10s"`

	MinPasswordLength int    `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"6"`
	SetPasswordURL    string `env:"AUTH_SET_PASSWORD_URL"    envDefault:"http://localhost:3001/set-password"`
	SignInPath        string `env:"AUTH_SIGN_IN_PATH"        envDefault:"/login"`

	RedirectDelay    time.Duration `env:"AUTH_REDIRECT_DELAY"     envDefault:"2s"`
	RecoveryTokenTTL time.Duration `env:"AUTH_RECOVERY_TOKEN_TTL" envDefault:"1h"`
	SessionTTL       time.Duration `env:"AUTH_SESSION_TTL"        envDefault:"168h"`

	// RuntimeCacheSize caps the per-client runtimes held in memory.
	RuntimeCacheSize int `env:"AUTH_RUNTIME_CACHE_SIZE" envDefault:"10000"`
	// RuntimeIdleTTL closes a client runtime after this long without requests.
	RuntimeIdleTTL time.Duration `env:"AUTH_RUNTIME_IDLE_TTL" envDefault:"30m"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	a.Supabase.URL = strings.TrimRight(strings.TrimSpace(a.Supabase.URL), "/")
	a.Supabase.AnonKey = strings.TrimSpace(a.Supabase.AnonKey)

	if a.AllowlistTimeout <= 0 {
		a.AllowlistTimeout = 5 * time.Second
	}
	if a.ProviderTimeout <= 0 {
		a.ProviderTimeout = 10 * time.Second
	}
	if a.MinPasswordLength < 1 {
		a.MinPasswordLength = 6
	}
	if a.SignInPath == "" || !strings.HasPrefix(a.SignInPath, "/") {
		a.SignInPath = "/login"
	}
	if a.RedirectDelay < 0 {
		a.RedirectDelay = 2 * time.Second
	}
	if a.RecoveryTokenTTL <= 0 {
		a.RecoveryTokenTTL = time.Hour
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 7 * 24 * time.Hour
	}
	if a.RuntimeCacheSize < 1 {
		a.RuntimeCacheSize = 10000
	}
	if a.RuntimeIdleTTL <= 0 {
		a.RuntimeIdleTTL = 30 * time.Minute
	}
}

// Validate reports configuration that cannot work for the selected mode.
func (a *AuthConfig) Validate() error {
	switch a.Mode {
	case AuthModeSupabase:
		if a.Supabase.URL == "" || a.Supabase.AnonKey == "" {
			return fmt.Errorf("AUTH_MODE=supabase requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	case AuthModeMock:
		if len(a.DevAuth.Users) == 0 {
			return fmt.Errorf("AUTH_MODE=mock requires at least one DEV_AUTH_USERS entry")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", a.Mode)
	}
	return nil
}
