package devauth

// Package devauth provides a config-driven, in-memory identity provider for local
// development. It mirrors the hosted provider's password grant, refresh, sign-out,
// and recovery-email behavior so the full flow runs without network access.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenUseAccess   = "access"
	tokenUseRecovery = "recovery"
)

// User is a seeded development account.
type User struct {
	ID        string // generated when empty
	Email     string
	Password  string
	Confirmed bool
}

// Config controls the dev identity provider behavior.
type Config struct {
	Users       []User
	SigningKey  string        // HS256 secret; random per process when empty
	AccessTTL   time.Duration // default 1h when zero
	RecoveryTTL time.Duration // default 1h when zero
	Logger      *slog.Logger
	Now         func() time.Time
}

type account struct {
	identity  domainauth.Identity
	hash      []byte
	confirmed bool
}

type claims struct {
	Email string `json:"email"`
	Use   string `json:"token_use"`
	jwt.RegisteredClaims
}

// Provider implements ports.IdentityProvider in memory.
type Provider struct {
	mu          sync.Mutex
	accounts    map[string]*account // by email
	refresh     map[string]string   // refresh token -> user id
	revoked     map[string]struct{} // jti
	lastLinks   map[string]string   // email -> most recent recovery link
	key         []byte
	accessTTL   time.Duration
	recoveryTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Users) == 0 {
		return nil, errors.New("dev auth: at least one user is required")
	}

	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		s, err := randomString(32)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		key = []byte(s)
	}

	p := &Provider{
		accounts:    make(map[string]*account, len(cfg.Users)),
		refresh:     make(map[string]string),
		revoked:     make(map[string]struct{}),
		lastLinks:   make(map[string]string),
		key:         key,
		accessTTL:   cfg.AccessTTL,
		recoveryTTL: cfg.RecoveryTTL,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if p.accessTTL <= 0 {
		p.accessTTL = time.Hour
	}
	if p.recoveryTTL <= 0 {
		p.recoveryTTL = time.Hour
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}

	for _, u := range cfg.Users {
		if u.Email == "" || u.Password == "" {
			return nil, errors.New("dev auth: user email and password are required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		id := u.ID
		if id == "" {
			id = uuid.NewString()
		}
		p.accounts[u.Email] = &account{
			identity:  domainauth.Identity{ID: id, Email: u.Email},
			hash:      hash,
			confirmed: u.Confirmed,
		}
	}
	return p, nil
}

// SignInWithPassword checks the bcrypt hash and issues an access/refresh pair.
func (p *Provider) SignInWithPassword(ctx context.Context, cred domainauth.Credential) (domainauth.ProviderSession, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.ProviderSession{}, apperrors.ProviderUnavailable(err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[cred.Email]
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(cred.Password)) != nil {
		return domainauth.ProviderSession{}, apperrors.InvalidCredentials(nil)
	}
	if !acct.confirmed {
		return domainauth.ProviderSession{}, apperrors.EmailUnconfirmed(nil)
	}
	return p.issueSessionLocked(acct.identity)
}

// RefreshSession rotates a refresh token.
func (p *Provider) RefreshSession(_ context.Context, refreshToken string) (domainauth.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.refresh[refreshToken]
	if !ok {
		return domainauth.ProviderSession{}, apperrors.InvalidCredentials(errors.New("refresh token not found"))
	}
	delete(p.refresh, refreshToken)

	for _, acct := range p.accounts {
		if acct.identity.ID == userID {
			return p.issueSessionLocked(acct.identity)
		}
	}
	return domainauth.ProviderSession{}, apperrors.InvalidCredentials(errors.New("user not found"))
}

// SignOut revokes the access token and every refresh token of its user.
func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	c, err := p.parse(accessToken, tokenUseAccess)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[c.ID] = struct{}{}
	for rt, uid := range p.refresh {
		if uid == c.Subject {
			delete(p.refresh, rt)
		}
	}
	return nil
}

// GetUser resolves the identity of a live access token.
func (p *Provider) GetUser(_ context.Context, accessToken string) (domainauth.Identity, error) {
	c, err := p.parse(accessToken, tokenUseAccess)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.Identity{ID: c.Subject, Email: c.Email}, nil
}

// UpdatePassword accepts access or recovery tokens. Recovery tokens are single use.
func (p *Provider) UpdatePassword(_ context.Context, accessToken, newPassword string) error {
	c, err := p.parse(accessToken, tokenUseAccess, tokenUseRecovery)
	if err != nil {
		return err
	}
	if len(newPassword) < 6 {
		return apperrors.Unknown("Password should be at least 6 characters.", nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.MinCost)
	if err != nil {
		return apperrors.Unknown("", fmt.Errorf("hash password: %w", err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[c.Email]
	if !ok || acct.identity.ID != c.Subject {
		return apperrors.Unknown("User not found", nil)
	}
	acct.hash = hash
	if c.Use == tokenUseRecovery {
		p.revoked[c.ID] = struct{}{}
	}
	return nil
}

// ResetPasswordForEmail logs a recovery link for known emails. Unknown emails
// succeed silently, matching the hosted provider.
func (p *Provider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	p.mu.Lock()
	acct, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return nil
	}

	token, _, err := p.sign(acct.identity, tokenUseRecovery, p.recoveryTTL)
	if err != nil {
		return apperrors.Unknown("", err)
	}
	frag := url.Values{}
	frag.Set("access_token", token)
	frag.Set("type", "recovery")
	frag.Set("token_type", "bearer")
	link := redirectTo + "#" + frag.Encode()

	p.mu.Lock()
	p.lastLinks[email] = link
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "dev auth recovery link issued",
		"email_domain", domainauth.EmailDomain(email),
		"link", link)
	return nil
}

// LastRecoveryLink returns the most recent recovery link issued for email.
func (p *Provider) LastRecoveryLink(email string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	link, ok := p.lastLinks[email]
	return link, ok
}

func (p *Provider) issueSessionLocked(id domainauth.Identity) (domainauth.ProviderSession, error) {
	access, exp, err := p.sign(id, tokenUseAccess, p.accessTTL)
	if err != nil {
		return domainauth.ProviderSession{}, apperrors.Unknown("", err)
	}
	refresh, err := randomString(32)
	if err != nil {
		return domainauth.ProviderSession{}, apperrors.Unknown("", fmt.Errorf("generate refresh token: %w", err))
	}
	p.refresh[refresh] = id.ID
	return domainauth.ProviderSession{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    exp,
		User:         id,
	}, nil
}

func (p *Provider) sign(id domainauth.Identity, use string, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)
	c := claims{
		Email: id.Email,
		Use:   use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.ID,
			Issuer:    "teamdash-devauth",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (p *Provider) parse(token string, uses ...string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return p.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, apperrors.InvalidCredentials(fmt.Errorf("parse token: %w", err))
	}

	allowed := false
	for _, u := range uses {
		if c.Use == u {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.InvalidCredentials(fmt.Errorf("token use %q not accepted", c.Use))
	}

	p.mu.Lock()
	_, revoked := p.revoked[c.ID]
	p.mu.Unlock()
	if revoked {
		return nil, apperrors.InvalidCredentials(errors.New("token revoked"))
	}
	return &c, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
