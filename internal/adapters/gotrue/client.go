// Package gotrue adapts the hosted Supabase auth (GoTrue) REST API to ports.IdentityProvider.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"golang.org/x/oauth2"
)

const maxErrorBody = 64 << 10

// Config holds the project URL and public API key.
type Config struct {
	BaseURL    string // e.g. https://xyz.supabase.co
	AnonKey    string
	Timeout    time.Duration // per request; default 10s
	HTTPClient *http.Client  // optional; Transport is wrapped to add the apikey header
}

// Client calls the GoTrue endpoints under /auth/v1.
type Client struct {
	base *url.URL
	http *http.Client
	now  func() time.Time
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gotrue: base URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("gotrue: anon key is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/auth/v1/")
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var baseTransport http.RoundTripper = http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		baseTransport = cfg.HTTPClient.Transport
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &apiKeyTransport{key: cfg.AnonKey, base: baseTransport},
		},
		now: time.Now,
	}, nil
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("apikey", t.key)
	if r.Header.Get("Authorization") == "" {
		r.Header.Set("Authorization", "Bearer "+t.key)
	}
	return t.base.RoundTrip(r)
}

// bearer returns an HTTP client that authenticates as the holder of accessToken.
func (c *Client) bearer(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	hc.Timeout = c.http.Timeout
	return hc
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         user   `json:"user"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (t tokenResponse) session(now time.Time) domainauth.ProviderSession {
	tok := &oauth2.Token{AccessToken: t.AccessToken, TokenType: t.TokenType, RefreshToken: t.RefreshToken}
	switch {
	case t.ExpiresAt > 0:
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		tok.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return domainauth.ProviderSession{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry,
		User:         domainauth.Identity{ID: t.User.ID, Email: t.User.Email},
	}
}

// SignInWithPassword performs the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, cred domainauth.Credential) (domainauth.ProviderSession, error) {
	var out tokenResponse
	body := map[string]string{"email": cred.Email, "password": cred.Password}
	if err := c.do(ctx, c.http, http.MethodPost, "token", url.Values{"grant_type": {"password"}}, body, &out, opSignIn); err != nil {
		return domainauth.ProviderSession{}, err
	}
	return out.session(c.now()), nil
}

// RefreshSession performs the refresh_token grant.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (domainauth.ProviderSession, error) {
	var out tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, c.http, http.MethodPost, "token", url.Values{"grant_type": {"refresh_token"}}, body, &out, opSession); err != nil {
		return domainauth.ProviderSession{}, err
	}
	return out.session(c.now()), nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, c.bearer(ctx, accessToken), http.MethodPost, "logout", nil, nil, nil, opSession)
}

// GetUser resolves the user an access token belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (domainauth.Identity, error) {
	var out user
	if err := c.do(ctx, c.bearer(ctx, accessToken), http.MethodGet, "user", nil, nil, &out, opSession); err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.Identity{ID: out.ID, Email: out.Email}, nil
}

// UpdatePassword sets a new password on behalf of the bearer token holder.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	body := map[string]string{"password": newPassword}
	return c.do(ctx, c.bearer(ctx, accessToken), http.MethodPut, "user", nil, body, nil, opUpdate)
}

// ResetPasswordForEmail asks the provider to email a recovery link targeting redirectTo.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	var q url.Values
	if redirectTo != "" {
		q = url.Values{"redirect_to": {redirectTo}}
	}
	return c.do(ctx, c.http, http.MethodPost, "recover", q, map[string]string{"email": email}, nil, opUpdate)
}

func (c *Client) do(
	ctx context.Context,
	hc *http.Client,
	method, path string,
	query url.Values,
	body, out any,
	kind opKind,
) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperrors.Unknown("", fmt.Errorf("marshal %s body: %w", path, err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return apperrors.Unknown("", fmt.Errorf("build %s request: %w", path, err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return apperrors.ProviderUnavailable(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classify(resp.StatusCode, parseAPIError(resp.StatusCode, raw), kind)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Unknown("", fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}
