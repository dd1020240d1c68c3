package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, AnonKey: "anon-key", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{AnonKey: "k"})
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://x"})
	require.Error(t, err)
}

func TestSignInWithPassword_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops@snr.dev", body["email"])
		assert.Equal(t, "pw123456", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"token_type":    "bearer",
			"expires_at":    1893456000,
			"refresh_token": "rt",
			"user":          map[string]any{"id": "u-1", "email": "ops@snr.dev"},
		})
	})

	sess, err := c.SignInWithPassword(context.Background(), domainauth.Credential{Email: "ops@snr.dev", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	assert.Equal(t, "Bearer", sess.TokenType)
	assert.Equal(t, int64(1893456000), sess.ExpiresAt.Unix())
	assert.Equal(t, domainauth.Identity{ID: "u-1", Email: "ops@snr.dev"}, sess.User)
}

func TestSignInWithPassword_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode apperrors.ErrorCode
	}{
		{"legacy invalid grant", 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, apperrors.ErrCodeInvalidCredentials},
		{"new invalid credentials", 400, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`, apperrors.ErrCodeInvalidCredentials},
		{"email not confirmed", 400, `{"error_code":"email_not_confirmed","msg":"Email not confirmed"}`, apperrors.ErrCodeEmailUnconfirmed},
		{"legacy email not confirmed", 400, `{"error":"invalid_grant","error_description":"Email not confirmed"}`, apperrors.ErrCodeEmailUnconfirmed},
		{"server error", 503, `upstream down`, apperrors.ErrCodeProviderUnavailable},
		{"rate limited", 429, `{"msg":"slow down"}`, apperrors.ErrCodeProviderUnavailable},
		{"other", 422, `{"msg":"Signups not allowed"}`, apperrors.ErrCodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SignInWithPassword(context.Background(), domainauth.Credential{Email: "a@b.co", Password: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}
}

func TestSignIn_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, AnonKey: "k"})
	require.NoError(t, err)

	_, err = c.SignInWithPassword(context.Background(), domainauth.Credential{Email: "a@b.co", Password: "x"})
	assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.GetCode(err))
}

func TestUpdatePassword_UsesBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer recovery-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "newpass1", body["password"])
		_, _ = w.Write([]byte(`{"id":"u-1"}`))
	})
	require.NoError(t, c.UpdatePassword(context.Background(), "recovery-token", "newpass1"))
}

func TestUpdatePassword_SurfacesProviderMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error_code":"same_password","msg":"New password should be different from the old password."}`))
	})
	err := c.UpdatePassword(context.Background(), "tok", "samepass")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnknown, apperrors.GetCode(err))
	assert.Equal(t, "New password should be different from the old password.", apperrors.UserMessage(err))
}

func TestGetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-9","email":"x@snr.dev"}`))
	})

	id, err := c.GetUser(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-9", id.ID)

	_, err = c.GetUser(context.Background(), "bad")
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, apperrors.GetCode(err))
}

func TestRefreshAndSignOutAndRecover(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(`{"access_token":"at2","token_type":"bearer","expires_in":3600,"refresh_token":"rt2","user":{"id":"u-1"}}`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	before := time.Now()
	sess, err := c.RefreshSession(ctx, "rt1")
	require.NoError(t, err)
	assert.Equal(t, "rt2", sess.RefreshToken)
	assert.WithinDuration(t, before.Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	require.NoError(t, c.SignOut(ctx, "at2"))
	require.NoError(t, c.ResetPasswordForEmail(ctx, "ops@snr.dev", "http://localhost:3001/set-password"))

	assert.Equal(t, []string{
		"POST /auth/v1/token?grant_type=refresh_token",
		"POST /auth/v1/logout?",
		"POST /auth/v1/recover?redirect_to=http%3A%2F%2Flocalhost%3A3001%2Fset-password",
	}, paths)
}
