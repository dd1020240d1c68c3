package devauth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	prov, err := NewProvider(Config{
		SigningKey: "test-key",
		Users: []User{
			{ID: "u-1", Email: "ops@snr.dev", Password: "secret1", Confirmed: true},
			{ID: "u-2", Email: "new@snr.dev", Password: "secret2"},
		},
	})
	require.NoError(t, err)
	return prov
}

func TestNewProvider_RequiresUsers(t *testing.T) {
	_, err := NewProvider(Config{})
	require.Error(t, err)

	_, err = NewProvider(Config{Users: []User{{Email: "x@y.z"}}})
	require.Error(t, err)
}

func TestProvider_SignInWithPassword(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		cred     domainauth.Credential
		wantCode apperrors.ErrorCode
	}{
		{name: "wrong password", cred: domainauth.Credential{Email: "ops@snr.dev", Password: "nope"}, wantCode: apperrors.ErrCodeInvalidCredentials},
		{name: "unknown email", cred: domainauth.Credential{Email: "ghost@snr.dev", Password: "secret1"}, wantCode: apperrors.ErrCodeInvalidCredentials},
		{name: "unconfirmed", cred: domainauth.Credential{Email: "new@snr.dev", Password: "secret2"}, wantCode: apperrors.ErrCodeEmailUnconfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prov.SignInWithPassword(ctx, tt.cred)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}

	sess, err := prov.SignInWithPassword(ctx, domainauth.Credential{Email: "ops@snr.dev", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.User.ID)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)

	id, err := prov.GetUser(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Identity{ID: "u-1", Email: "ops@snr.dev"}, id)
}

func TestProvider_RefreshRotatesToken(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	sess, err := prov.SignInWithPassword(ctx, domainauth.Credential{Email: "ops@snr.dev", Password: "secret1"})
	require.NoError(t, err)

	next, err := prov.RefreshSession(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	_, err = prov.RefreshSession(ctx, sess.RefreshToken)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidCredentials))
}

func TestProvider_SignOutRevokes(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	sess, err := prov.SignInWithPassword(ctx, domainauth.Credential{Email: "ops@snr.dev", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, prov.SignOut(ctx, sess.AccessToken))

	_, err = prov.GetUser(ctx, sess.AccessToken)
	require.Error(t, err)
	_, err = prov.RefreshSession(ctx, sess.RefreshToken)
	require.Error(t, err)
}

func TestProvider_ExpiredAccessToken(t *testing.T) {
	now := time.Now()
	prov, err := NewProvider(Config{
		Users:     []User{{ID: "u-1", Email: "ops@snr.dev", Password: "secret1", Confirmed: true}},
		AccessTTL: time.Minute,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	sess, err := prov.SignInWithPassword(context.Background(), domainauth.Credential{Email: "ops@snr.dev", Password: "secret1"})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = prov.GetUser(context.Background(), sess.AccessToken)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidCredentials))
}

func TestProvider_RecoveryFlow(t *testing.T) {
	prov := newTestProvider(t)
	ctx := context.Background()

	require.NoError(t, prov.ResetPasswordForEmail(ctx, "ghost@snr.dev", "http://localhost:3001/set-password"))
	_, ok := prov.LastRecoveryLink("ghost@snr.dev")
	assert.False(t, ok)

	require.NoError(t, prov.ResetPasswordForEmail(ctx, "ops@snr.dev", "http://localhost:3001/set-password"))
	link, ok := prov.LastRecoveryLink("ops@snr.dev")
	require.True(t, ok)
	require.True(t, strings.HasPrefix(link, "http://localhost:3001/set-password#"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	frag, err := url.ParseQuery(u.Fragment)
	require.NoError(t, err)
	assert.Equal(t, "recovery", frag.Get("type"))
	token := frag.Get("access_token")
	require.NotEmpty(t, token)

	_, err = prov.GetUser(ctx, token)
	require.Error(t, err, "recovery token must not act as an access token")

	require.NoError(t, prov.UpdatePassword(ctx, token, "brandnew"))
	require.Error(t, prov.UpdatePassword(ctx, token, "again123"), "recovery token is single use")

	_, err = prov.SignInWithPassword(ctx, domainauth.Credential{Email: "ops@snr.dev", Password: "secret1"})
	require.Error(t, err)
	_, err = prov.SignInWithPassword(ctx, domainauth.Credential{Email: "ops@snr.dev", Password: "brandnew"})
	require.NoError(t, err)
}
