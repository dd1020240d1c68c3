package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	mocks "github.com/snr-automations/teamdash/internal/mocks/auth"
	"github.com/snr-automations/teamdash/internal/ports"
)

type eventLog struct {
	mu     sync.Mutex
	events []domainauth.EventKind
}

func (l *eventLog) record(ev domainauth.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev.Kind)
}

func (l *eventLog) kinds() []domainauth.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domainauth.EventKind(nil), l.events...)
}

func newTestIdentityClient(t *testing.T, provider ports.IdentityProvider, now func() time.Time) (*IdentityClient, *mocks.MemorySessionStore) {
	t.Helper()
	sessions := mocks.NewMemorySessionStore()
	c := NewIdentityClient(IdentityClientOptions{
		Provider:       provider,
		Sessions:       sessions,
		ClientID:       "client-1",
		RequestTimeout: 50 * time.Millisecond,
		Now:            now,
	})
	t.Cleanup(c.Close)
	return c, sessions
}

func TestIdentityClient_SignInThenSignOutEventOrder(t *testing.T) {
	provider := aliceProvider()
	c, sessions := newTestIdentityClient(t, provider, nil)
	log := &eventLog{}
	c.OnAuthStateChange(log.record)
	ctx := context.Background()

	sess, err := c.SignInWithPassword(ctx, aliceEmail, alicePass)
	require.NoError(t, err)
	assert.Equal(t, aliceID, sess.User.ID)

	stored, err := sessions.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, sess.AccessToken, stored.AccessToken)

	require.NoError(t, c.SignOut(ctx))
	_, err = sessions.Get(ctx, "client-1")
	assert.ErrorIs(t, err, ports.ErrNoSession)

	require.Eventually(t, func() bool { return len(log.kinds()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, []domainauth.EventKind{domainauth.EventSignedIn, domainauth.EventSignedOut}, log.kinds())
	assert.Equal(t, 1, provider.Calls("SignOut"))
	assert.Equal(t, uint64(2), c.LastEventSeq())
}

func TestIdentityClient_SignInRejectedEmitsNothing(t *testing.T) {
	c, sessions := newTestIdentityClient(t, aliceProvider(), nil)
	log := &eventLog{}
	c.OnAuthStateChange(log.record)

	_, err := c.SignInWithPassword(context.Background(), aliceEmail, "wrong")
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, apperrors.GetCode(err))

	_, err = sessions.Get(context.Background(), "client-1")
	assert.ErrorIs(t, err, ports.ErrNoSession)
	assert.Never(t, func() bool { return len(log.kinds()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestIdentityClient_SignOutWithoutSessionStillEmits(t *testing.T) {
	provider := aliceProvider()
	c, _ := newTestIdentityClient(t, provider, nil)
	log := &eventLog{}
	c.OnAuthStateChange(log.record)

	require.NoError(t, c.SignOut(context.Background()))
	require.Eventually(t, func() bool { return len(log.kinds()) == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, provider.Calls("SignOut"))
}

func TestIdentityClient_SignOutSurvivesProviderFailure(t *testing.T) {
	provider := aliceProvider()
	provider.SignOutFunc = func(context.Context, string) error { return errors.New("provider down") }
	c, sessions := newTestIdentityClient(t, provider, nil)
	ctx := context.Background()

	_, err := c.SignInWithPassword(ctx, aliceEmail, alicePass)
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))

	_, err = sessions.Get(ctx, "client-1")
	assert.ErrorIs(t, err, ports.ErrNoSession)
}

func TestIdentityClient_Unsubscribe(t *testing.T) {
	c, _ := newTestIdentityClient(t, aliceProvider(), nil)
	log := &eventLog{}
	sub := c.OnAuthStateChange(log.record)

	require.NoError(t, c.SignOut(context.Background()))
	require.Eventually(t, func() bool { return len(log.kinds()) == 1 }, time.Second, time.Millisecond)

	sub.Unsubscribe()
	require.NoError(t, c.SignOut(context.Background()))
	assert.Never(t, func() bool { return len(log.kinds()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestIdentityClient_GetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		c, _ := newTestIdentityClient(t, aliceProvider(), nil)
		sess, err := c.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("live session returned as stored", func(t *testing.T) {
		c, _ := newTestIdentityClient(t, aliceProvider(), nil)
		signed, err := c.SignInWithPassword(ctx, aliceEmail, alicePass)
		require.NoError(t, err)

		sess, err := c.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, signed.AccessToken, sess.AccessToken)
	})

	t.Run("expired session is refreshed", func(t *testing.T) {
		provider := aliceProvider()
		later := time.Now().Add(2 * time.Hour)
		c, sessions := newTestIdentityClient(t, provider, func() time.Time { return later })
		log := &eventLog{}
		c.OnAuthStateChange(log.record)
		signed, err := c.SignInWithPassword(ctx, aliceEmail, alicePass)
		require.NoError(t, err)

		sess, err := c.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.NotEqual(t, signed.AccessToken, sess.AccessToken)

		stored, err := sessions.Get(ctx, "client-1")
		require.NoError(t, err)
		assert.Equal(t, sess.AccessToken, stored.AccessToken)
		require.Eventually(t, func() bool {
			k := log.kinds()
			return len(k) == 2 && k[1] == domainauth.EventTokenRefreshed
		}, time.Second, time.Millisecond)
	})

	t.Run("rejected refresh signs out", func(t *testing.T) {
		provider := aliceProvider()
		provider.RefreshFunc = func(context.Context, string) (domainauth.ProviderSession, error) {
			return domainauth.ProviderSession{}, apperrors.InvalidCredentials(nil)
		}
		later := time.Now().Add(2 * time.Hour)
		c, sessions := newTestIdentityClient(t, provider, func() time.Time { return later })
		log := &eventLog{}
		c.OnAuthStateChange(log.record)
		_, err := c.SignInWithPassword(ctx, aliceEmail, alicePass)
		require.NoError(t, err)

		sess, err := c.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, sess)

		_, err = sessions.Get(ctx, "client-1")
		assert.ErrorIs(t, err, ports.ErrNoSession)
		require.Eventually(t, func() bool {
			k := log.kinds()
			return len(k) == 2 && k[1] == domainauth.EventSignedOut
		}, time.Second, time.Millisecond)
	})

	t.Run("unreachable provider keeps the session", func(t *testing.T) {
		provider := aliceProvider()
		provider.RefreshFunc = func(context.Context, string) (domainauth.ProviderSession, error) {
			return domainauth.ProviderSession{}, apperrors.ProviderUnavailable(errors.New("dial tcp"))
		}
		later := time.Now().Add(2 * time.Hour)
		c, sessions := newTestIdentityClient(t, provider, func() time.Time { return later })
		_, err := c.SignInWithPassword(ctx, aliceEmail, alicePass)
		require.NoError(t, err)

		_, err = c.GetSession(ctx)
		assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.GetCode(err))
		_, err = sessions.Get(ctx, "client-1")
		assert.NoError(t, err)
	})
}

func TestIdentityClient_ProviderTimeout(t *testing.T) {
	provider := aliceProvider()
	provider.SignInFunc = func(ctx context.Context, _ domainauth.Credential) (domainauth.ProviderSession, error) {
		<-ctx.Done()
		return domainauth.ProviderSession{}, ctx.Err()
	}
	c, _ := newTestIdentityClient(t, provider, nil)

	_, err := c.SignInWithPassword(context.Background(), aliceEmail, alicePass)
	assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.GetCode(err))
}

func TestIdentityClient_UpdatePasswordPassesProviderMessage(t *testing.T) {
	provider := aliceProvider()
	provider.UpdatePasswordFunc = func(_ context.Context, token, _ string) error {
		assert.Equal(t, "recovery-token", token)
		return apperrors.Unknown("New password should be different from the old password.", nil)
	}
	c, _ := newTestIdentityClient(t, provider, nil)

	err := c.UpdatePassword(context.Background(), "recovery-token", "secret1")
	assert.Equal(t, "New password should be different from the old password.", apperrors.UserMessage(err))
}

func TestIdentityClient_GetUser(t *testing.T) {
	c, _ := newTestIdentityClient(t, aliceProvider(), nil)
	ctx := context.Background()

	_, err := c.GetUser(ctx)
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, apperrors.GetCode(err))

	_, err = c.SignInWithPassword(ctx, aliceEmail, alicePass)
	require.NoError(t, err)
	id, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, aliceEmail, id.Email)
}

func TestNormalizeProviderError(t *testing.T) {
	assert.Equal(t, apperrors.ErrCodeInvalidCredentials, apperrors.GetCode(normalizeProviderError(apperrors.InvalidCredentials(nil))))
	assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.GetCode(normalizeProviderError(context.DeadlineExceeded)))
	assert.Equal(t, apperrors.ErrCodeUnknown, apperrors.GetCode(normalizeProviderError(errors.New("weird"))))
}
