package redis

import (
	"context"
	"testing"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	"github.com/snr-automations/teamdash/internal/ports"
	"github.com/snr-automations/teamdash/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() domainauth.ProviderSession {
	return domainauth.ProviderSession{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
		User:         domainauth.Identity{ID: "user-123", Email: "user@example.com"},
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	sess := testSession()
	require.NoError(t, store.Save(ctx, "client-1", sess, 30*time.Minute))

	got, err := store.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, sess.AccessToken, got.AccessToken)
	assert.Equal(t, sess.RefreshToken, got.RefreshToken)
	assert.Equal(t, sess.User, got.User)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	assert.Equal(t, 30*time.Minute, mr.TTL("teamdash:session:client-1"))
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNoSession)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrNoSession)
}

func TestSessionStore_Expiry(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "client-ttl", testSession(), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "client-ttl")
	assert.ErrorIs(t, err, ports.ErrNoSession)
}

func TestSessionStore_Delete(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "client-del", testSession(), time.Minute))
	require.NoError(t, store.Delete(ctx, "client-del"))
	require.NoError(t, store.Delete(ctx, ""))

	_, err := store.Get(ctx, "client-del")
	assert.ErrorIs(t, err, ports.ErrNoSession)
}

func TestSessionStore_SaveValidation(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "custom:")
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "", testSession(), time.Minute))
	assert.Error(t, store.Save(ctx, "c", testSession(), 0))
}
