package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
)

func TestAuthEventSubscriber_SignedInPublishesProfile(t *testing.T) {
	f := newRegistryFixture(t, aliceProvider(), newMemoryProfiles(aliceProfile()))
	rt := f.registry.Get("c1")

	_, err := rt.Identity.SignInWithPassword(context.Background(), aliceEmail, alicePass)
	require.NoError(t, err)

	requireEventuallyState(t, rt, domainauth.StateAuthenticated)
	s, _ := rt.State.Current()
	assert.Equal(t, "Alice", s.Profile.Name)
}

func TestAuthEventSubscriber_SignedOutWinsOverLateProfile(t *testing.T) {
	var started atomic.Bool
	release := make(chan struct{})
	repo := profileRepoFunc(func(context.Context, string) (*domainauth.UserProfile, error) {
		started.Store(true)
		<-release
		p := aliceProfile()
		return &p, nil
	})
	f := newRegistryFixture(t, aliceProvider(), repo)
	rt := f.registry.Get("c1")
	ctx := context.Background()

	_, err := rt.Identity.SignInWithPassword(ctx, aliceEmail, alicePass)
	require.NoError(t, err)
	require.Eventually(t, started.Load, time.Second, time.Millisecond)

	require.NoError(t, rt.Identity.SignOut(ctx))
	requireEventuallyState(t, rt, domainauth.StateUnauthenticated)

	close(release)
	assert.Never(t, func() bool { return stateKind(rt) == domainauth.StateAuthenticated },
		100*time.Millisecond, 5*time.Millisecond)
}

func TestAuthEventSubscriber_ProfileFailureLeavesStateUnchanged(t *testing.T) {
	f := newRegistryFixture(t, aliceProvider(), newMemoryProfiles())
	rt := f.registry.Get("c1")
	require.Equal(t, domainauth.StateUnauthenticated, rt.Bootstrap(context.Background()).Kind)
	_, v := rt.State.Current()

	_, err := rt.Identity.SignInWithPassword(context.Background(), aliceEmail, alicePass)
	require.NoError(t, err)

	assert.Never(t, func() bool {
		_, now := rt.State.Current()
		return now != v
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestAuthEventSubscriber_StopDetaches(t *testing.T) {
	f := newRegistryFixture(t, aliceProvider(), newMemoryProfiles(aliceProfile()))
	rt := f.registry.Get("c1")
	rt.events.Stop()
	rt.events.Stop()

	_, err := rt.Identity.SignInWithPassword(context.Background(), aliceEmail, alicePass)
	require.NoError(t, err)

	assert.Never(t, func() bool { return stateKind(rt) != domainauth.StateLoading },
		100*time.Millisecond, 5*time.Millisecond)
}
