package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/mocks"
)

func TestAllowlistGate_IsAuthorized(t *testing.T) {
	tests := []struct {
		name       string
		entry      *domainauth.AllowListEntry
		err        error
		authorized bool
		errCode    apperrors.ErrorCode
	}{
		{name: "active entry", entry: &domainauth.AllowListEntry{Email: aliceEmail, Active: true}, authorized: true},
		{name: "inactive entry", entry: &domainauth.AllowListEntry{Email: aliceEmail, Active: false}},
		{name: "missing entry", err: apperrors.NotFound("authorized user not found")},
		{name: "database error", err: errors.New("connection refused"), errCode: apperrors.ErrCodeAllowlistUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockAllowlistRepository(ctrl)
			repo.EXPECT().FindByEmail(gomock.Any(), aliceEmail).Return(tt.entry, tt.err)

			gate := NewAllowlistGate(AllowlistGateOptions{Repo: repo})
			decision, err := gate.IsAuthorized(context.Background(), aliceEmail)

			assert.Equal(t, tt.authorized, decision.Authorized)
			if tt.errCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errCode, apperrors.GetCode(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAllowlistGate_EmptyEmailSkipsLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAllowlistRepository(ctrl)

	gate := NewAllowlistGate(AllowlistGateOptions{Repo: repo})
	decision, err := gate.IsAuthorized(context.Background(), "")

	require.NoError(t, err)
	assert.False(t, decision.Authorized)
}

func TestAllowlistGate_EmailIsNotNormalized(t *testing.T) {
	gate := NewAllowlistGate(AllowlistGateOptions{Repo: memoryAllowlist{aliceEmail: true}})

	decision, err := gate.IsAuthorized(context.Background(), "Alice@SNR.example")
	require.NoError(t, err)
	assert.False(t, decision.Authorized)
}

func TestAllowlistGate_TimeoutFailsClosed(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	// Ignores ctx to model a driver that does not honor cancellation.
	repo := allowlistRepoFunc(func(context.Context, string) (*domainauth.AllowListEntry, error) {
		<-release
		return &domainauth.AllowListEntry{Email: aliceEmail, Active: true}, nil
	})
	gate := NewAllowlistGate(AllowlistGateOptions{Repo: repo, Timeout: 20 * time.Millisecond})

	start := time.Now()
	decision, err := gate.IsAuthorized(context.Background(), aliceEmail)

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, decision.Authorized)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAllowlistUnavailable, apperrors.GetCode(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewAllowlistGate_RequiresRepo(t *testing.T) {
	assert.Panics(t, func() { NewAllowlistGate(AllowlistGateOptions{}) })
}
