package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/mocks"
)

func TestProfileLoader_Load(t *testing.T) {
	t.Run("found profile is normalized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockProfileRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), aliceID).
			Return(&domainauth.UserProfile{ID: aliceID, Name: "Alice", Role: domainauth.RoleTech}, nil)

		p, err := NewProfileLoader(ProfileLoaderOptions{Repo: repo}).Load(context.Background(), aliceID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, []string{}, p.Skillset)
		assert.Equal(t, []domainauth.TaskRef{}, p.CurrentTasks)
	})

	t.Run("missing row is profile_missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockProfileRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), aliceID).Return(nil, apperrors.NotFound("profile not found"))

		_, err := NewProfileLoader(ProfileLoaderOptions{Repo: repo}).Load(context.Background(), aliceID)
		assert.Equal(t, apperrors.ErrCodeProfileMissing, apperrors.GetCode(err))
		assert.Equal(t, apperrors.MsgProfileMissing, apperrors.UserMessage(err))
	})

	t.Run("storage failure is provider_unavailable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockProfileRepository(ctrl)
		repo.EXPECT().GetByID(gomock.Any(), aliceID).Return(nil, errors.New("boom"))

		_, err := NewProfileLoader(ProfileLoaderOptions{Repo: repo}).Load(context.Background(), aliceID)
		assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.GetCode(err))
	})

	t.Run("empty id never queries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockProfileRepository(ctrl)

		_, err := NewProfileLoader(ProfileLoaderOptions{Repo: repo}).Load(context.Background(), "")
		assert.Equal(t, apperrors.ErrCodeProfileMissing, apperrors.GetCode(err))
	})
}

func TestProfileLoader_ConcurrentLoadsShareOneQuery(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	repo := profileRepoFunc(func(context.Context, string) (*domainauth.UserProfile, error) {
		calls.Add(1)
		<-release
		p := aliceProfile()
		return &p, nil
	})
	loader := NewProfileLoader(ProfileLoaderOptions{Repo: repo})

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan *domainauth.UserProfile, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := loader.Load(context.Background(), aliceID)
			assert.NoError(t, err)
			results <- p
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), calls.Load())
	for p := range results {
		assert.Equal(t, aliceID, p.ID)
	}
}

func TestProfileLoader_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	repo := profileRepoFunc(func(context.Context, string) (*domainauth.UserProfile, error) {
		<-release
		return nil, errors.New("unreachable")
	})
	loader := NewProfileLoader(ProfileLoaderOptions{Repo: repo})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := loader.Load(ctx, aliceID)
	assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.GetCode(err))
}
