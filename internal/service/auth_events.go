package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
)

// AuthEventSubscriber keeps a StateCell in step with provider-pushed auth events.
type AuthEventSubscriber struct {
	identity *IdentityClient
	profiles *ProfileLoader
	state    *StateCell
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	sub    *Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAuthEventSubscriber creates a stopped subscriber.
func NewAuthEventSubscriber(identity *IdentityClient, profiles *ProfileLoader, state *StateCell, logger *slog.Logger) *AuthEventSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthEventSubscriber{
		identity: identity,
		profiles: profiles,
		state:    state,
		logger:   logger.With("component", "auth_events"),
		timeout:  15 * time.Second,
	}
}

// Start registers with the identity client. Calling Start twice is a no-op.
func (s *AuthEventSubscriber) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.sub = s.identity.OnAuthStateChange(func(ev domainauth.Event) { s.handle(ctx, ev) })
}

// Stop unsubscribes and waits for in-flight profile loads to finish or cancel.
func (s *AuthEventSubscriber) Stop() {
	s.mu.Lock()
	sub, cancel := s.sub, s.cancel
	s.sub = nil
	s.mu.Unlock()
	if sub == nil {
		return
	}
	sub.Unsubscribe()
	cancel()
	s.wg.Wait()
}

func (s *AuthEventSubscriber) handle(ctx context.Context, ev domainauth.Event) {
	switch ev.Kind {
	case domainauth.EventSignedOut:
		s.state.ObserveSignedOut()
	case domainauth.EventSignedIn:
		if ev.Session == nil || ev.Session.User.ID == "" {
			return
		}
		// Captured before the lookup so a later SignedOut wins.
		epoch, ok := s.state.EpochAfter(ev.Seq)
		userID := ev.Session.User.ID
		if !ok {
			s.logger.DebugContext(ctx, "dropped sign-in emitted before sign-out", "user_id", userID)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			loadCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			s.loadAndPublish(loadCtx, epoch, userID)
		}()
	default:
		// TokenRefreshed, UserUpdated and PasswordRecovery do not change who is signed in.
	}
}

func (s *AuthEventSubscriber) loadAndPublish(ctx context.Context, epoch uint64, userID string) {
	profile, err := s.profiles.Load(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "signed in without profile; state unchanged", "user_id", userID, "error", err)
		return
	}
	if !s.state.PublishAuthenticated(epoch, *profile) {
		s.logger.DebugContext(ctx, "dropped stale sign-in after sign-out", "user_id", userID)
	}
}
