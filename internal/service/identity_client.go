package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	apperrors "github.com/snr-automations/teamdash/internal/errors"
	"github.com/snr-automations/teamdash/internal/ports"
)

// IdentityClientOptions groups dependencies for IdentityClient.
type IdentityClientOptions struct {
	Provider       ports.IdentityProvider // Required
	Sessions       ports.SessionStore     // Required
	ClientID       string                 // Required: key of the persisted provider session
	SessionTTL     time.Duration          // Optional: default 7 days
	RequestTimeout time.Duration          // Optional: per provider call, default 10s
	Logger         *slog.Logger           // Optional
	Now            func() time.Time       // Optional
}

// IdentityClient is the per-client facade over the identity provider. It owns the
// provider session, refreshes it on demand, and pushes auth state changes to
// subscribers from a single dispatcher goroutine in emission order.
type IdentityClient struct {
	provider ports.IdentityProvider
	sessions ports.SessionStore
	clientID string
	ttl      time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	subMu  sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64

	queueMu sync.Mutex
	queue   []domainauth.Event
	seq     uint64
	wake    chan struct{}
	done    chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup
}

// NewIdentityClient creates a client and starts its event dispatcher. Call Close to stop it.
func NewIdentityClient(opts IdentityClientOptions) *IdentityClient {
	if opts.Provider == nil || opts.Sessions == nil {
		panic("IdentityProvider and SessionStore are required")
	}
	c := &IdentityClient{
		provider: opts.Provider,
		sessions: opts.Sessions,
		clientID: opts.ClientID,
		ttl:      opts.SessionTTL,
		timeout:  opts.RequestTimeout,
		logger:   opts.Logger,
		now:      opts.Now,
		subs:     make(map[uint64]*Subscription),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if c.ttl <= 0 {
		c.ttl = 7 * 24 * time.Hour
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "identity_client", "client_id", opts.ClientID)
	if c.now == nil {
		c.now = time.Now
	}

	c.wg.Add(1)
	go c.dispatch()
	return c
}

// SignInWithPassword verifies the credential with the provider, persists the
// session, and emits SignedIn.
func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (domainauth.ProviderSession, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sess, err := c.provider.SignInWithPassword(callCtx, domainauth.Credential{Email: email, Password: password})
	if err != nil {
		return domainauth.ProviderSession{}, normalizeProviderError(err)
	}
	if err := c.sessions.Save(ctx, c.clientID, sess, c.ttl); err != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("persist session: %w", err)
	}
	c.emit(domainauth.Event{Kind: domainauth.EventSignedIn, Session: &sess})
	return sess, nil
}

// SignOut revokes the provider session if any, forgets it locally, and always emits SignedOut.
// Provider revocation failures are logged; the local sign-out still happens.
func (c *IdentityClient) SignOut(ctx context.Context) error {
	sess, err := c.sessions.Get(ctx, c.clientID)
	switch {
	case err == nil:
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		if revokeErr := c.provider.SignOut(callCtx, sess.AccessToken); revokeErr != nil {
			c.logger.WarnContext(ctx, "provider sign-out failed", "error", revokeErr)
		}
		cancel()
	case !errors.Is(err, ports.ErrNoSession):
		c.logger.WarnContext(ctx, "load session for sign-out failed", "error", err)
	}

	delErr := c.sessions.Delete(ctx, c.clientID)
	c.emit(domainauth.Event{Kind: domainauth.EventSignedOut})
	if delErr != nil {
		return fmt.Errorf("delete session: %w", delErr)
	}
	return nil
}

// GetSession returns the current provider session, or nil when signed out.
// An expired session is refreshed once; a rejected refresh signs the client out.
func (c *IdentityClient) GetSession(ctx context.Context) (*domainauth.ProviderSession, error) {
	sess, err := c.sessions.Get(ctx, c.clientID)
	if errors.Is(err, ports.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ProviderUnavailable(fmt.Errorf("load session: %w", err))
	}
	if !sess.Expired(c.now()) {
		return &sess, nil
	}

	if sess.RefreshToken == "" {
		return nil, c.expire(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	next, err := c.provider.RefreshSession(callCtx, sess.RefreshToken)
	if err != nil {
		err = normalizeProviderError(err)
		if apperrors.Is(err, apperrors.ErrCodeProviderUnavailable) {
			return nil, err
		}
		c.logger.InfoContext(ctx, "session refresh rejected", "error", err)
		return nil, c.expire(ctx)
	}
	if err := c.sessions.Save(ctx, c.clientID, next, c.ttl); err != nil {
		return nil, fmt.Errorf("persist refreshed session: %w", err)
	}
	c.emit(domainauth.Event{Kind: domainauth.EventTokenRefreshed, Session: &next})
	return &next, nil
}

func (c *IdentityClient) expire(ctx context.Context) error {
	if err := c.sessions.Delete(ctx, c.clientID); err != nil {
		return fmt.Errorf("delete expired session: %w", err)
	}
	c.emit(domainauth.Event{Kind: domainauth.EventSignedOut})
	return nil
}

// GetUser asks the provider who the current session belongs to.
func (c *IdentityClient) GetUser(ctx context.Context) (domainauth.Identity, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if sess == nil {
		return domainauth.Identity{}, apperrors.InvalidCredentials(ports.ErrNoSession)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	id, err := c.provider.GetUser(callCtx, sess.AccessToken)
	if err != nil {
		return domainauth.Identity{}, normalizeProviderError(err)
	}
	return id, nil
}

// UpdatePassword sets a new password scoped to accessToken, not to this client's session.
func (c *IdentityClient) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.provider.UpdatePassword(callCtx, accessToken, newPassword); err != nil {
		return normalizeProviderError(err)
	}
	return nil
}

// ResetPasswordForEmail asks the provider to send a recovery link to email.
func (c *IdentityClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.provider.ResetPasswordForEmail(callCtx, email, redirectTo); err != nil {
		return normalizeProviderError(err)
	}
	return nil
}

// Subscription is a registered auth state listener.
type Subscription struct {
	id     uint64
	client *IdentityClient
	mu     sync.Mutex // held while the callback runs
	fn     func(domainauth.Event)
	active bool
}

// Unsubscribe removes the listener. When it returns, the callback is not running
// and will not run again. It must not be called from inside the callback.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.client.subMu.Lock()
	delete(s.client.subs, s.id)
	s.client.subMu.Unlock()
}

// OnAuthStateChange registers fn for every subsequent auth event.
func (c *IdentityClient) OnAuthStateChange(fn func(domainauth.Event)) *Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextID++
	sub := &Subscription{id: c.nextID, client: c, fn: fn, active: true}
	c.subs[sub.id] = sub
	return sub
}

// Close stops the dispatcher. Pending events are dropped.
func (c *IdentityClient) Close() {
	c.closed.Do(func() { close(c.done) })
	c.wg.Wait()
}

// LastEventSeq returns the Seq of the most recently emitted event.
func (c *IdentityClient) LastEventSeq() uint64 {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.seq
}

func (c *IdentityClient) emit(ev domainauth.Event) {
	select {
	case <-c.done:
		return
	default:
	}
	c.queueMu.Lock()
	c.seq++
	ev.Seq = c.seq
	c.queue = append(c.queue, ev)
	c.queueMu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *IdentityClient) dispatch() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.queueMu.Lock()
		batch := c.queue
		c.queue = nil
		c.queueMu.Unlock()

		for _, ev := range batch {
			c.deliver(ev)
		}
	}
}

func (c *IdentityClient) deliver(ev domainauth.Event) {
	c.subMu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.subMu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		if s.active {
			s.fn(ev)
		}
		s.mu.Unlock()
	}
}

// normalizeProviderError keeps taxonomy errors and classifies anything else.
func normalizeProviderError(err error) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.ProviderUnavailable(err)
	}
	return apperrors.Unknown("", err)
}
