package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	"github.com/snr-automations/teamdash/internal/observability/metrics"
	"github.com/snr-automations/teamdash/internal/ports"
)

// Runtime is the auth machinery of one browser client: its identity client, its
// state cell, the event subscriber feeding that cell, and the one-shot bootstrapper.
type Runtime struct {
	ClientID     string
	Identity     *IdentityClient
	State        *StateCell
	Bootstrapper *SessionBootstrapper
	events       *AuthEventSubscriber
	closeOnce    sync.Once
}

// Bootstrap runs the session bootstrap once and returns the resulting state.
func (r *Runtime) Bootstrap(ctx context.Context) domainauth.State {
	return r.Bootstrapper.Bootstrap(ctx)
}

// Close unsubscribes from auth events and stops the identity client's dispatcher.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		r.events.Stop()
		r.Identity.Close()
	})
}

// RuntimeRegistryOptions groups dependencies for RuntimeRegistry.
type RuntimeRegistryOptions struct {
	Provider       ports.IdentityProvider // Required
	Sessions       ports.SessionStore     // Required
	Profiles       *ProfileLoader         // Required
	Size           int                    // Optional: default 10000
	IdleTTL        time.Duration          // Optional: default 30m
	SessionTTL     time.Duration          // Optional
	RequestTimeout time.Duration          // Optional
	Logger         *slog.Logger           // Optional
	Metrics        *metrics.Auth          // Optional
}

// RuntimeRegistry keeps client runtimes in an expiring LRU. Evicted runtimes are
// closed; their provider session survives in the session store and is picked up
// by the next runtime's bootstrap.
type RuntimeRegistry struct {
	opts  RuntimeRegistryOptions
	mu    sync.Mutex
	cache *expirable.LRU[string, *Runtime]
}

// NewRuntimeRegistry creates a new RuntimeRegistry.
func NewRuntimeRegistry(opts RuntimeRegistryOptions) *RuntimeRegistry {
	if opts.Provider == nil || opts.Sessions == nil || opts.Profiles == nil {
		panic("Provider, Sessions and Profiles are required")
	}
	if opts.Size <= 0 {
		opts.Size = 10000
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := &RuntimeRegistry{opts: opts}
	r.cache = expirable.NewLRU[string, *Runtime](opts.Size, func(_ string, rt *Runtime) {
		rt.Close()
		opts.Metrics.RuntimeRemoved()
	}, opts.IdleTTL)
	return r
}

// Get returns the runtime for clientID, creating and starting one on first use.
// Each Get refreshes the idle TTL.
func (r *RuntimeRegistry) Get(clientID string) *Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rt, ok := r.cache.Get(clientID); ok {
		// expirable.LRU does not extend TTL on read.
		r.cache.Add(clientID, rt)
		return rt
	}

	// An expired entry may linger until the janitor runs; evict it so it is closed.
	r.cache.Remove(clientID)
	rt := r.newRuntime(clientID)
	r.cache.Add(clientID, rt)
	r.opts.Metrics.RuntimeAdded()
	return rt
}

// Len reports how many runtimes are held.
func (r *RuntimeRegistry) Len() int {
	return r.cache.Len()
}

// Close closes every runtime.
func (r *RuntimeRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}

func (r *RuntimeRegistry) newRuntime(clientID string) *Runtime {
	logger := r.opts.Logger.With("client_id", clientID)
	identity := NewIdentityClient(IdentityClientOptions{
		Provider:       r.opts.Provider,
		Sessions:       r.opts.Sessions,
		ClientID:       clientID,
		SessionTTL:     r.opts.SessionTTL,
		RequestTimeout: r.opts.RequestTimeout,
		Logger:         r.opts.Logger,
	})
	state := NewStateCell(r.opts.Metrics)
	events := NewAuthEventSubscriber(identity, r.opts.Profiles, state, logger)
	// The subscriber must be registered before anything can read the state.
	events.Start()
	return &Runtime{
		ClientID:     clientID,
		Identity:     identity,
		State:        state,
		Bootstrapper: NewSessionBootstrapper(identity, r.opts.Profiles, state, logger),
		events:       events,
	}
}
