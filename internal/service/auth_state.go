package service

import (
	"context"
	"sync"

	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	"github.com/snr-automations/teamdash/internal/observability/metrics"
)

// StateCell holds the auth state of one client runtime. Writes are serialized;
// readers use Current or Watch.
//
// Precedence: every sign-out advances an epoch. Producers that resolve a profile
// asynchronously capture Epoch() first and publish with PublishAuthenticated(epoch, p);
// the publish is dropped if a sign-out happened in between.
type StateCell struct {
	mu       sync.Mutex
	state    domainauth.State
	version  uint64
	epoch    uint64
	echoes   int    // local sign-outs whose SignedOut event is still in flight
	barrier  uint64 // events at or below this Seq predate the last local sign-out
	watchers map[chan domainauth.State]struct{}
	metrics  *metrics.Auth
}

// NewStateCell returns a cell in the Loading state.
func NewStateCell(m *metrics.Auth) *StateCell {
	return &StateCell{
		state:    domainauth.Loading(),
		watchers: make(map[chan domainauth.State]struct{}),
		metrics:  m,
	}
}

// Current returns the current state and its version. The version only changes on
// observable transitions.
func (c *StateCell) Current() (domainauth.State, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.version
}

// Epoch returns the sign-out epoch to pass to PublishAuthenticated.
func (c *StateCell) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// PublishLoading moves to Loading.
func (c *StateCell) PublishLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(domainauth.Loading())
}

// PublishUnauthenticated moves to Unauthenticated and invalidates every pending
// authenticated publish.
func (c *StateCell) PublishUnauthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.setLocked(domainauth.Unauthenticated())
}

// PublishLocalSignOut is PublishUnauthenticated for a sign-out this process
// initiates. Call it before IdentityClient.SignOut with the client's LastEventSeq;
// the SignedOut event that call emits is then absorbed by ObserveSignedOut
// instead of advancing the epoch again.
func (c *StateCell) PublishLocalSignOut(lastSeq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.echoes++
	c.barrier = max(c.barrier, lastSeq)
	c.setLocked(domainauth.Unauthenticated())
}

// EpochAfter is Epoch for an event with the given Seq. ok is false when the
// event was emitted before the last local sign-out and must not be published.
func (c *StateCell) EpochAfter(seq uint64) (epoch uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch, seq > c.barrier
}

// ObserveSignedOut applies a provider SignedOut event.
func (c *StateCell) ObserveSignedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.echoes > 0 {
		c.echoes--
		return
	}
	c.epoch++
	c.setLocked(domainauth.Unauthenticated())
}

// PublishAuthenticated moves to Authenticated(p) unless a sign-out happened after
// epoch was captured. It reports whether the publish was accepted; re-publishing
// the same profile id is accepted without a transition.
func (c *StateCell) PublishAuthenticated(epoch uint64, p domainauth.UserProfile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	c.setLocked(domainauth.Authenticated(p))
	return true
}

// Watch streams state snapshots until ctx ends, starting with the current one.
// Slow readers only ever see the latest state.
func (c *StateCell) Watch(ctx context.Context) <-chan domainauth.State {
	ch := make(chan domainauth.State, 1)
	c.mu.Lock()
	ch <- c.state
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	out := make(chan domainauth.State)
	go func() {
		defer close(out)
		defer func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ch:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (c *StateCell) setLocked(next domainauth.State) {
	if sameState(c.state, next) {
		return
	}
	c.state = next
	c.version++
	c.metrics.StateTransition(string(next.Kind))
	for ch := range c.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

// sameState compares by kind and, for Authenticated, by profile id only.
func sameState(a, b domainauth.State) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind != domainauth.StateAuthenticated {
		return true
	}
	return a.Profile != nil && b.Profile != nil && a.Profile.ID == b.Profile.ID
}
