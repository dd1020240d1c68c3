package redis

// Package redis provides Redis-based adapters for provider sessions and recovery tokens.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/snr-automations/teamdash/internal/domain/auth"
	"github.com/snr-automations/teamdash/internal/ports"
)

// SessionStore keeps the provider session of each client runtime in Redis.
// The key TTL bounds how long an idle browser stays signed in.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, "teamdash:session:")
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (s *SessionStore) Save(ctx context.Context, clientID string, sess domainauth.ProviderSession, ttl time.Duration) error {
	if clientID == "" {
		return errors.New("client ID cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+clientID, data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, clientID string) (domainauth.ProviderSession, error) {
	if clientID == "" {
		return domainauth.ProviderSession{}, ports.ErrNoSession
	}

	data, err := s.client.Get(ctx, s.prefix+clientID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.ProviderSession{}, ports.ErrNoSession
		}
		return domainauth.ProviderSession{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.ProviderSession
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.ProviderSession{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+clientID).Err()
}
