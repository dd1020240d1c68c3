package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RecoveryStore holds one password-recovery token per browser tab.
// Writes use SET NX so a remount or a racing duplicate capture never replaces a held token.
type RecoveryStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRecoveryStore creates a Redis-backed recovery token store.
func NewRecoveryStore(client redis.UniversalClient) *RecoveryStore {
	return &RecoveryStore{client: client, prefix: "teamdash:recovery_token:"}
}

func (s *RecoveryStore) Put(ctx context.Context, tabID, token string, ttl time.Duration) (bool, error) {
	if tabID == "" || token == "" {
		return false, errors.New("tab ID and token are required")
	}
	ok, err := s.client.SetNX(ctx, s.prefix+tabID, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RecoveryStore) Get(ctx context.Context, tabID string) (string, bool, error) {
	if tabID == "" {
		return "", false, nil
	}
	token, err := s.client.Get(ctx, s.prefix+tabID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return token, true, nil
}

// Take reads and removes the token in one GETDEL.
func (s *RecoveryStore) Take(ctx context.Context, tabID string) (string, bool, error) {
	if tabID == "" {
		return "", false, nil
	}
	token, err := s.client.GetDel(ctx, s.prefix+tabID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis getdel: %w", err)
	}
	return token, true, nil
}
