package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/dashclient/internal/infra/storage"
)

// CredentialStore implements storage.CredentialStore using Redis.
type CredentialStore struct {
	rdb *redis.Client
	key string
}

// NewCredentialStore creates a Redis-backed credential store. The token lives
// under "<prefix>:auth_token" with no expiry.
func NewCredentialStore(client *Client) *CredentialStore {
	return &CredentialStore{
		rdb: client.rdb,
		key: client.key(storage.CredentialKey),
	}
}

// Get returns the stored token.
func (s *CredentialStore) Get(ctx context.Context) (string, error) {
	token, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credential: %w", err)
	}
	if token == "" {
		return "", storage.ErrNoCredential
	}
	return token, nil
}

// Set stores the token.
func (s *CredentialStore) Set(ctx context.Context, token string) error {
	if err := s.rdb.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("failed to set credential: %w", err)
	}
	return nil
}

// Clear removes the token.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

var _ storage.CredentialStore = (*CredentialStore)(nil)
