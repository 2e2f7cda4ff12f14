package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/dashclient/internal/infra/storage"
)

// setupTestClient creates a miniredis instance and returns a connected Client.
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(Config{
		URL:       fmt.Sprintf("redis://%s", mr.Addr()),
		KeyPrefix: "test",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, mr
}

func TestNewClient_BadURL(t *testing.T) {
	_, err := NewClient(Config{URL: "not a url"})
	assert.Error(t, err)
}

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	client, mr := setupTestClient(t)
	store := NewCredentialStore(client)

	t.Run("empty store", func(t *testing.T) {
		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, storage.ErrNoCredential)
	})

	t.Run("set and get under fixed key", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "secret"))

		token, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "secret", token)

		raw, err := mr.Get("test:auth_token")
		require.NoError(t, err)
		assert.Equal(t, "secret", raw)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		assert.False(t, mr.Exists("test:auth_token"))

		_, err := store.Get(ctx)
		assert.ErrorIs(t, err, storage.ErrNoCredential)
	})

	t.Run("connection failure is wrapped", func(t *testing.T) {
		mr.Close()
		_, err := store.Get(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrNoCredential)
	})
}
