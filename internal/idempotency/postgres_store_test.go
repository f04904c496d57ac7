package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostgresStoreLifecycle(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	key := Key("claim-balance", "0xabc", "test-key")
	rec := Record{
		Kind:       "claim-balance",
		HandleID:   "h-1",
		StatusCode: 202,
		Body:       []byte("payload"),
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().Add(time.Minute).UTC(),
	}
	require.NoError(t, store.Save(ctx, key, rec))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec.StatusCode, got.StatusCode)
	require.Equal(t, rec.HandleID, got.HandleID)
}
