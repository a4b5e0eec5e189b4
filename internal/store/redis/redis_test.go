package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/chat-registry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These tests need a live redis; set REDIS_TEST_ADDR to run them.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	s, err := Open(context.Background(), Options{
		Addr:   addr,
		Prefix: "chat-registry-test:" + uuid.NewString() + ":",
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, ok, err := s.Get(ctx, "ollama_host")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "ollama_host", "http://h:1"))
	v, ok, err := s.Get(ctx, "ollama_host")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://h:1", v)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ollama_host"}, keys)

	require.NoError(t, s.Delete(ctx, "ollama_host"))
	_, ok, err = s.Get(ctx, "ollama_host")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := openTestStore(t)
	changes := s.Watch(ctx)
	// give the subscription a moment to register
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, s.Set(ctx, "OPENAI_API_KEY", "sk-1"))

	select {
	case c := <-changes:
		assert.Equal(t, store.Change{Key: "OPENAI_API_KEY", Value: "sk-1"}, c)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}
