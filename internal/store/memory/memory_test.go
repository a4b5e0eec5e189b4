package memory

import (
	"context"
	"testing"
	"time"

	"github.com/nulzo/chat-registry/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan store.Change) store.Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return store.Change{}
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

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
	_, ok, _ = s.Get(ctx, "ollama_host")
	assert.False(t, ok)
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New()
	defer s.Close()
	changes := s.Watch(ctx)

	require.NoError(t, s.Set(ctx, "GROQ_API_KEY", "gsk"))
	assert.Equal(t, store.Change{Key: "GROQ_API_KEY", Value: "gsk"}, recv(t, changes))

	require.NoError(t, s.Delete(ctx, "GROQ_API_KEY"))
	assert.Equal(t, store.Change{Key: "GROQ_API_KEY", Deleted: true}, recv(t, changes))

	// deleting a missing key publishes nothing
	require.NoError(t, s.Delete(ctx, "GROQ_API_KEY"))
	select {
	case c := <-changes:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_WatchClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()
	defer s.Close()

	changes := s.Watch(ctx)
	cancel()

	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
