package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishFansOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	defer h.Close()

	a, b := h.Subscribe(ctx), h.Subscribe(ctx)
	h.Publish(Change{Key: "OPENAI_API_KEY", Value: "sk"})

	for _, ch := range []<-chan Change{a, b} {
		select {
		case c := <-ch:
			assert.Equal(t, "OPENAI_API_KEY", c.Key)
		case <-time.After(time.Second):
			t.Fatal("change not delivered")
		}
	}
}

func TestHub_CancelClosesSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub()
	defer h.Close()

	ch := h.Subscribe(ctx)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestHub_CloseReleasesLiveSubscribers(t *testing.T) {
	// never cancelled: Close alone must end the subscriber goroutines
	ctx := context.Background()
	h := NewHub()

	subs := []<-chan Change{h.Subscribe(ctx), h.Subscribe(ctx)}

	closed := make(chan struct{})
	go func() {
		h.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close waited on a subscriber whose context is still live")
	}

	for _, ch := range subs {
		_, ok := <-ch
		assert.False(t, ok)
	}

	late := h.Subscribe(ctx)
	_, ok := <-late
	require.False(t, ok)

	h.Close()
}
