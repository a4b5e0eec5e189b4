package store

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("store closed")

// Change describes a write to a key. Value is empty when Deleted is set.
type Change struct {
	Key     string
	Value   string
	Deleted bool
}

// Store is the persisted settings store: a flat string key/value space
// shared by the settings dialog and the credential resolver.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores a value and publishes a Change.
	Set(ctx context.Context, key, value string) error
	// Delete removes a key and publishes a Change. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key.
	Keys(ctx context.Context) ([]string, error)
	// Watch streams changes until ctx is done.
	Watch(ctx context.Context) <-chan Change

	Close() error
}

const watchBuffer = 16

// Hub fans changes out to watchers. Delivery is fire-and-forget: a watcher
// whose buffer is full misses the change.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Change]struct{}
	closed bool
	done   chan struct{}
	// watchers counts the goroutines waiting to unsubscribe.
	watchers sync.WaitGroup
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Change]struct{}), done: make(chan struct{})}
}

// Subscribe returns a channel that is closed when ctx is done or the hub closes.
func (h *Hub) Subscribe(ctx context.Context) <-chan Change {
	ch := make(chan Change, watchBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	h.watchers.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.watchers.Done()
		select {
		case <-ctx.Done():
			h.remove(ch)
		case <-h.done:
		}
	}()

	return ch
}

func (h *Hub) remove(ch chan Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close closes every subscription and returns once no subscriber goroutine
// remains.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	close(h.done)
	h.mu.Unlock()

	h.watchers.Wait()
}
