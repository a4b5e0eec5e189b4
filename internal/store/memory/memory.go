package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nulzo/chat-registry/internal/store"
)

type Store struct {
	items map[string]string
	mu    sync.RWMutex
	hub   *store.Hub
}

func New() *Store {
	return &Store{
		items: make(map[string]string),
		hub:   store.NewHub(),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()

	s.hub.Publish(store.Change{Key: key, Value: value})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()

	if existed {
		s.hub.Publish(store.Change{Key: key, Deleted: true})
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Watch(ctx context.Context) <-chan store.Change {
	return s.hub.Subscribe(ctx)
}

func (s *Store) Close() error {
	s.hub.Close()
	return nil
}
