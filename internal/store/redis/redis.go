package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nulzo/chat-registry/internal/store"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key; the change channel is Prefix + "changes".
	Prefix string
}

// Store keeps settings in redis and announces writes over pub/sub, so every
// process sharing the redis sees every change.
type Store struct {
	client  *goredis.Client
	prefix  string
	channel string
	logger  *zap.Logger
}

type event struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &Store{
		client:  client,
		prefix:  opts.Prefix,
		channel: opts.Prefix + "changes",
		logger:  logger,
	}, nil
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return err
	}
	return s.publish(ctx, event{Key: key, Value: value})
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return s.publish(ctx, event{Key: key, Deleted: true})
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), s.prefix)
		if s.prefix+k == s.channel {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) publish(ctx context.Context, e event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

func (s *Store) Watch(ctx context.Context) <-chan store.Change {
	out := make(chan store.Change, 16)
	sub := s.client.Subscribe(ctx, s.channel)

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					s.logger.Warn("Ignoring malformed settings event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- store.Change{Key: e.Key, Value: e.Value, Deleted: e.Deleted}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (s *Store) Close() error {
	return s.client.Close()
}
