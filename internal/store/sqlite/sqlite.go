package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/chat-registry/internal/store"
	"go.uber.org/zap"
)

// Options tunes change detection.
type Options struct {
	// PollInterval controls how often writes made by other processes are
	// picked up. Zero disables polling; local writes are always published.
	PollInterval time.Duration
}

type setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store implements store.Store on a single sqlite table.
type Store struct {
	db     *sqlx.DB
	opts   Options
	logger *zap.Logger
	hub    *store.Hub

	// mu serializes writes with the poller so a local write is never
	// reported twice.
	mu       sync.Mutex
	snapshot map[string]string

	pollOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

func newStore(db *sqlx.DB, opts Options, logger *zap.Logger) *Store {
	s := &Store{
		db:       db,
		opts:     opts,
		logger:   logger,
		hub:      store.NewHub(),
		snapshot: make(map[string]string),
		done:     make(chan struct{}),
	}

	if rows, err := s.all(context.Background()); err == nil {
		for _, r := range rows {
			s.snapshot[r.Key] = r.Value
		}
	} else {
		logger.Warn("Failed to load settings snapshot", zap.Error(err))
	}

	return s
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT INTO settings (key, value, updated_at)
	VALUES (:key, :value, :updated_at)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	row := setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return err
	}

	s.snapshot[key] = value
	s.hub.Publish(store.Change{Key: key, Value: value})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}

	delete(s.snapshot, key)
	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.Publish(store.Change{Key: key, Deleted: true})
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys, `SELECT key FROM settings ORDER BY key`)
	return keys, err
}

func (s *Store) Watch(ctx context.Context) <-chan store.Change {
	ch := s.hub.Subscribe(ctx)
	if s.opts.PollInterval > 0 {
		s.pollOnce.Do(func() {
			s.wg.Add(1)
			go s.poll()
		})
	}
	return ch
}

func (s *Store) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	s.wg.Wait()
	s.hub.Close()
	return s.db.Close()
}

func (s *Store) all(ctx context.Context) ([]setting, error) {
	var rows []setting
	err := s.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`)
	return rows, err
}

// poll diffs the table against the last snapshot and publishes what other
// processes changed.
func (s *Store) poll() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.diff(); err != nil {
				s.logger.Warn("Settings poll failed", zap.Error(err))
			}
		}
	}
}

func (s *Store) diff() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.PollInterval)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.all(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.Key] = struct{}{}
		if old, ok := s.snapshot[r.Key]; !ok || old != r.Value {
			s.snapshot[r.Key] = r.Value
			s.hub.Publish(store.Change{Key: r.Key, Value: r.Value})
		}
	}

	for k := range s.snapshot {
		if _, ok := seen[k]; !ok {
			delete(s.snapshot, k)
			s.hub.Publish(store.Change{Key: k, Deleted: true})
		}
	}

	return nil
}
