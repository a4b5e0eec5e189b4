package registry

import (
	"context"

	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/store"
	"go.uber.org/zap"
)

// ShouldReload reports whether a change to key invalidates the registry:
// any credential key, or the Ollama host key.
func ShouldReload(key string) bool {
	return credentials.IsSecretName(key) || key == credentials.HostKey
}

// Watcher turns settings store changes into registry reloads, one reload
// per relevant change.
type Watcher struct {
	store  store.Store
	reload func(context.Context) error
	logger *zap.Logger
}

func NewWatcher(st store.Store, reload func(context.Context) error, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{store: st, reload: reload, logger: logger}
}

// Start subscribes before returning, so writes made after Start are seen.
// The returned channel closes once ctx is done or the store stops emitting.
func (w *Watcher) Start(ctx context.Context) <-chan struct{} {
	changes := w.store.Watch(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for c := range changes {
			w.handle(ctx, c)
		}
	}()

	return done
}

func (w *Watcher) handle(ctx context.Context, c store.Change) {
	if !ShouldReload(c.Key) {
		return
	}

	// key names are safe to log; values are not
	w.logger.Info("Settings changed, reloading registry",
		zap.String("key", c.Key),
		zap.Bool("deleted", c.Deleted),
	)
	if err := w.reload(ctx); err != nil {
		w.logger.Error("Reload failed", zap.String("key", c.Key), zap.Error(err))
	}
}
