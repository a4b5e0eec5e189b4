package registry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Builder produces a fresh Registry from the current credentials.
type Builder func(ctx context.Context) (*Registry, error)

type generation struct {
	seq      uint64
	registry *Registry
	inflight sync.WaitGroup
}

// Manager owns the current registry generation. Requests pin a generation
// with Acquire; Rebuild swaps in a new one and waits for the old one to
// drain.
type Manager struct {
	build        Builder
	drainTimeout time.Duration
	logger       *zap.Logger

	rebuildMu sync.Mutex
	mu        sync.Mutex
	current   *generation
}

type ManagerOptions struct {
	// DrainTimeout bounds how long Rebuild waits for requests pinned to the
	// previous generation. Zero waits only on ctx.
	DrainTimeout time.Duration
	Logger       *zap.Logger
}

// NewManager builds the initial registry. An error here is fatal to startup.
func NewManager(ctx context.Context, build Builder, opts ManagerOptions) (*Manager, error) {
	reg, err := build(ctx)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		build:        build,
		drainTimeout: opts.DrainTimeout,
		logger:       logger,
		current:      &generation{seq: 1, registry: reg},
	}, nil
}

// Acquire pins the current generation until release is called. release is
// safe to call more than once.
func (m *Manager) Acquire() (*Registry, func()) {
	m.mu.Lock()
	g := m.current
	g.inflight.Add(1)
	m.mu.Unlock()

	return g.registry, sync.OnceFunc(g.inflight.Done)
}

// Current returns the current registry without pinning it.
func (m *Manager) Current() *Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.registry
}

// Generation counts successful builds, starting at 1.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.seq
}

// Rebuild replaces the registry. A failed build leaves the current one in
// place and returns the error.
func (m *Manager) Rebuild(ctx context.Context) error {
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	reg, err := m.build(ctx)
	if err != nil {
		m.logger.Error("Registry rebuild failed, keeping current generation", zap.Error(err))
		return err
	}

	m.mu.Lock()
	old := m.current
	m.current = &generation{seq: old.seq + 1, registry: reg}
	m.mu.Unlock()

	m.logger.Info("Registry rebuilt",
		zap.Uint64("generation", old.seq+1),
		zap.String("ollama_host", reg.OllamaHost()),
	)

	m.drain(ctx, old)
	return nil
}

func (m *Manager) drain(ctx context.Context, g *generation) {
	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if m.drainTimeout > 0 {
		timer := time.NewTimer(m.drainTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-done:
		m.logger.Debug("Previous registry generation drained", zap.Uint64("generation", g.seq))
	case <-timeout:
		m.logger.Warn("Previous registry generation still in use after drain timeout",
			zap.Uint64("generation", g.seq),
			zap.Duration("drain_timeout", m.drainTimeout),
		)
	case <-ctx.Done():
	}
}
