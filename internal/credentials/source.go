// Package credentials resolves vendor API keys and the local model host
// from the process environment and the persisted settings store.
package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nulzo/chat-registry/internal/store"
	"go.uber.org/zap"
)

// SecretMarker is contained in the name of every credential key.
const SecretMarker = "API_KEY"

// IsSecretName reports whether key names a credential.
func IsSecretName(key string) bool {
	return strings.Contains(key, SecretMarker)
}

// HostContext selects which backends are consulted.
type HostContext string

const (
	// StoreContext reads credentials from the environment, then the store,
	// and the host from the store only.
	StoreContext HostContext = "store"
	// EnvContext reads everything from the environment only.
	EnvContext HostContext = "env"
)

func ParseHostContext(s string) (HostContext, error) {
	switch HostContext(s) {
	case StoreContext, EnvContext:
		return HostContext(s), nil
	}
	return "", fmt.Errorf("unknown host context %q", s)
}

// Source is a named-value backend. An empty value is reported as absent.
type Source interface {
	Value(ctx context.Context, name string) (string, bool)
	// Name identifies the backend ("env", "store").
	Name() string
}

// EnvSource reads the process environment.
type EnvSource struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

func NewEnvSource() *EnvSource {
	return &EnvSource{Lookup: os.LookupEnv}
}

func (e *EnvSource) Value(_ context.Context, name string) (string, bool) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *EnvSource) Name() string { return "env" }

// StoreSource reads the persisted settings store. Store failures are logged
// and treated as absence.
type StoreSource struct {
	store  store.Store
	logger *zap.Logger
}

func NewStoreSource(s store.Store, logger *zap.Logger) *StoreSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSource{store: s, logger: logger}
}

func (s *StoreSource) Value(ctx context.Context, name string) (string, bool) {
	v, ok, err := s.store.Get(ctx, name)
	if err != nil {
		s.logger.Warn("Settings store read failed", zap.String("key", name), zap.Error(err))
		return "", false
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func (s *StoreSource) Name() string { return "store" }
