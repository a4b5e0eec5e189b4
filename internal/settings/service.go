// Package settings edits the persisted Ollama host and vendor credentials.
package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/store"
	"go.uber.org/zap"
)

const (
	MsgEmptyHost = "Ollama host URL cannot be empty."
	MsgSaved     = "Ollama settings saved. Models will be available on next reload."
)

var (
	ErrEmptyHost       = errors.New("ollama host url cannot be empty")
	ErrReadOnly        = errors.New("settings are read-only in the env host context")
	ErrNotSecret       = fmt.Errorf("credential name must contain %s", credentials.SecretMarker)
	ErrEmptyCredential = errors.New("credential value cannot be empty")
)

// Service reads and writes the settings the registry is built from.
type Service struct {
	store   store.Store
	host    *credentials.HostResolver
	secrets *credentials.Resolver
	logger  *zap.Logger
}

func NewService(st store.Store, host *credentials.HostResolver, secrets *credentials.Resolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, host: host, secrets: secrets, logger: logger}
}

// Context is the host context the service was built for.
func (s *Service) Context() credentials.HostContext {
	return s.host.Context()
}

// Writable reports whether the persisted store can be edited.
func (s *Service) Writable() bool {
	return s.host.Context() == credentials.StoreContext && s.store != nil
}

// Host returns the effective Ollama host.
func (s *Service) Host(ctx context.Context) string {
	return s.host.Host(ctx)
}

// SaveHost persists the trimmed draft and returns it. The registry picks
// the new value up through the store's change events, not from here.
func (s *Service) SaveHost(ctx context.Context, draft string) (string, error) {
	host := strings.TrimSpace(draft)
	if host == "" {
		return "", ErrEmptyHost
	}
	if !s.Writable() {
		return "", ErrReadOnly
	}

	if err := s.store.Set(ctx, credentials.HostKey, host); err != nil {
		return "", fmt.Errorf("failed to persist ollama host: %w", err)
	}
	s.logger.Info("Ollama host saved", zap.String("ollama_host", host))
	return host, nil
}

// SecretStatus reports whether name resolves and from which source.
func (s *Service) SecretStatus(ctx context.Context, name string) (configured bool, source string) {
	_, source, configured = s.secrets.Lookup(ctx, name)
	return configured, source
}

// SecretNames returns known followed by the other credential names present
// in the store, sorted. Stored names are ignored in the env context.
func (s *Service) SecretNames(ctx context.Context, known []string) ([]string, error) {
	out := append([]string(nil), known...)
	if !s.Writable() {
		return out, nil
	}

	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored settings: %w", err)
	}

	var extra []string
	for _, k := range keys {
		if credentials.IsSecretName(k) && !slices.Contains(known, k) {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(out, extra...), nil
}

func (s *Service) SetSecret(ctx context.Context, name, value string) error {
	if !credentials.IsSecretName(name) {
		return ErrNotSecret
	}
	if strings.TrimSpace(value) == "" {
		return ErrEmptyCredential
	}
	if !s.Writable() {
		return ErrReadOnly
	}

	if err := s.store.Set(ctx, name, value); err != nil {
		return fmt.Errorf("failed to persist credential %s: %w", name, err)
	}
	s.logger.Info("Credential stored", zap.String("name", name))
	return nil
}

func (s *Service) DeleteSecret(ctx context.Context, name string) error {
	if !credentials.IsSecretName(name) {
		return ErrNotSecret
	}
	if !s.Writable() {
		return ErrReadOnly
	}

	if err := s.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete credential %s: %w", name, err)
	}
	s.logger.Info("Credential removed", zap.String("name", name))
	return nil
}
