package credentials

import (
	"context"
	"strings"
)

// Resolver returns the first non-empty value among its sources.
type Resolver struct {
	sources []Source
}

func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// ForContext builds the credential chain for a host context: environment
// then store in StoreContext, environment alone in EnvContext.
func ForContext(hc HostContext, env, st Source) *Resolver {
	if hc == StoreContext && st != nil {
		return NewResolver(env, st)
	}
	return NewResolver(env)
}

// Secret returns the value of name, or false when no source has it.
func (r *Resolver) Secret(ctx context.Context, name string) (string, bool) {
	v, _, ok := r.Lookup(ctx, name)
	return v, ok
}

// Lookup is Secret plus the name of the source that answered.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, string, bool) {
	for _, s := range r.sources {
		if v, ok := s.Value(ctx, name); ok {
			return v, s.Name(), true
		}
	}
	return "", "", false
}

const (
	HostKey     = "ollama_host"
	HostEnv     = "OLLAMA_HOST"
	DefaultHost = "http://localhost:11434"
)

// HostResolver returns the Ollama base URL. Exactly one backend is
// consulted, chosen by the host context.
type HostResolver struct {
	hc    HostContext
	env   Source
	store Source
}

func NewHostResolver(hc HostContext, env, st Source) *HostResolver {
	return &HostResolver{hc: hc, env: env, store: st}
}

func (h *HostResolver) Context() HostContext {
	return h.hc
}

// Host never returns an empty string.
func (h *HostResolver) Host(ctx context.Context) string {
	if h.hc == StoreContext && h.store != nil {
		v, ok := h.store.Value(ctx, HostKey)
		if v = strings.TrimSpace(v); ok && v != "" {
			return v
		}
		return DefaultHost
	}

	if v, ok := h.env.Value(ctx, HostEnv); ok {
		return v
	}
	return DefaultHost
}
