// Package registry assembles the immutable set of callable model handles
// and their metadata from the catalog and the resolved credentials.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nulzo/chat-registry/internal/cli"
	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/pkg/api"
	"go.uber.org/zap"
)

var ErrLockstep = errors.New("model handles and model details are out of lockstep")

// SecretSource resolves vendor credentials.
type SecretSource interface {
	Secret(ctx context.Context, name string) (string, bool)
}

// HostSource resolves the Ollama base URL.
type HostSource interface {
	Host(ctx context.Context) string
}

// VendorOverrides supplies per-vendor configuration; *config.Config
// satisfies it.
type VendorOverrides interface {
	Vendor(name string) config.VendorConfig
}

type Options struct {
	Secrets SecretSource
	Host    HostSource
	Vendors VendorOverrides
	// Catalog defaults to DefaultCatalog().
	Catalog *Catalog
	Factory *llm.ProviderFactory
	Logger  *zap.Logger
}

// Registry is immutable once built; a rebuild produces a new Registry.
type Registry struct {
	ids        []string
	def        string
	models     map[string]llm.Model
	details    map[string]api.ModelInfo
	providers  []llm.Provider
	ollamaHost string
	builtAt    time.Time
}

// Build instantiates one provider per vendor and one handle per binding.
// Missing credentials do not fail the build; the vendor rejects the call
// later. Construction errors and lockstep violations do.
func Build(ctx context.Context, opts Options) (*Registry, error) {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	factory := opts.Factory
	if factory == nil {
		factory = llm.NewProviderFactory()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := &Registry{
		def:     catalog.Default,
		models:  make(map[string]llm.Model, len(catalog.Bindings)),
		details: make(map[string]api.ModelInfo, len(catalog.Details)),
		builtAt: time.Now(),
	}

	byVendor := make(map[string]llm.Provider, len(catalog.Vendors))
	for _, v := range catalog.Vendors {
		pCfg := config.ProviderConfig{
			ID:   v.Name,
			Type: v.Type,
			Name: v.Name,
		}
		if opts.Vendors != nil {
			override := opts.Vendors.Vendor(v.Name)
			pCfg.BaseURL = override.BaseURL
			pCfg.Config = override.Options
		}
		if v.Secret != "" && opts.Secrets != nil {
			pCfg.APIKey, _ = opts.Secrets.Secret(ctx, v.Secret)
		}
		if v.Type == string(llm.Ollama) {
			if opts.Host != nil {
				pCfg.BaseURL = opts.Host.Host(ctx)
			}
			r.ollamaHost = pCfg.BaseURL
		}

		p, err := factory.CreateProvider(pCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", v.Name, err)
		}
		byVendor[v.Name] = p
		r.providers = append(r.providers, p)
	}

	for _, b := range catalog.Bindings {
		p, ok := byVendor[b.Vendor]
		if !ok {
			return nil, fmt.Errorf("model %s references unknown vendor %s", b.ID, b.Vendor)
		}
		if _, dup := r.models[b.ID]; dup {
			return nil, fmt.Errorf("model %s is bound twice", b.ID)
		}

		m := llm.Bind(p, b.Upstream)
		if b.ReasoningTag != "" {
			m = llm.WithReasoning(m, b.ReasoningTag)
		}
		r.models[b.ID] = m
		r.ids = append(r.ids, b.ID)
	}

	for id, info := range catalog.Details {
		info.Capabilities = append([]string(nil), info.Capabilities...)
		r.details[id] = info
	}

	if err := CheckLockstep(r.models, r.details, r.ids, r.def); err != nil {
		return nil, err
	}

	log.Info(fmt.Sprintf("%s %s", cli.Arrow(), cli.Style("Ollama base URL resolved", cli.Bold)),
		zap.String("ollama_host", r.ollamaHost),
		zap.Int("models", len(r.ids)),
	)

	return r, nil
}

// CheckLockstep verifies that handles and details cover exactly the same
// identifiers, that ids lists each of them once, and that def is one of them.
func CheckLockstep(handles map[string]llm.Model, details map[string]api.ModelInfo, ids []string, def string) error {
	var missing []string
	for id := range handles {
		if _, ok := details[id]; !ok {
			missing = append(missing, id+" (no details)")
		}
	}
	for id := range details {
		if _, ok := handles[id]; !ok {
			missing = append(missing, id+" (no handle)")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %v", ErrLockstep, missing)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := handles[id]; !ok {
			return fmt.Errorf("%w: listed id %s has no handle", ErrLockstep, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: id %s listed twice", ErrLockstep, id)
		}
		seen[id] = struct{}{}
	}
	if len(seen) != len(handles) {
		return fmt.Errorf("%w: %d ids listed for %d handles", ErrLockstep, len(seen), len(handles))
	}

	if _, ok := handles[def]; !ok {
		return fmt.Errorf("%w: default model %q is not registered", ErrLockstep, def)
	}
	return nil
}

// IDs returns the identifiers in catalog order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

func (r *Registry) Default() string {
	return r.def
}

func (r *Registry) Model(id string) (llm.Model, bool) {
	m, ok := r.models[id]
	return m, ok
}

func (r *Registry) Info(id string) (api.ModelInfo, bool) {
	info, ok := r.details[id]
	if !ok {
		return api.ModelInfo{}, false
	}
	info.Capabilities = append([]string(nil), info.Capabilities...)
	return info, true
}

// Infos returns every identifier with its details, in catalog order.
func (r *Registry) Infos() []api.ModelEntry {
	out := make([]api.ModelEntry, 0, len(r.ids))
	for _, id := range r.ids {
		info, _ := r.Info(id)
		out = append(out, api.ModelEntry{ID: id, ModelInfo: info})
	}
	return out
}

func (r *Registry) Providers() []llm.Provider {
	return append([]llm.Provider(nil), r.providers...)
}

// OllamaHost is the host the Ollama provider was built with.
func (r *Registry) OllamaHost() string {
	return r.ollamaHost
}

func (r *Registry) BuiltAt() time.Time {
	return r.builtAt
}
