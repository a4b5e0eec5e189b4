package v1

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/internal/registry"
)

const healthProbeTimeout = 5 * time.Second

// RegistrySource exposes the current registry generation.
type RegistrySource interface {
	Current() *registry.Registry
	Generation() uint64
}

type HealthHandler struct {
	registries RegistrySource
}

func NewHealthHandler(registries RegistrySource) *HealthHandler {
	return &HealthHandler{registries: registries}
}

type providerHealth struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	// Missing lists bound upstream models the host has not installed.
	Missing []string `json:"missing_models,omitempty"`
}

type healthResponse struct {
	Status     string           `json:"status"`
	Generation uint64           `json:"generation"`
	BuiltAt    time.Time        `json:"built_at"`
	OllamaHost string           `json:"ollama_host"`
	Models     int              `json:"models"`
	Providers  []providerHealth `json:"providers,omitempty"`
}

// Health reports the current registry. With ?deep=true every provider that
// can probe its upstream is checked concurrently.
func (h *HealthHandler) Health(c *gin.Context) {
	reg := h.registries.Current()
	resp := healthResponse{
		Status:     "ok",
		Generation: h.registries.Generation(),
		BuiltAt:    reg.BuiltAt(),
		OllamaHost: reg.OllamaHost(),
		Models:     len(reg.IDs()),
	}

	if c.Query("deep") == "true" {
		resp.Providers = probe(c.Request.Context(), reg)
		for _, p := range resp.Providers {
			if p.Status != "ok" && p.Status != "unchecked" {
				resp.Status = "degraded"
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func probe(ctx context.Context, reg *registry.Registry) []providerHealth {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	providers := reg.Providers()
	bound := upstreamsByProvider(reg)

	out := make([]providerHealth, len(providers))
	var wg sync.WaitGroup
	for i, p := range providers {
		out[i] = providerHealth{Name: p.Name(), Type: p.Type(), Status: "unchecked"}
		checker, ok := p.(llm.HealthChecker)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(i int, p llm.Provider, checker llm.HealthChecker) {
			defer wg.Done()
			if err := checker.Health(ctx); err != nil {
				out[i].Status = "error"
				out[i].Error = err.Error()
				return
			}
			out[i].Status = "ok"

			lister, ok := p.(llm.TagLister)
			if !ok {
				return
			}
			tags, err := lister.Tags(ctx)
			if err != nil {
				out[i].Status = "error"
				out[i].Error = err.Error()
				return
			}
			if out[i].Missing = missingTags(bound[p.Name()], tags); len(out[i].Missing) > 0 {
				out[i].Status = "degraded"
			}
		}(i, p, checker)
	}
	wg.Wait()
	return out
}

func upstreamsByProvider(reg *registry.Registry) map[string][]string {
	out := make(map[string][]string)
	for _, id := range reg.IDs() {
		m, ok := reg.Model(id)
		if !ok || m.Provider() == nil {
			continue
		}
		name := m.Provider().Name()
		out[name] = append(out[name], m.Upstream())
	}
	return out
}

// missingTags returns the wanted models absent from tags. A bare name
// matches any tag of that model ("llama3" matches "llama3:latest").
func missingTags(wanted, tags []string) []string {
	var missing []string
	for _, w := range wanted {
		found := false
		for _, t := range tags {
			if t == w || (!strings.Contains(w, ":") && strings.HasPrefix(t, w+":")) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, w)
		}
	}
	return missing
}
