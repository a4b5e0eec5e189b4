package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/internal/registry"
	"github.com/nulzo/chat-registry/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/nulzo/chat-registry/internal/llm/ollama"
)

type hostOnly string

func (h hostOnly) Host(context.Context) string { return string(h) }

type fixedRegistry struct{ reg *registry.Registry }

func (f fixedRegistry) Current() *registry.Registry { return f.reg }
func (f fixedRegistry) Generation() uint64          { return 1 }

func localOnlyRegistry(t *testing.T, host string) *registry.Registry {
	t.Helper()
	catalog := &registry.Catalog{
		Vendors: []registry.Vendor{{Name: "ollama", Type: string(llm.Ollama)}},
		Bindings: []registry.Binding{
			{ID: "llama3", Vendor: "ollama", Upstream: "llama3"},
			{ID: "mistral", Vendor: "ollama", Upstream: "mistral"},
		},
		Details: map[string]api.ModelInfo{"llama3": {}, "mistral": {}},
		Default: "llama3",
	}
	reg, err := registry.Build(context.Background(), registry.Options{Catalog: catalog, Host: hostOnly(host)})
	require.NoError(t, err)
	return reg
}

func TestHealth_DeepReportsMissingLocalModels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/version":
			_, _ = w.Write([]byte(`{"version":"0.6.2"}`))
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer upstream.Close()

	r := gin.New()
	r.GET("/health", NewHealthHandler(fixedRegistry{localOnlyRegistry(t, upstream.URL)}).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health?deep=true", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	require.Len(t, resp.Providers, 1)
	assert.Equal(t, "degraded", resp.Providers[0].Status)
	assert.Equal(t, []string{"mistral"}, resp.Providers[0].Missing)
	assert.Equal(t, upstream.URL, resp.OllamaHost)
	assert.WithinDuration(t, time.Now(), resp.BuiltAt, time.Minute)
}

func TestHealth_DeepUnreachableHost(t *testing.T) {
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.NotFoundHandler())
	upstream.Close()

	r := gin.New()
	r.GET("/health", NewHealthHandler(fixedRegistry{localOnlyRegistry(t, upstream.URL)}).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health?deep=true", nil))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "error", resp.Providers[0].Status)
	assert.NotEmpty(t, resp.Providers[0].Error)
}

func TestMissingTags(t *testing.T) {
	tags := []string{"llama3:latest", "qwen3:8b", "mistral"}
	assert.Empty(t, missingTags([]string{"llama3", "qwen3", "mistral"}, tags))
	assert.Equal(t, []string{"llava", "qwen3:14b"}, missingTags([]string{"llava", "qwen3:14b"}, tags))
	assert.Nil(t, missingTags(nil, tags))
}
