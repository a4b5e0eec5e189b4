package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	_ "github.com/nulzo/chat-registry/internal/llm/anthropic"
	_ "github.com/nulzo/chat-registry/internal/llm/ollama"
	_ "github.com/nulzo/chat-registry/internal/llm/openai"
)

type staticSecrets map[string]string

func (s staticSecrets) Secret(_ context.Context, name string) (string, bool) {
	v, ok := s[name]
	return v, ok && v != ""
}

type staticHost string

func (h staticHost) Host(context.Context) string { return string(h) }

func testOptions() Options {
	return Options{
		Secrets: staticSecrets{"GROQ_API_KEY": "gsk-test"},
		Host:    staticHost("http://gpu-box:11434"),
	}
}

func TestBuild_Defaults(t *testing.T) {
	r, err := Build(context.Background(), testOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"gpt-4.1-mini", "claude-3-7-sonnet", "qwen-qwq", "grok-3-mini",
		"llama3", "mistral", "llava", "qwen3",
	}, r.IDs())
	assert.Equal(t, "qwen-qwq", r.Default())
	assert.Contains(t, r.IDs(), r.Default())
	assert.Equal(t, "http://gpu-box:11434", r.OllamaHost())
	assert.Len(t, r.Providers(), 5)

	m, ok := r.Model("qwen-qwq")
	require.True(t, ok)
	assert.Equal(t, "qwen-qwq-32b", m.Upstream())
	assert.Equal(t, "groq", m.Provider().Type())

	m, ok = r.Model("llava")
	require.True(t, ok)
	assert.Equal(t, "ollama", m.Provider().Type())

	info, ok := r.Info("claude-3-7-sonnet")
	require.True(t, ok)
	assert.Equal(t, "Anthropic", info.Provider)
	assert.Equal(t, "claude-3-7-sonnet-20250219", info.APIVersion)

	_, ok = r.Model("gpt-5")
	assert.False(t, ok)
	_, ok = r.Info("gpt-5")
	assert.False(t, ok)
}

func TestBuild_IDsAndDetailsInLockstep(t *testing.T) {
	r, err := Build(context.Background(), testOptions())
	require.NoError(t, err)

	infos := r.Infos()
	require.Len(t, infos, len(r.IDs()))
	for i, id := range r.IDs() {
		assert.Equal(t, id, infos[i].ID)
		_, ok := r.Model(id)
		assert.True(t, ok, id)
	}
}

func TestBuild_AccessorsReturnCopies(t *testing.T) {
	r, err := Build(context.Background(), testOptions())
	require.NoError(t, err)

	ids := r.IDs()
	ids[0] = "mutated"
	assert.Equal(t, "gpt-4.1-mini", r.IDs()[0])

	info, _ := r.Info("qwen3")
	info.Capabilities[0] = "mutated"
	again, _ := r.Info("qwen3")
	assert.Equal(t, "Local", again.Capabilities[0])
}

func TestBuild_MissingCredentialsStillBuild(t *testing.T) {
	r, err := Build(context.Background(), Options{Host: staticHost(credentials.DefaultHost)})
	require.NoError(t, err)
	assert.Len(t, r.IDs(), 8)
}

func TestBuild_VendorOverrides(t *testing.T) {
	opts := testOptions()
	opts.Vendors = &config.Config{Vendors: map[string]config.VendorConfig{"groq": {BaseURL: "http://groq.internal/v1"}}}

	r, err := Build(context.Background(), opts)
	require.NoError(t, err)

	m, _ := r.Model("qwen-qwq")
	assert.Equal(t, "http://groq.internal/v1", m.Provider().(interface{ BaseURL() string }).BaseURL())
}

func TestBuild_LogsOllamaHost(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	opts := testOptions()
	opts.Logger = zap.New(core)

	_, err := Build(context.Background(), opts)
	require.NoError(t, err)

	entries := logs.FilterField(zap.String("ollama_host", "http://gpu-box:11434")).All()
	assert.Len(t, entries, 1)
	for _, e := range logs.All() {
		for _, f := range e.Context {
			assert.NotEqual(t, "gsk-test", f.String)
		}
	}
}

func TestBuild_LockstepViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Catalog)
	}{
		{
			name:   "details missing for a binding",
			mutate: func(c *Catalog) { delete(c.Details, "mistral") },
		},
		{
			name: "details without a binding",
			mutate: func(c *Catalog) {
				c.Details["gpt-5"] = api.ModelInfo{Name: "GPT-5"}
			},
		},
		{
			name:   "default not registered",
			mutate: func(c *Catalog) { c.Default = "gpt-5" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := DefaultCatalog()
			tt.mutate(catalog)

			opts := testOptions()
			opts.Catalog = catalog
			_, err := Build(context.Background(), opts)
			assert.True(t, errors.Is(err, ErrLockstep), "got %v", err)
		})
	}
}

func TestBuild_UnknownVendorType(t *testing.T) {
	catalog := DefaultCatalog()
	catalog.Vendors = append(catalog.Vendors, Vendor{Name: "mystery", Type: "mystery"})

	opts := testOptions()
	opts.Catalog = catalog
	_, err := Build(context.Background(), opts)
	assert.Error(t, err)
}

func TestCheckLockstep(t *testing.T) {
	m := llm.Bind(nil, "x")
	handles := map[string]llm.Model{"a": m, "b": m}
	details := map[string]api.ModelInfo{"a": {}, "b": {}}

	assert.NoError(t, CheckLockstep(handles, details, []string{"a", "b"}, "a"))
	assert.ErrorIs(t, CheckLockstep(handles, details, []string{"a"}, "a"), ErrLockstep)
	assert.ErrorIs(t, CheckLockstep(handles, details, []string{"a", "a", "b"}, "a"), ErrLockstep)
	assert.ErrorIs(t, CheckLockstep(handles, details, []string{"a", "b"}, "c"), ErrLockstep)
	assert.ErrorIs(t, CheckLockstep(handles, map[string]api.ModelInfo{"a": {}}, []string{"a", "b"}, "a"), ErrLockstep)
}

func TestCatalogSecrets(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GROQ_API_KEY", "XAI_API_KEY"}, c.Secrets())

	v, ok := c.SecretOwner("GROQ_API_KEY")
	require.True(t, ok)
	assert.Equal(t, "groq", v.Name)

	_, ok = c.SecretOwner("CUSTOM_API_KEY")
	assert.False(t, ok)
	_, ok = c.SecretOwner("")
	assert.False(t, ok)
}
