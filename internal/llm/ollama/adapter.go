package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/httpclient"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/internal/llm/openai"
	"github.com/nulzo/chat-registry/pkg/api"
)

// MinVersion is the first Ollama release serving the OpenAI-compatible
// /v1 endpoints.
const MinVersion = "0.1.24"

func init() {
	llm.Register(string(llm.Ollama), NewAdapter)
}

type Adapter struct {
	*openai.Adapter // chat and streaming go through the /v1 compatibility API
	root            string
	client          *http.Client
}

// NewAdapter takes the Ollama host as BaseURL, with or without the /v1
// suffix. Ollama ignores the API key.
func NewAdapter(cfg config.ProviderConfig) (llm.Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama provider %q: host is required", cfg.ID)
	}
	root := strings.TrimSuffix(strings.TrimRight(cfg.BaseURL, "/"), "/v1")
	cfg.BaseURL = root + "/v1"

	oaAdapter, err := openai.New(cfg, string(llm.Ollama), "")
	if err != nil {
		return nil, err
	}

	return &Adapter{
		Adapter: oaAdapter,
		root:    root,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *Adapter) Type() string {
	return string(llm.Ollama)
}

// Host is the Ollama root URL, without the /v1 suffix.
func (a *Adapter) Host() string {
	return a.root
}

// Version reports the running Ollama version.
func (a *Adapter) Version(ctx context.Context) (*version.Version, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := httpclient.SendRequest(ctx, a.client, http.MethodGet, a.root+"/api/version", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("ollama version error: %w", err)
	}

	v, err := version.NewVersion(resp.Version)
	if err != nil {
		return nil, fmt.Errorf("ollama reported unparsable version %q: %w", resp.Version, err)
	}
	return v, nil
}

func (a *Adapter) Health(ctx context.Context) error {
	current, err := a.Version(ctx)
	if err != nil {
		return err
	}

	minimum := version.Must(version.NewVersion(MinVersion))
	if current.LessThan(minimum) {
		return fmt.Errorf("ollama %s is older than the minimum supported %s", current, minimum)
	}
	return nil
}

// Tags lists the models pulled on the Ollama host.
func (a *Adapter) Tags(ctx context.Context) ([]string, error) {
	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	if err := httpclient.SendRequest(ctx, a.client, http.MethodGet, a.root+"/api/tags", nil, nil, &resp); err != nil {
		var upstreamErr *httpclient.UpstreamError
		if errors.As(err, &upstreamErr) {
			return nil, api.NewError(
				upstreamErr.StatusCode,
				"Ollama Registry Error",
				upstreamErr.Message(),
				api.WithLog(err),
			)
		}
		return nil, fmt.Errorf("ollama tags error: %w", err)
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
