package llm

import (
	"context"

	"github.com/nulzo/chat-registry/pkg/api"
)

type ProviderName string

const (
	OpenAI    ProviderName = "openai"
	Anthropic ProviderName = "anthropic"
	Groq      ProviderName = "groq"
	XAI       ProviderName = "xai"
	Ollama    ProviderName = "ollama"
)

// Provider is a configured client for one vendor. The request's Model field
// is passed upstream as-is.
type Provider interface {
	Name() string
	Type() string // e.g., "openai", "anthropic"
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error)
}

// HealthChecker is implemented by providers that can probe their upstream.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// TagLister is implemented by providers that can list the models installed
// on their host.
type TagLister interface {
	Tags(ctx context.Context) ([]string, error)
}
