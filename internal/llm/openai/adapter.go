package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/pkg/api"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	GroqBaseURL    = "https://api.groq.com/openai/v1"
	XAIBaseURL     = "https://api.x.ai/v1"
)

func init() {
	llm.Register(string(llm.OpenAI), factory(string(llm.OpenAI), DefaultBaseURL))
	llm.Register(string(llm.Groq), factory(string(llm.Groq), GroqBaseURL))
	llm.Register(string(llm.XAI), factory(string(llm.XAI), XAIBaseURL))
}

func factory(kind, baseURL string) llm.Factory {
	return func(cfg config.ProviderConfig) (llm.Provider, error) {
		return New(cfg, kind, baseURL)
	}
}

// Adapter talks to any OpenAI-compatible chat completions endpoint.
type Adapter struct {
	config config.ProviderConfig
	kind   string
	client sdk.Client
}

// New builds an adapter reporting kind as its type. defaultBaseURL is used
// when the config carries none.
func New(cfg config.ProviderConfig, kind, defaultBaseURL string) (*Adapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s provider %q: base url is required", kind, cfg.ID)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/"),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
	}
	if kind != string(llm.OpenAI) {
		// the client picks up OPENAI_ORG_ID and OPENAI_PROJECT_ID from the
		// environment; those belong to OpenAI only
		opts = append(opts,
			option.WithHeaderDel("OpenAI-Organization"),
			option.WithHeaderDel("OpenAI-Project"),
		)
	}
	if org, ok := cfg.Config["organization"]; ok && org != "" {
		opts = append(opts, option.WithOrganization(org))
	}

	return &Adapter{
		config: cfg,
		kind:   kind,
		client: sdk.NewClient(opts...),
	}, nil
}

func (a *Adapter) Name() string {
	return a.config.ID
}

func (a *Adapter) Type() string {
	return a.kind
}

// BaseURL is the endpoint requests are sent to.
func (a *Adapter) BaseURL() string {
	return a.config.BaseURL
}

func (a *Adapter) handleUpstreamError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return api.ProviderError(fmt.Sprintf("%s request failed", a.kind), err)
	}

	return api.NewError(
		apiErr.StatusCode,
		"Upstream Provider Error",
		apiErr.Message,
		api.WithExtension("provider", a.config.ID),
		api.WithLog(err),
	)
}

func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	params, err := toParams(req)
	if err != nil {
		return nil, api.BadRequestError(err.Error())
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.handleUpstreamError(err)
	}

	return fromCompletion(resp), nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	params, err := toParams(req)
	if err != nil {
		return nil, api.BadRequestError(err.Error())
	}
	params.StreamOptions = sdk.ChatCompletionStreamOptionsParam{IncludeUsage: sdk.Bool(true)}

	ch := make(chan api.StreamResult)

	go func() {
		defer close(ch)

		stream := a.client.Chat.Completions.NewStreaming(ctx, params)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			select {
			case ch <- api.StreamResult{Response: fromChunk(chunk)}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil && ctx.Err() == nil {
			ch <- api.StreamResult{Err: a.handleUpstreamError(err)}
		}
	}()

	return ch, nil
}

func (a *Adapter) Health(ctx context.Context) error {
	if _, err := a.client.Models.List(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func toParams(req *api.ChatRequest) (sdk.ChatCompletionNewParams, error) {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch api.Role(m.Role) {
		case api.System:
			messages = append(messages, sdk.SystemMessage(m.Content.String()))
		case api.Assistant:
			messages = append(messages, sdk.AssistantMessage(m.Content.String()))
		case api.User:
			if m.Content.Parts == nil {
				messages = append(messages, sdk.UserMessage(m.Content.Text))
				continue
			}
			parts := make([]sdk.ChatCompletionContentPartUnionParam, 0, len(m.Content.Parts))
			for _, p := range m.Content.Parts {
				switch {
				case p.Type == "text":
					parts = append(parts, sdk.TextContentPart(p.Text))
				case p.Type == "image_url" && p.ImageURL != nil:
					parts = append(parts, sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{URL: p.ImageURL.URL}))
				}
			}
			messages = append(messages, sdk.UserMessage(parts))
		default:
			return sdk.ChatCompletionNewParams{}, fmt.Errorf("unsupported role %q", m.Role)
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(req.MaxTokens))
	}
	if req.Temperature != 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if req.TopP != 0 {
		params.TopP = sdk.Float(req.TopP)
	}
	if req.Seed != 0 {
		params.Seed = sdk.Int(int64(req.Seed))
	}
	if req.User != "" {
		params.User = sdk.String(req.User)
	}
	if req.Stop != nil && len(req.Stop.Val) > 0 {
		params.Stop = sdk.ChatCompletionNewParamsStopUnion{OfStringArray: req.Stop.Val}
	}
	return params, nil
}

func fromCompletion(resp *sdk.ChatCompletion) *api.ChatResponse {
	out := &api.ChatResponse{
		ID:                resp.ID,
		Created:           resp.Created,
		Model:             resp.Model,
		Object:            "chat.completion",
		SystemFingerprint: resp.SystemFingerprint,
		Usage: &api.ResponseUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, c := range resp.Choices {
		text := c.Message.Content
		if text == "" {
			text = c.Message.Refusal
		}
		out.Choices = append(out.Choices, api.Choice{
			Index:        int(c.Index),
			FinishReason: string(c.FinishReason),
			Message: &api.ChatMessage{
				Role:    string(api.Assistant),
				Content: api.Content{Text: text},
			},
		})
	}
	return out
}

func fromChunk(chunk sdk.ChatCompletionChunk) *api.ChatResponse {
	out := &api.ChatResponse{
		ID:                chunk.ID,
		Created:           chunk.Created,
		Model:             chunk.Model,
		Object:            "chat.completion.chunk",
		SystemFingerprint: chunk.SystemFingerprint,
		Choices:           []api.Choice{},
	}
	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &api.ResponseUsage{
			PromptTokens:     int(chunk.Usage.PromptTokens),
			CompletionTokens: int(chunk.Usage.CompletionTokens),
			TotalTokens:      int(chunk.Usage.TotalTokens),
		}
	}
	for _, c := range chunk.Choices {
		out.Choices = append(out.Choices, api.Choice{
			Index:        int(c.Index),
			FinishReason: string(c.FinishReason),
			Delta: &api.ChatMessage{
				Role:    string(c.Delta.Role),
				Content: api.Content{Text: c.Delta.Content},
			},
		})
	}
	return out
}
