package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/chat-registry/internal/config"
	"github.com/nulzo/chat-registry/internal/httpclient"
	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/internal/llm/processing"
	"github.com/nulzo/chat-registry/pkg/api"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	APIVersion     = "2023-06-01"
	// DefaultMaxTokens is sent when the request leaves max_tokens unset; the
	// Messages API requires it.
	DefaultMaxTokens = 4096
)

func init() {
	llm.Register(string(llm.Anthropic), NewAdapter)
}

type Adapter struct {
	config config.ProviderConfig
	client *http.Client
}

func NewAdapter(config config.ProviderConfig) (llm.Provider, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	return &Adapter{
		config: config,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *Adapter) Name() string { return a.config.ID }
func (a *Adapter) Type() string { return string(llm.Anthropic) }

type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}
type Request struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   float64   `json:"temperature,omitempty"`
	TopP          float64   `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Stream        bool      `json:"stream,omitempty"`
}
type Response struct {
	ID         string    `json:"id"`
	Content    []Content `json:"content"`
	Model      string    `json:"model"`
	StopReason string    `json:"stop_reason"`
	Usage      Usage     `json:"usage"`
}
type Content struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}
type ImageSource struct {
	Type      string `json:"type"`       // "base64"
	MediaType string `json:"media_type"` // "image/jpeg"
	Data      string `json:"data"`
}
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
type StreamEvent struct {
	Type    string    `json:"type"`
	Message *Response `json:"message,omitempty"` // message_start
	Delta   *Delta    `json:"delta,omitempty"`
	Index   int       `json:"index,omitempty"`
	Usage   *Usage    `json:"usage,omitempty"` // message_delta
	Error   *apiError `json:"error,omitempty"`
}
type Delta struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	StopReason string `json:"stop_reason,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func (a *Adapter) toAnthropicReq(ctx context.Context, req *api.ChatRequest) Request {
	ar := Request{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	if ar.MaxTokens == 0 {
		ar.MaxTokens = DefaultMaxTokens
	}
	if req.Stop != nil {
		ar.StopSequences = req.Stop.Val
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == string(api.System) {
			system = append(system, m.Content.String())
			continue
		}

		var contentParts []Content
		if len(m.Content.Parts) == 0 && m.Content.Text != "" {
			contentParts = append(contentParts, Content{Type: "text", Text: m.Content.Text})
		}

		for _, part := range m.Content.Parts {
			switch {
			case part.Type == "text":
				contentParts = append(contentParts, Content{Type: "text", Text: part.Text})
			case part.Type == "image_url" && part.ImageURL != nil:
				imgData, err := processing.ProcessImageURL(ctx, a.client, part.ImageURL.URL)
				if err != nil {
					continue
				}
				contentParts = append(contentParts, Content{
					Type: "image",
					Source: &ImageSource{
						Type:      "base64",
						MediaType: imgData.MediaType,
						Data:      imgData.Data,
					},
				})
			}
		}

		if len(contentParts) > 0 {
			ar.Messages = append(ar.Messages, Message{Role: m.Role, Content: contentParts})
		}
	}
	ar.System = strings.Join(system, "\n")
	return ar
}

func (a *Adapter) headers() map[string]string {
	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": APIVersion,
	}
	if v, ok := a.config.Config["version"]; ok && v != "" {
		headers["anthropic-version"] = v
	}
	return headers
}

func (a *Adapter) url(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(a.config.BaseURL, "/"), path)
}

func (a *Adapter) handleUpstreamError(err error) error {
	var upstreamErr *httpclient.UpstreamError
	if !errors.As(err, &upstreamErr) {
		return api.ProviderError("anthropic request failed", err)
	}

	var env errorEnvelope
	if jsonErr := json.Unmarshal(upstreamErr.Body, &env); jsonErr != nil || env.Error.Message == "" {
		return api.NewError(
			upstreamErr.StatusCode,
			"Upstream Error",
			upstreamErr.Message(),
			api.WithLog(err),
		)
	}

	return api.NewError(
		upstreamErr.StatusCode,
		"Upstream Provider Error",
		env.Error.Message,
		api.WithExtension("provider", a.config.ID),
		api.WithExtension("upstream_type", env.Error.Type),
		api.WithLog(err),
	)
}

func (a *Adapter) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	ar := a.toAnthropicReq(ctx, req)

	var anthroResp Response
	if err := httpclient.SendRequest(ctx, a.client, http.MethodPost, a.url("messages"), a.headers(), ar, &anthroResp); err != nil {
		return nil, a.handleUpstreamError(err)
	}

	var text strings.Builder
	for _, c := range anthroResp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}

	return &api.ChatResponse{
		ID:      anthroResp.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   anthroResp.Model,
		Choices: []api.Choice{{
			Index: 0,
			Message: &api.ChatMessage{
				Role:    string(api.Assistant),
				Content: api.Content{Text: text.String()},
			},
			FinishReason: finishReason(anthroResp.StopReason),
		}},
		Usage: &api.ResponseUsage{
			PromptTokens:     anthroResp.Usage.InputTokens,
			CompletionTokens: anthroResp.Usage.OutputTokens,
			TotalTokens:      anthroResp.Usage.InputTokens + anthroResp.Usage.OutputTokens,
		},
	}, nil
}

func (a *Adapter) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	ch := make(chan api.StreamResult)
	ar := a.toAnthropicReq(ctx, req)
	ar.Stream = true

	go func() {
		defer close(ch)

		var (
			id, model  string
			created    = time.Now().Unix()
			inputUsage int
		)

		emit := func(choice *api.Choice, usage *api.ResponseUsage) error {
			resp := &api.ChatResponse{
				ID:      id,
				Object:  "chat.completion.chunk",
				Created: created,
				Model:   model,
				Choices: []api.Choice{},
				Usage:   usage,
			}
			if choice != nil {
				resp.Choices = append(resp.Choices, *choice)
			}
			select {
			case ch <- api.StreamResult{Response: resp}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := httpclient.StreamRequest(ctx, a.client, http.MethodPost, a.url("messages"), a.headers(), ar, func(line string) error {
			if !strings.HasPrefix(line, "data: ") {
				return nil
			}

			var event StreamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				return nil
			}

			switch event.Type {
			case "message_start":
				if event.Message != nil {
					id, model = event.Message.ID, event.Message.Model
					inputUsage = event.Message.Usage.InputTokens
				}
				return emit(&api.Choice{Delta: &api.ChatMessage{Role: string(api.Assistant)}}, nil)
			case "content_block_delta":
				if event.Delta != nil && event.Delta.Type == "text_delta" {
					return emit(&api.Choice{Delta: &api.ChatMessage{Content: api.Content{Text: event.Delta.Text}}}, nil)
				}
			case "message_delta":
				var usage *api.ResponseUsage
				if event.Usage != nil {
					usage = &api.ResponseUsage{
						PromptTokens:     inputUsage,
						CompletionTokens: event.Usage.OutputTokens,
						TotalTokens:      inputUsage + event.Usage.OutputTokens,
					}
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					return emit(&api.Choice{
						Delta:        &api.ChatMessage{},
						FinishReason: finishReason(event.Delta.StopReason),
					}, usage)
				}
				if usage != nil {
					return emit(nil, usage)
				}
			case "error":
				if event.Error != nil {
					return api.NewError(http.StatusBadGateway, "Upstream Provider Error", event.Error.Message,
						api.WithExtension("provider", a.config.ID),
						api.WithExtension("upstream_type", event.Error.Type))
				}
			}
			return nil
		})

		if err != nil && ctx.Err() == nil {
			var problem *api.Problem
			if !errors.As(err, &problem) {
				err = a.handleUpstreamError(err)
			}
			ch <- api.StreamResult{Err: err}
		}
	}()

	return ch, nil
}

func (a *Adapter) Health(ctx context.Context) error {
	if err := httpclient.SendRequest(ctx, a.client, http.MethodGet, a.url("models?limit=1"), a.headers(), nil, nil); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

func finishReason(stop string) string {
	switch stop {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	}
	return stop
}
