package llm

import (
	"context"

	"github.com/nulzo/chat-registry/internal/llm/processing"
	"github.com/nulzo/chat-registry/pkg/api"
)

// Model is a callable handle for one upstream model of one provider.
type Model interface {
	// Upstream is the vendor-side model name requests are sent with.
	Upstream() string
	Provider() Provider
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error)
}

type boundModel struct {
	provider Provider
	upstream string
}

// Bind returns a handle that sends requests to provider with the model name
// replaced by upstream. The caller's request is not modified.
func Bind(provider Provider, upstream string) Model {
	return &boundModel{provider: provider, upstream: upstream}
}

func (m *boundModel) Upstream() string   { return m.upstream }
func (m *boundModel) Provider() Provider { return m.provider }

func (m *boundModel) with(req *api.ChatRequest) *api.ChatRequest {
	clone := *req
	clone.Model = m.upstream
	return &clone
}

func (m *boundModel) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	return m.provider.Chat(ctx, m.with(req))
}

func (m *boundModel) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	return m.provider.Stream(ctx, m.with(req))
}

type reasoningModel struct {
	Model
	tag string
}

// WithReasoning wraps m so that <tag>...</tag> segments of the output are
// moved from the message content into its Reasoning field.
func WithReasoning(m Model, tag string) Model {
	if tag == "" {
		tag = processing.DefaultTag
	}
	return &reasoningModel{Model: m, tag: tag}
}

func (m *reasoningModel) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	resp, err := m.Model.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	for i := range resp.Choices {
		msg := resp.Choices[i].Message
		if msg == nil || msg.Content.Parts != nil {
			continue
		}
		content, reasoning := processing.ExtractTagged(msg.Content.Text, m.tag)
		msg.Content = api.Content{Text: content}
		msg.Reasoning += reasoning
	}
	return resp, nil
}

func (m *reasoningModel) Stream(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	in, err := m.Model.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan api.StreamResult)
	go func() {
		defer close(out)

		parsers := make(map[int]*processing.StreamParser)
		var last *api.ChatResponse

		send := func(r api.StreamResult) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for res := range in {
			if res.Err != nil || res.Response == nil {
				if !send(res) {
					return
				}
				continue
			}

			for i := range res.Response.Choices {
				choice := &res.Response.Choices[i]
				if choice.Delta == nil || choice.Delta.Content.Parts != nil {
					continue
				}
				p, ok := parsers[choice.Index]
				if !ok {
					p = processing.NewStreamParser(m.tag)
					parsers[choice.Index] = p
				}
				content, reasoning := p.Process(choice.Delta.Content.Text)
				choice.Delta.Content = api.Content{Text: content}
				choice.Delta.Reasoning += reasoning
			}
			last = res.Response
			if !send(res) {
				return
			}
		}

		if tail := flushChunk(last, parsers); tail != nil {
			send(api.StreamResult{Response: tail})
		}
	}()

	return out, nil
}

// flushChunk builds a final chunk from text the parsers still hold, or nil.
func flushChunk(last *api.ChatResponse, parsers map[int]*processing.StreamParser) *api.ChatResponse {
	if last == nil {
		return nil
	}

	var choices []api.Choice
	for idx, p := range parsers {
		content, reasoning := p.Flush()
		if content == "" && reasoning == "" {
			continue
		}
		choices = append(choices, api.Choice{
			Index: idx,
			Delta: &api.ChatMessage{
				Role:      string(api.Assistant),
				Content:   api.Content{Text: content},
				Reasoning: reasoning,
			},
		})
	}
	if len(choices) == 0 {
		return nil
	}

	return &api.ChatResponse{
		ID:      last.ID,
		Created: last.Created,
		Model:   last.Model,
		Object:  last.Object,
		Choices: choices,
	}
}
