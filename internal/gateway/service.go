// Package gateway passes chat requests through to the registry's handles.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nulzo/chat-registry/internal/llm"
	"github.com/nulzo/chat-registry/internal/registry"
	"github.com/nulzo/chat-registry/pkg/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/nulzo/chat-registry/internal/gateway"

// Registries hands out pinned registry generations.
type Registries interface {
	Acquire() (*registry.Registry, func())
	Current() *registry.Registry
}

// Service defines the business logic for serving requests from the registry.
type Service interface {
	ListModels(ctx context.Context) api.ModelList
	GetModel(ctx context.Context, id string) (api.ModelEntry, error)
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)
	StreamChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error)
}

type service struct {
	logger     *zap.Logger
	registries Registries
	tracer     trace.Tracer
}

func NewService(logger *zap.Logger, registries Registries) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		logger:     logger,
		registries: registries,
		tracer:     otel.Tracer(tracerName),
	}
}

func (s *service) ListModels(_ context.Context) api.ModelList {
	reg := s.registries.Current()
	return api.ModelList{
		Object:  "list",
		Default: reg.Default(),
		Data:    reg.Infos(),
	}
}

func (s *service) GetModel(_ context.Context, id string) (api.ModelEntry, error) {
	info, ok := s.registries.Current().Info(id)
	if !ok {
		return api.ModelEntry{}, api.NotFoundError(fmt.Sprintf("model '%s' is not registered", id))
	}
	return api.ModelEntry{ID: id, ModelInfo: info}, nil
}

// selectModel resolves req.Model, filling in the registry default when the
// request names none.
func selectModel(reg *registry.Registry, req *api.ChatRequest) (llm.Model, error) {
	if req.Model == "" {
		req.Model = reg.Default()
	}
	m, ok := reg.Model(req.Model)
	if !ok {
		return nil, unknownModel(req.Model)
	}
	return m, nil
}

func (s *service) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	reg, release := s.registries.Acquire()
	defer release()

	m, err := selectModel(reg, req)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "gateway.Chat", trace.WithAttributes(
		attribute.String("model.id", req.Model),
		attribute.String("model.upstream", m.Upstream()),
		attribute.String("provider.type", m.Provider().Type()),
	))
	defer span.End()

	start := time.Now()
	resp, err := m.Chat(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		s.logger.Warn("Chat request failed",
			zap.String("model", req.Model),
			zap.String("provider", m.Provider().Name()),
			zap.Error(err),
		)
		return nil, upstreamError(err)
	}

	s.logger.Debug("Chat request completed",
		zap.String("model", req.Model),
		zap.String("provider", m.Provider().Name()),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// StreamChat pins the registry generation until the returned channel is
// drained and closed.
func (s *service) StreamChat(ctx context.Context, req *api.ChatRequest) (<-chan api.StreamResult, error) {
	reg, release := s.registries.Acquire()

	m, err := selectModel(reg, req)
	if err != nil {
		release()
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "gateway.StreamChat", trace.WithAttributes(
		attribute.String("model.id", req.Model),
		attribute.String("model.upstream", m.Upstream()),
		attribute.String("provider.type", m.Provider().Type()),
	))

	streamChan, err := m.Stream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream failed")
		span.End()
		release()
		s.logger.Warn("Stream request failed", zap.String("model", req.Model), zap.Error(err))
		return nil, upstreamError(err)
	}

	outChan := make(chan api.StreamResult)

	go func() {
		defer release()
		defer span.End()
		defer close(outChan)

		start := time.Now()
		var chunks int
		var ttft time.Duration

		for result := range streamChan {
			if result.Err != nil {
				span.RecordError(result.Err)
				span.SetStatus(codes.Error, "stream interrupted")
			} else if chunks == 0 {
				ttft = time.Since(start)
			}
			chunks++

			select {
			case outChan <- result:
			case <-ctx.Done():
				// keep draining so the upstream goroutine can exit
				for range streamChan {
				}
				return
			}
		}

		span.SetAttributes(
			attribute.Int("stream.chunks", chunks),
			attribute.Int64("stream.ttft_ms", ttft.Milliseconds()),
		)
		s.logger.Debug("Stream completed",
			zap.String("model", req.Model),
			zap.Int("chunks", chunks),
			zap.Duration("ttft", ttft),
			zap.Duration("latency", time.Since(start)),
		)
	}()

	return outChan, nil
}

func unknownModel(id string) *api.Problem {
	return api.BadRequestError(fmt.Sprintf("model '%s' is not registered", id))
}

// upstreamError leaves problems from the adapters untouched and wraps
// everything else as a 502.
func upstreamError(err error) error {
	var problem *api.Problem
	if errors.As(err, &problem) {
		return err
	}
	return api.ProviderError("Upstream provider request failed", err)
}
