package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tourguide/internal/domain"
	"github.com/kailas-cloud/tourguide/internal/metrics"
)

// Generator runs chat completions against an OpenAI-compatible endpoint.
// It implements domain.Completer and domain.Streamer.
type Generator struct {
	client *openai.Client
	logger *zap.Logger
}

// NewGenerator creates a chat completion client.
func NewGenerator(cfg ClientConfig, logger *zap.Logger) *Generator {
	return &Generator{client: newClient(cfg), logger: logger}
}

// Complete returns the full text of a non-streaming completion.
func (g *Generator) Complete(
	ctx context.Context, messages []domain.ChatMessage, params domain.GenerationParams,
) (string, error) {
	req := buildRequest(messages, params)

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	metrics.GenerationRequestDuration.WithLabelValues(params.Model, "complete").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(params.Model, "complete", "error").Inc()
		return "", apiError("generation", err, domain.ErrGenerationFailed)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(params.Model, "complete", "error").Inc()
		return "", fmt.Errorf("completion has no choices: %w", domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(params.Model, "complete", "success").Inc()
	g.logger.Debug("Completion finished",
		zap.String("model", params.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Stream opens a streaming completion. The caller must Close the returned stream.
func (g *Generator) Stream(
	ctx context.Context, messages []domain.ChatMessage, params domain.GenerationParams,
) (domain.FragmentStream, error) {
	req := buildRequest(messages, params)
	req.Stream = true

	start := time.Now()
	s, err := g.client.CreateChatCompletionStream(ctx, req)
	metrics.GenerationRequestDuration.WithLabelValues(params.Model, "stream").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(params.Model, "stream", "error").Inc()
		return nil, apiError("generation", err, domain.ErrGenerationFailed)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(params.Model, "stream", "success").Inc()
	return &fragmentStream{stream: s, model: params.Model}, nil
}

func buildRequest(messages []domain.ChatMessage, params domain.GenerationParams) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		Messages:    msgs,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}
	if params.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

// fragmentStream adapts a go-openai stream to domain.FragmentStream.
type fragmentStream struct {
	stream *openai.ChatCompletionStream
	model  string
	once   sync.Once
}

// Recv returns the next non-empty content delta, or io.EOF when the stream ends.
func (f *fragmentStream) Recv() (string, error) {
	for {
		resp, err := f.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", apiError("generation stream", err, domain.ErrGenerationFailed)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		metrics.GenerationFragmentsTotal.WithLabelValues(f.model).Inc()
		return resp.Choices[0].Delta.Content, nil
	}
}

func (f *fragmentStream) Close() error {
	var err error
	f.once.Do(func() { err = f.stream.Close() })
	return err
}
