package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const openAIDefaultTemperature = 0.7

// OpenAIConfig defines configuration options for the OpenAI completer.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Logger  zerolog.Logger
}

// OpenAICompleter implements Completer against the OpenAI chat completion API.
type OpenAICompleter struct {
	client *openai.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAICompleter builds a completer using the provided configuration.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		tracer: otel.Tracer("github.com/uca-sae/sae-go-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_completer").Logger(),
	}, nil
}

// Provider names the backing service.
func (o *OpenAICompleter) Provider() string { return "OpenAI" }

// Complete sends the prompt to OpenAI and returns the feedback text.
func (o *OpenAICompleter) Complete(parent context.Context, req Request) (string, error) {
	ctx, span := o.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", req.Model),
	))
	defer span.End()

	temperature := float32(openAIDefaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temperature,
		TopP:        0.95,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Sections.SystemMessage()},
			{Role: openai.ChatMessageRoleUser, Content: req.Sections.UserMessage()},
		},
	})
	completionDuration.WithLabelValues(o.Provider(), req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(o.Provider(), req.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai complete: %w", err)
	}

	if len(resp.Choices) == 0 {
		return FallbackMessage, nil
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return FallbackMessage, nil
	}

	return content, nil
}
