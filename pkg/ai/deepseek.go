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

const (
	deepSeekBaseURL            = "https://api.deepseek.com"
	deepSeekDefaultTemperature = 1.0
	deepSeekReasonerModel      = "deepseek-reasoner"
)

// DeepSeekConfig defines configuration options for the DeepSeek completer.
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Logger  zerolog.Logger
}

// DeepSeekCompleter talks to DeepSeek's OpenAI-compatible chat API.
type DeepSeekCompleter struct {
	client *openai.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDeepSeekCompleter builds a completer using the provided configuration.
func NewDeepSeekCompleter(cfg DeepSeekConfig) (*DeepSeekCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek api key is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = deepSeekBaseURL
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &DeepSeekCompleter{
		client: openai.NewClientWithConfig(config),
		tracer: otel.Tracer("github.com/uca-sae/sae-go-api/pkg/ai/deepseek"),
		logger: cfg.Logger.With().Str("component", "deepseek_completer").Logger(),
	}, nil
}

// Provider names the backing service.
func (d *DeepSeekCompleter) Provider() string { return "DeepSeek" }

// Complete sends the prompt to DeepSeek. The reasoner model takes the
// whole prompt in the system turn and no user turn.
func (d *DeepSeekCompleter) Complete(parent context.Context, req Request) (string, error) {
	ctx, span := d.tracer.Start(parent, "deepseek.complete", trace.WithAttributes(
		attribute.String("model", req.Model),
	))
	defer span.End()

	temperature := float32(deepSeekDefaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.Sections.SystemMessage()},
	}
	if req.Model != deepSeekReasonerModel {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Sections.UserMessage(),
		})
	}

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temperature,
		TopP:        0.95,
		Messages:    messages,
	})
	completionDuration.WithLabelValues(d.Provider(), req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(d.Provider(), req.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("deepseek complete: %w", err)
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
