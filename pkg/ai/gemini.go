package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

const (
	geminiDefaultTemperature = 1.0
	geminiTopP               = 0.95
	geminiTopK               = 40
	geminiMaxOutputTokens    = 8192
)

// GeminiConfig defines configuration options for the Gemini completer.
type GeminiConfig struct {
	APIKey string
	Logger zerolog.Logger
	// ClientOptions extends the default API-key option, used by tests to
	// point the client at a fake endpoint.
	ClientOptions []option.ClientOption
}

// GeminiCompleter talks to Google's generation API. Unlike the chat
// providers it sends a single combined prompt and reads candidate parts.
type GeminiCompleter struct {
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiCompleter builds a completer using the provided configuration.
func NewGeminiCompleter(cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	return &GeminiCompleter{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/uca-sae/sae-go-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("component", "gemini_completer").Logger(),
	}, nil
}

// Provider names the backing service.
func (g *GeminiCompleter) Provider() string { return "Gemini" }

// Complete sends the prompt to Gemini and returns the feedback text.
func (g *GeminiCompleter) Complete(parent context.Context, req Request) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.complete", trace.WithAttributes(
		attribute.String("model", req.Model),
	))
	defer span.End()

	opts := append([]option.ClientOption{option.WithAPIKey(g.cfg.APIKey)}, g.cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	temperature := float32(geminiDefaultTemperature)
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	model := client.GenerativeModel(req.Model)
	model.SetTemperature(temperature)
	model.SetTopP(geminiTopP)
	model.SetTopK(geminiTopK)
	model.SetMaxOutputTokens(geminiMaxOutputTokens)

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Sections.SystemMessage()))
	completionDuration.WithLabelValues(g.Provider(), req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(g.Provider(), req.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("gemini complete: %w", err)
	}

	content := strings.TrimSpace(geminiResponseText(resp))
	if content == "" {
		return FallbackMessage, nil
	}

	return content, nil
}

func geminiResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	builder := strings.Builder{}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
	}

	return builder.String()
}
