// Package ai generates pedagogical code feedback through heterogeneous
// completion providers normalized behind a single Completer interface.
package ai

import (
	"context"

	"github.com/rs/zerolog"
)

// FallbackMessage is returned whenever a provider yields empty content.
const FallbackMessage = "No se pudo generar feedback."

// Sections is the structured prompt assembled for a feedback request.
type Sections struct {
	Context     string
	Instruction string
	Input       string
	UserPrompt  string
}

// SystemMessage joins the non-user sections into the provider system turn.
func (s Sections) SystemMessage() string {
	return s.Context + "\n\n" + s.Instruction + "\n\n" + s.Input
}

// UserMessage returns the user turn, falling back to the input section.
func (s Sections) UserMessage() string {
	if s.UserPrompt != "" {
		return s.UserPrompt
	}
	return s.Input
}

// Request describes one completion call. Temperature nil means "use the
// provider's default" (0.7 for OpenAI, 1.0 elsewhere).
type Request struct {
	Sections    Sections
	Model       string
	Temperature *float32
}

// Completer is implemented once per provider.
type Completer interface {
	// Complete runs the prompt and returns the feedback text.
	Complete(ctx context.Context, req Request) (string, error)
	// Provider names the backing service, e.g. "OpenAI".
	Provider() string
}

// Factory builds a Completer bound to a decrypted API key.
type Factory func(apiKey string) (Completer, error)

// Registry maps provider names to completer factories. Dispatch happens
// by lookup, one entry per provider.
type Registry map[string]Factory

// DefaultRegistry wires the three supported providers.
func DefaultRegistry(logger zerolog.Logger) Registry {
	return Registry{
		"OpenAI": func(apiKey string) (Completer, error) {
			return NewOpenAICompleter(OpenAIConfig{APIKey: apiKey, Logger: logger})
		},
		"DeepSeek": func(apiKey string) (Completer, error) {
			return NewDeepSeekCompleter(DeepSeekConfig{APIKey: apiKey, Logger: logger})
		},
		"Gemini": func(apiKey string) (Completer, error) {
			return NewGeminiCompleter(GeminiConfig{APIKey: apiKey, Logger: logger})
		},
	}
}
