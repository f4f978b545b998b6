// Package insight asks a hosted language model for a short comment on the
// month's figures. Callers always get renderable text back.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisabled is returned by the generator used when no provider is configured.
	ErrDisabled = errors.New("insight provider not configured")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrQuotaExceeded covers provider-side rate limits and local throttling.
	ErrQuotaExceeded = errors.New("insight quota exceeded")
)

const (
	maxOutputTokens = 150
	temperature     = 0.7
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Disabled is the generator used when INSIGHT_PROVIDER is none.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) { return "", ErrDisabled }
func (Disabled) Name() string                                     { return "none" }

// Config selects and configures a provider.
type Config struct {
	Provider    string
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
}

// NewGenerator builds the generator named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return Disabled{}, nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, errors.New("openai: missing API key")
		}
		return NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, ""), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, errors.New("gemini: missing API key")
		}
		return NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown insight provider %q", cfg.Provider)
	}
}
