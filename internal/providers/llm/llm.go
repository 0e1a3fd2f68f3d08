package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyCompletion is returned when the model answered with no text.
var ErrEmptyCompletion = errors.New("llm returned empty response")

type Provider interface {
	// Complete returns the full text answer for a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
	Close() error
}

type Config struct {
	Provider string // gemini|vertex|openai; empty disables generation

	Model   string
	Timeout time.Duration

	GeminiAPIKey string

	VertexProject  string
	VertexLocation string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

// New returns (nil, nil) when no provider is configured so callers fall back
// to canned questions and evaluations.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		g, err := NewGeminiAPI(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "vertex":
		v, err := NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.Model)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil
		}
		model := cfg.OpenAIModel
		if cfg.Model != "" {
			model = cfg.Model
		}
		return NewOpenAI(OpenAIConfig{
			BaseURL:        cfg.OpenAIBaseURL,
			APIKey:         cfg.OpenAIAPIKey,
			Model:          model,
			RequestTimeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func joinParts(parts []string) (string, error) {
	out := strings.TrimSpace(strings.Join(parts, ""))
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}
