// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package insights turns the KPI summary of a sales dataset into a natural
// language analysis: key insights, risks, opportunities and recommendations.
package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/resilience"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/rs/zerolog"
)

// Input is everything a provider may draw on. Remote providers only send
// Prompt; the heuristic provider works from the structured Overview.
type Input struct {
	Prompt   string
	Summary  string
	Overview sales.Overview
}

// Generator produces insight text for a prompt.
type Generator interface {
	Name() string
	Model() string
	Generate(ctx context.Context, in Input) (string, error)
}

var (
	// ErrGeneration classifies every provider failure surfaced by Service.
	ErrGeneration = errors.New("insight generation failed")

	// ErrMissingAPIKey is returned when a remote provider has no credential.
	ErrMissingAPIKey = errors.New("API key not configured")

	// ErrUnauthorized is returned when the provider rejects the credential.
	ErrUnauthorized = errors.New("provider rejected credentials")

	// ErrEmptyResponse is returned when the provider answered without text.
	ErrEmptyResponse = errors.New("provider returned no text")
)

// GenerationError wraps a provider failure with an operator hint.
type GenerationError struct {
	Provider string
	Model    string
	Hint     string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate insights with %s/%s: %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// hintFor suggests a fix for credential problems.
func hintFor(provider string, err error) string {
	if !errors.Is(err, ErrMissingAPIKey) && !errors.Is(err, ErrUnauthorized) {
		return ""
	}
	switch provider {
	case config.ProviderGemini:
		return "Make sure your GEMINI_API_KEY is set in your environment."
	default:
		return "Make sure your OPENAI_API_KEY is set in your environment."
	}
}

// NewGenerator builds the provider selected by cfg (resolving "auto").
// Remote providers sit behind a circuit breaker.
func NewGenerator(ctx context.Context, cfg config.InsightsConfig, httpClient *http.Client, logger zerolog.Logger) (Generator, error) {
	gen, err := newProvider(ctx, cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	if gen.Name() == config.ProviderHeuristic {
		return gen, nil
	}
	cb := resilience.NewCircuitBreaker("insights_"+gen.Name(), cfg.BreakerThreshold, cfg.BreakerResetTimeout,
		resilience.WithFailurePredicate(IsOutage))
	return WithBreaker(gen, cb), nil
}

func newProvider(ctx context.Context, cfg config.InsightsConfig, httpClient *http.Client, logger zerolog.Logger) (Generator, error) {
	switch provider := cfg.ResolvedProvider(); provider {
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(OpenAIConfig{
			APIKey:            cfg.ResolvedAPIKey(),
			BaseURL:           cfg.ResolvedBaseURL(),
			Model:             cfg.ResolvedModel(),
			Timeout:           cfg.Timeout,
			MaxRetries:        cfg.MaxRetries,
			RequestsPerMinute: cfg.RequestsPerMinute,
			MaxOutputTokens:   cfg.MaxOutputTokens,
			HTTPClient:        httpClient,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:          cfg.ResolvedAPIKey(),
			BaseURL:         cfg.BaseURL,
			Model:           cfg.ResolvedModel(),
			MaxOutputTokens: cfg.MaxOutputTokens,
			HTTPClient:      httpClient,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderHeuristic:
		return NewHeuristic(), nil
	default:
		return nil, fmt.Errorf("unknown insights provider %q", provider)
	}
}

// unavailable stands in for a provider that could not be constructed so the
// dashboard keeps serving; every Generate call reports the cause.
type unavailable struct {
	provider string
	model    string
	err      error
}

// Unavailable returns a Generator whose calls always fail with err.
func Unavailable(provider, model string, err error) Generator {
	return &unavailable{provider: provider, model: model, err: err}
}

func (u *unavailable) Name() string  { return u.provider }
func (u *unavailable) Model() string { return u.model }

func (u *unavailable) Generate(context.Context, Input) (string, error) {
	return "", u.err
}
