// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string // optional endpoint override
	Model           string
	MaxOutputTokens int
	HTTPClient      *http.Client
}

// GeminiClient generates insights with the Gemini API.
type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
}

// NewGeminiClient creates a Gemini-backed generator.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:          client,
		model:           cfg.Model,
		maxOutputTokens: int32(cfg.MaxOutputTokens), // #nosec G115 -- validated as a small positive int
	}, nil
}

func (g *GeminiClient) Name() string  { return "gemini" }
func (g *GeminiClient) Model() string { return g.model }

// Generate sends the prompt as a single user turn.
func (g *GeminiClient) Generate(ctx context.Context, in Input) (string, error) {
	var gc *genai.GenerateContentConfig
	if g.maxOutputTokens > 0 {
		gc = &genai.GenerateContentConfig{MaxOutputTokens: g.maxOutputTokens}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(in.Prompt), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return "", fmt.Errorf("GenAI generate failed: %w: %v", ErrUnauthorized, err)
		}
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
