// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/salesinsights/internal/metrics"
	"github.com/ManuGH/salesinsights/internal/platform/httpx"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultOpenAITimeout = 60 * time.Second
	defaultBackoff       = time.Second
	maxErrorBody         = 4 << 10
	maxResponseBody      = 4 << 20
)

// OpenAIConfig configures the Responses API client.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int // 0 disables client-side throttling
	MaxOutputTokens   int
	HTTPClient        *http.Client  // defaults to an otelhttp-instrumented client
	Backoff           time.Duration // base delay, doubled per attempt
}

// OpenAIClient calls the OpenAI Responses API (POST {baseURL}/responses).
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// APIError is a non-retryable error response from the provider.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("API request failed with status %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

type responsesRequest struct {
	Model           string `json:"model"`
	Input           string `json:"input"`
	MaxOutputTokens int    `json:"max_output_tokens,omitempty"`
}

type responsesReply struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIClient validates cfg and builds a client.
func NewOpenAIClient(cfg OpenAIConfig, logger zerolog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-4.1-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpenAITimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpx.NewProviderClient(cfg.Timeout)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &OpenAIClient{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.With().Str("provider", "openai").Logger(),
	}, nil
}

func (c *OpenAIClient) Name() string  { return "openai" }
func (c *OpenAIClient) Model() string { return c.cfg.Model }

// Generate sends the prompt and returns the first output_text of the first
// message in the response. 429 and 5xx answers are retried with exponential
// backoff, honouring Retry-After.
func (c *OpenAIClient) Generate(ctx context.Context, in Input) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(responsesRequest{
		Model:           c.cfg.Model,
		Input:           in.Prompt,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.Backoff << (attempt - 1)
			if ra := retryAfter(lastErr); ra > delay {
				delay = ra
			}
			if err := sleep(ctx, delay); err != nil {
				return "", fmt.Errorf("retry aborted: %w (last error: %v)", err, lastErr)
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limiter: %w", err)
			}
		}

		text, err := c.do(ctx, body)
		if err == nil {
			c.logger.Debug().
				Str("event", "insights.openai.completed").
				Str("model", c.cfg.Model).
				Int("attempt", attempt+1).
				Dur("duration", time.Since(start)).
				Int("response_len", len(text)).
				Msg("responses call completed")
			return text, nil
		}

		var re *retryableError
		if !errors.As(err, &re) {
			return "", err
		}
		lastErr = err
		metrics.IncProviderRetry(c.Name(), re.reason)
		c.logger.Warn().
			Err(err).
			Str("event", "insights.openai.retry").
			Int("attempt", attempt+1).
			Msg("retryable provider failure")
	}
	return "", fmt.Errorf("max retries exceeded: %w", unwrapRetryable(lastErr))
}

func (c *OpenAIClient) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &retryableError{reason: "transport", err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var wrapped struct {
			Error *apiErrorBody `json:"error"`
		}
		if json.Unmarshal(raw, &wrapped) == nil && wrapped.Error != nil {
			apiErr.Message, apiErr.Type = wrapped.Error.Message, wrapped.Error.Type
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", &retryableError{reason: "rate_limited", err: apiErr, after: parseRetryAfter(resp.Header.Get("Retry-After"))}
		case resp.StatusCode >= 500:
			return "", &retryableError{reason: "server_error", err: apiErr, after: parseRetryAfter(resp.Header.Get("Retry-After"))}
		default:
			return "", apiErr
		}
	}

	var reply responsesReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&reply); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if reply.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Type: reply.Error.Type, Message: reply.Error.Message}
	}
	return firstOutputText(reply)
}

func firstOutputText(reply responsesReply) (string, error) {
	for _, item := range reply.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" || part.Type == "" {
				if text := strings.TrimSpace(part.Text); text != "" {
					return text, nil
				}
			}
		}
	}
	return "", ErrEmptyResponse
}

type retryableError struct {
	reason string
	err    error
	after  time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func unwrapRetryable(err error) error {
	var re *retryableError
	if errors.As(err, &re) {
		return re.err
	}
	return err
}

func retryAfter(err error) time.Duration {
	var re *retryableError
	if errors.As(err, &re) {
		return re.after
	}
	return 0
}

// parseRetryAfter understands the delta-seconds form; HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	const ceiling = 60
	if secs > ceiling {
		secs = ceiling
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
