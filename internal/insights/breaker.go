// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/salesinsights/internal/resilience"
)

// ErrProviderUnavailable is returned while a provider's breaker is open.
var ErrProviderUnavailable = errors.New("provider temporarily unavailable")

// guarded stops calling a remote provider after repeated failures.
type guarded struct {
	Generator
	cb *resilience.CircuitBreaker
}

// WithBreaker wraps gen so that consecutive provider failures open a circuit
// breaker. Credential errors and empty answers do not trip it; they are not
// outages.
func WithBreaker(gen Generator, cb *resilience.CircuitBreaker) Generator {
	return &guarded{Generator: gen, cb: cb}
}

// IsOutage reports whether err indicates the provider itself is failing.
func IsOutage(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrUnauthorized), errors.Is(err, ErrEmptyResponse):
		return false
	}
	return true
}

func (g *guarded) Generate(ctx context.Context, in Input) (string, error) {
	var text string
	err := g.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = g.Generator.Generate(ctx, in)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", fmt.Errorf("%w: retry in %s", ErrProviderUnavailable, g.cb.RetryAfter().Round(time.Second))
	}
	return text, err
}
