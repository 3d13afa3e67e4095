// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/ManuGH/salesinsights/internal/config"
	"github.com/ManuGH/salesinsights/internal/sales"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `Date,Product,City,Total Items,Total Cost
2024-01-05,Widget,Berlin,2,100.50
2024-01-20,Gadget,Hamburg,1,40
2024-02-03,Widget,Berlin,3,150
2024-03-01,Gadget,Berlin,4,1200
2024-03-15,Gizmo,Munich,1,5
`

func testDataset(t *testing.T) *sales.Dataset {
	t.Helper()
	ds, err := sales.Load(strings.NewReader(testCSV), sales.LoadOptions{})
	require.NoError(t, err)
	return ds
}

// bullets counts the "- " lines under a "## title" heading.
func bullets(text, title string) int {
	_, rest, ok := strings.Cut(text, "## "+title+"\n")
	if !ok {
		return -1
	}
	if next := strings.Index(rest, "\n## "); next >= 0 {
		rest = rest[:next]
	}
	n := 0
	for _, line := range strings.Split(rest, "\n") {
		if strings.HasPrefix(line, "- ") {
			n++
		}
	}
	return n
}

func TestHeuristic_Sections(t *testing.T) {
	ov := sales.Analyze(testDataset(t), sales.AnalyzeOptions{})
	text, err := NewHeuristic().Generate(context.Background(), Input{Overview: ov})
	require.NoError(t, err)

	assert.Equal(t, 5, bullets(text, "Key Insights"))
	assert.Equal(t, 3, bullets(text, "Potential Risks"))
	assert.Equal(t, 3, bullets(text, "Opportunities for Growth"))
	assert.Equal(t, 5, bullets(text, "Actionable Recommendations"))

	assert.Contains(t, text, "Gadget is the best-selling product with $1,240.00")
	assert.Contains(t, text, "Berlin leads all cities")
	assert.Contains(t, text, "2024-03 was the strongest month")
	assert.Contains(t, text, "Heavy reliance on Gadget")
}

func TestHeuristic_Deterministic(t *testing.T) {
	ov := sales.Analyze(testDataset(t), sales.AnalyzeOptions{})
	h := NewHeuristic()
	a, err := h.Generate(context.Background(), Input{Overview: ov})
	require.NoError(t, err)
	b, err := h.Generate(context.Background(), Input{Overview: ov})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHeuristic_EmptyDataset(t *testing.T) {
	text, err := NewHeuristic().Generate(context.Background(), Input{})
	require.NoError(t, err)
	assert.Contains(t, text, "No sales transactions")
}

func TestHeuristic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHeuristic().Generate(ctx, Input{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  Total revenue: $1.00\n\n")
	assert.True(t, strings.HasPrefix(p, "You are a senior sales analyst.\n"))
	assert.Contains(t, p, "1. 5 Key Insights about sales performance")
	assert.Contains(t, p, "4. 5 Actionable Recommendations for the business")
	assert.True(t, strings.HasSuffix(p, "Sales KPI Summary:\nTotal revenue: $1.00\n"))
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	g, err := NewGenerator(ctx, config.InsightsConfig{Provider: config.ProviderAuto}, http.DefaultClient, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "heuristic", g.Name())

	g, err = NewGenerator(ctx, config.InsightsConfig{OpenAIKey: "sk"}, http.DefaultClient, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", g.Name())
	assert.Equal(t, config.DefaultOpenAIModel, g.Model())
	_, guardedOK := g.(*guarded)
	assert.True(t, guardedOK, "remote providers sit behind a breaker")

	_, err = NewGenerator(ctx, config.InsightsConfig{Provider: config.ProviderOpenAI}, http.DefaultClient, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewGenerator(ctx, config.InsightsConfig{Provider: "llama"}, http.DefaultClient, zerolog.Nop())
	assert.Error(t, err)
}

func TestHintFor(t *testing.T) {
	assert.Equal(t, "Make sure your OPENAI_API_KEY is set in your environment.", hintFor("openai", ErrMissingAPIKey))
	assert.Empty(t, hintFor("openai", ErrEmptyResponse))
}
