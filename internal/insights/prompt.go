// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package insights

import "strings"

const promptHeader = `You are a senior sales analyst.

Based on the following sales KPI summary, provide:
1. 5 Key Insights about sales performance
2. 3 Potential Risks or concerns
3. 3 Opportunities for growth
4. 5 Actionable Recommendations for the business

Be concise, use bullet points, and keep the language clear for non-technical stakeholders.

Sales KPI Summary:
`

// BuildPrompt wraps a KPI summary in the analyst instructions.
func BuildPrompt(summary string) string {
	return promptHeader + strings.TrimSpace(summary) + "\n"
}
