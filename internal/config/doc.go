// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the salesinsights configuration.
//
// Precedence is ENV > YAML file > defaults. The YAML file is parsed strictly:
// unknown keys and trailing documents are rejected. Service variables use the
// SALES_ prefix; provider credentials are read from their conventional names
// (OPENAI_API_KEY, GEMINI_API_KEY or GOOGLE_API_KEY).
package config
