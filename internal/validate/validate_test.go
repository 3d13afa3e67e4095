// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"valid https", "https://api.openai.com/v1", []string{"http", "https"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
		{"with port", "http://example.com:8080", []string{"http"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)

			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":8080", false},
		{"127.0.0.1:9090", false},
		{"", true},
		{"localhost", true},
		{"localhost:", true},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("addr", tt.addr)
		if got := !v.IsValid(); got != tt.wantErr {
			t.Errorf("ListenAddr(%q) error=%v, want %v", tt.addr, got, tt.wantErr)
		}
	}
}

func TestValidator_RangesAndDurations(t *testing.T) {
	v := New()
	v.Range("top", 5, 1, 50)
	v.FloatRange("rate", 0.5, 0, 1)
	v.PositiveDuration("ttl", time.Minute)
	if !v.IsValid() {
		t.Fatalf("unexpected errors: %v", v.Err())
	}

	v.Range("top", 0, 1, 50)
	v.FloatRange("rate", 1.5, 0, 1)
	v.PositiveDuration("ttl", 0)
	if got := len(v.Errors()); got != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", got, v.Err())
	}
}

func TestValidator_OneOf(t *testing.T) {
	v := New()
	v.OneOf("provider", "openai", []string{"openai", "gemini", "heuristic"})
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}
	v.OneOf("provider", "bard", []string{"openai", "gemini", "heuristic"})
	if v.IsValid() {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidator_ReadableFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(file, []byte("date\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := New()
	v.ReadableFile("csv", file)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}

	v.ReadableFile("csv", filepath.Join(dir, "missing.csv"))
	v.ReadableFile("csv", dir)
	if got := len(v.Errors()); got != 2 {
		t.Fatalf("expected 2 errors, got %d", got)
	}
}

func TestValidator_Directory_Creates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	v := New()
	v.Directory("dataDir", dir, false)
	if !v.IsValid() {
		t.Fatalf("unexpected error: %v", v.Err())
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory to be created, err=%v", err)
	}

	v.Directory("dataDir", "../escape", false)
	if v.IsValid() {
		t.Fatal("expected traversal error")
	}
}

func TestValidationError_Aggregates(t *testing.T) {
	v := New()
	v.NotEmpty("a", " ")
	v.Positive("b", 0)
	v.NonNegative("c", -1)

	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(verr.Errors()))
	}
	if strings.Count(err.Error(), ";") != 2 {
		t.Errorf("expected joined message, got %q", err.Error())
	}
}
