// SPDX-License-Identifier: MIT

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func TestRecoverer_ReturnsJSON(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["error"])
	assert.Equal(t, rec.Header().Get(HeaderRequestID), body["requestId"])
}

func TestRecoverer_RepanicsOnAbort(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	h := RequestID(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id<script>")
	h.ServeHTTP(rec, req)
	got := rec.Header().Get(HeaderRequestID)
	assert.NotEqual(t, "bad id<script>", got)
	assert.Len(t, got, 36)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://dash.example"})(http.HandlerFunc(okHandler))

	t.Run("allowed origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://dash.example")
		h.ServeHTTP(rec, req)
		assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("unknown origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/insights", nil)
		req.Header.Set("Origin", "https://dash.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders("")(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, DefaultCSP, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestFormOriginGuard(t *testing.T) {
	h := FormOriginGuard([]string{"https://Trusted.example/", "*"})(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		method string
		header map[string]string
		want   int
	}{
		{"dashboard view", http.MethodGet, nil, http.StatusOK},
		{"head", http.MethodHead, nil, http.StatusOK},
		{"no origin", http.MethodPost, nil, http.StatusForbidden},
		{"no origin but same-origin fetch", http.MethodPost, map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusOK},
		{"dashboard origin", http.MethodPost, map[string]string{"Origin": "http://example.com"}, http.StatusOK},
		{"dashboard origin with default port", http.MethodPost, map[string]string{"Origin": "HTTP://Example.com:80"}, http.StatusOK},
		{"dashboard origin other port", http.MethodPost, map[string]string{"Origin": "http://example.com:8080"}, http.StatusForbidden},
		{"trusted origin", http.MethodPost, map[string]string{"Origin": "https://trusted.example"}, http.StatusOK},
		{"wildcard does not trust everyone", http.MethodPost, map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"malformed origin", http.MethodPost, map[string]string{"Origin": "javascript:alert(1)"}, http.StatusForbidden},
		{"referer fallback", http.MethodPost, map[string]string{"Referer": "http://example.com/?city=Berlin"}, http.StatusOK},
		{"null origin uses referer", http.MethodPost, map[string]string{"Origin": "null", "Referer": "https://evil.example/form"}, http.StatusForbidden},
		{"proxied https", http.MethodPost, map[string]string{"Origin": "https://example.com", "X-Forwarded-Proto": "https"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://example.com/", strings.NewReader("city=Berlin"))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), "forbidden_origin")
			}
		})
	}
}

func TestCanonicalOrigin(t *testing.T) {
	tests := map[string]string{
		"https://Example.com:443/path": "https://example.com",
		"http://127.0.0.1:8080":        "http://127.0.0.1:8080",
		"http://[::1]:80/":             "http://[::1]",
	}
	for in, want := range tests {
		got, ok := canonicalOrigin(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "example.com", "ftp://example.com", "://"} {
		_, ok := canonicalOrigin(bad)
		assert.False(t, ok, bad)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 2, WindowSize: time.Minute})(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestAPIRateLimit_Whitelist(t *testing.T) {
	h := APIRateLimit(true, 1, []string{"10.0.0.0/8", "192.0.2.1"})(http.HandlerFunc(okHandler))

	for _, addr := range []string{"10.1.2.3:1", "192.0.2.1:1"} {
		for range 3 {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = addr
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, addr)
		}
	}

	statuses := []int{}
	for range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.9:1"
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	assert.Equal(t, []int{200, 429}, statuses)
}

func TestAPIRateLimit_Disabled(t *testing.T) {
	h := APIRateLimit(false, 1, nil)(http.HandlerFunc(okHandler))
	for range 5 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestStack_RoutePatternAndHeaders(t *testing.T) {
	r := NewRouter(StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        "test",
		EnableLogging:         true,
	})
	var pattern string
	r.Get("/api/v1/insights/{id}", func(w http.ResponseWriter, r *http.Request) {
		pattern = chi.RouteContext(r.Context()).RoutePattern()
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/insights/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/v1/insights/{id}", pattern)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Security-Policy"), "script-src 'none'"))
}
