// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ManuGH/salesinsights/internal/log"
)

// FormOriginGuard rejects dashboard form submissions that come from another
// site. A submission passes when its Origin (or, lacking that, its Referer)
// names the dashboard itself or one of trusted. Read-only methods always pass.
func FormOriginGuard(trusted []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(trusted)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isReadOnly(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if reason := policy.reject(r); reason != "" {
				logger := log.WithComponentFromContext(r.Context(), "dashboard")
				logger.Warn().
					Str(log.FieldEvent, "dashboard.origin_rejected").
					Str(log.FieldMethod, r.Method).
					Str(log.FieldRemoteAddr, r.RemoteAddr).
					Str("origin", r.Header.Get("Origin")).
					Msg(reason)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden_origin","detail":"` + reason + `"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isReadOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

type originPolicy struct {
	trusted map[string]struct{}
}

func newOriginPolicy(trusted []string) originPolicy {
	p := originPolicy{trusted: make(map[string]struct{}, len(trusted))}
	for _, o := range trusted {
		if o == "*" {
			// A wildcard is fine for CORS reads but never for form posts.
			continue
		}
		if norm, ok := canonicalOrigin(o); ok {
			p.trusted[norm] = struct{}{}
		}
	}
	return p
}

// reject returns why r must not reach the form handler, or "" to accept it.
func (p originPolicy) reject(r *http.Request) string {
	source := r.Header.Get("Origin")
	if source == "" || source == "null" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		if r.Header.Get("Sec-Fetch-Site") == "same-origin" {
			return ""
		}
		return "submission carries no origin"
	}
	origin, ok := canonicalOrigin(source)
	if !ok {
		return "submission origin is malformed"
	}
	if origin == dashboardOrigin(r) {
		return ""
	}
	if _, ok := p.trusted[origin]; ok {
		return ""
	}
	return "cross-site submission refused"
}

// dashboardOrigin is the origin the browser saw when it loaded the page.
func dashboardOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	if r.Host == "" {
		return ""
	}
	origin, _ := canonicalOrigin(scheme + "://" + r.Host)
	return origin
}

// canonicalOrigin reduces a URL to lower-case scheme://host[:port], dropping
// the port when it is the scheme default.
func canonicalOrigin(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host, true
}
