package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/inkwell-dev/inkwell/internal/web/auth"
)

// DefaultCSP is the Content-Security-Policy sent with every response
var DefaultCSP = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self'",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data:",
	"font-src 'self'",
	"connect-src 'self'",
	"frame-src 'none'",
	"object-src 'none'",
	"base-uri 'self'",
	"form-action 'self'",
	"upgrade-insecure-requests",
}, "; ")

// CSPReportURI receives violation reports
const CSPReportURI = "/csp-report"

// SecurityConfig holds configuration for SecurityHeaders
type SecurityConfig struct {
	CSP string
	// HSTSMaxAge enables Strict-Transport-Security when positive (seconds)
	HSTSMaxAge int
	// NoStorePrefixes are path prefixes whose responses must not be cached
	NoStorePrefixes []string
}

// DefaultSecurityConfig returns the policy used outside production
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		CSP:             DefaultCSP,
		NoStorePrefixes: []string{"/api/admin/", "/api/library/"},
	}
}

// SecurityHeaders sets the browser hardening headers before the handler runs
func SecurityHeaders(config SecurityConfig) Middleware {
	hsts := ""
	if config.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(config.HSTSMaxAge) + "; includeSubDomains; preload"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if config.CSP != "" {
				h.Set("Content-Security-Policy", config.CSP)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}

			for _, prefix := range config.NoStorePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
					h.Set("Pragma", "no-cache")
					h.Set("Expires", "0")
					break
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CSPReporting appends a report-uri directive for staff principals. It must
// run after Authenticate and SecurityHeaders.
func CSPReporting() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := auth.CurrentPrincipal(r.Context()); ok && p.IsStaff {
				csp := w.Header().Get("Content-Security-Policy")
				if csp != "" && !strings.Contains(csp, "report-uri") {
					w.Header().Set("Content-Security-Policy", csp+"; report-uri "+CSPReportURI)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
