package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
)

// suspiciousPatterns are matched case-insensitively against the decoded
// query string
var suspiciousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "data:",
	"eval(", "alert(", "onload=", "onerror=", "onclick=",
	"union select", "drop table", "insert into",
}

// SuspiciousPattern returns the first suspicious pattern found in s
func SuspiciousPattern(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, p := range suspiciousPatterns {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// RequestAudit logs requests whose query looks like an injection attempt and
// responses denied with 401 or 403. It never blocks a request.
func RequestAudit(logger *zap.Logger) Middleware {
	base := logging.OrNop(logger).Named("security")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := url.QueryUnescape(r.URL.RawQuery)
			if err != nil {
				raw = r.URL.RawQuery
			}
			if pattern, ok := SuspiciousPattern(raw); ok {
				base.Warn("suspicious request pattern",
					zap.String("pattern", pattern),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("client_ip", ClientIP(r)),
				)
			}

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			if sw.status == http.StatusUnauthorized || sw.status == http.StatusForbidden {
				base.Warn("access denied",
					zap.Int("status", sw.status),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("client_ip", ClientIP(r)),
				)
			}
		})
	}
}
