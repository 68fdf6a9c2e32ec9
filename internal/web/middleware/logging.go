package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inkwell-dev/inkwell/internal/logging"
	webcontext "github.com/inkwell-dev/inkwell/internal/web/context"
)

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	Logger *zap.Logger
	// SkipPaths are served without an access log line
	SkipPaths []string
}

// Logging attaches a request-scoped logger to the context and writes one
// access log line per request.
func Logging(logger *zap.Logger) Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: logger, SkipPaths: []string{"/healthz", "/metrics"}})
}

// LoggingWithConfig creates a logging middleware with custom configuration
func LoggingWithConfig(config LoggingConfig) Middleware {
	base := logging.OrNop(config.Logger)
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := base.With(zap.String("request_id", webcontext.GetRequestID(r.Context())))
			r = r.WithContext(logging.WithContext(r.Context(), reqLogger))

			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			if skip[r.URL.Path] {
				return
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
				zap.Int("bytes", sw.bytes),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			}
			if u, ok := webcontext.GetCurrentUser(r.Context()); ok {
				fields = append(fields, zap.Int64("user_id", u.ID))
			}

			lvl := zapcore.InfoLevel
			switch {
			case sw.status >= 500:
				lvl = zapcore.ErrorLevel
			case sw.status >= 400:
				lvl = zapcore.WarnLevel
			}
			if ce := reqLogger.Check(lvl, "request"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}
