// Package middleware wraps the HTTP mux with cross-cutting request handling.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RequestLogger logs one line per request with method, path, status, and
// duration. Query endpoints can take tens of seconds when the model is slow,
// so the duration field is the first thing to check when latency complaints
// come in. A nil logger disables logging.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info("request served",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// statusRecorder captures the response status for the log line. Handlers in
// this service write the envelope with an explicit WriteHeader only for
// non-200 responses, so the zero state defaults to 200.
type statusRecorder struct {
	http.ResponseWriter
	status        int
	headerWritten bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.headerWritten {
		return
	}
	sr.status = code
	sr.headerWritten = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.headerWritten {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}
