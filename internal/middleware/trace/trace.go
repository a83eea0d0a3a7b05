// Package trace tags each request with an ID and logs its start and end.
package trace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	applog "financas/internal/log"
)

// HeaderRequestID carries an inbound request ID, echoed back on the response.
const HeaderRequestID = "X-Request-ID"

// Middleware logs each request through a request-scoped logger stored in
// the request context.
func Middleware(base *applog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = GenerateRequestID()
			}
			w.Header().Set(HeaderRequestID, requestID)

			logger := base.WithComponent(applog.ComponentHTTP).With(
				applog.FieldRequestID, requestID,
				applog.FieldClientIP, ClientIP(r),
			)
			ctx := applog.IntoContext(r.Context(), logger)
			r = r.WithContext(ctx)

			logger.DebugContext(ctx, "HTTP request started",
				applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.Header.Get("User-Agent")).ToSlice()...)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			if rw.statusCode >= 400 && rw.statusCode < 500 {
				level = slog.LevelWarn
			} else if rw.statusCode >= 500 {
				level = slog.LevelError
			}
			fields := applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, "").
				WithHTTPResponse(rw.statusCode, time.Since(start).Milliseconds())
			logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// ClientIP returns the first X-Forwarded-For hop, or the remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
