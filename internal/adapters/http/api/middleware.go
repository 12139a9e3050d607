package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/metrics"
)

// HTTP status code constants.
const (
	statusBadRequest       = 400
	statusNotFound         = 404
	statusMethodNotAllowed = 405
	statusInternalError    = 500
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds IDs accepted from clients.
const maxRequestIDLen = 128

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= statusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, getErrorType(wrapped.statusCode))
		}
	}
}

// RequestID propagates X-Request-ID, generating one when the client sent
// none, and stores it in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// CORS sets the allow headers for origin and answers preflight requests.
func CORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, "+RequestIDHeader)
		if origin != "*" {
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusMethodNotAllowed:
		return "method_not_allowed"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
