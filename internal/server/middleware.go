package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"beltche-mcp/internal/apperrors"
	"beltche-mcp/pkg/logging"
)

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests logs method, path, status and duration of every request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Info("HTTP", "Request completed: method=%s path=%s status=%d duration=%dms",
			r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
	})
}

// recoverPanics turns a handler panic into a 500 JSON error.
func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err := fmt.Errorf("panic: %v", v)
				logging.Error("HTTP", err, "Unexpected error on %s %s\n%s", r.Method, r.URL.Path, debug.Stack())
				apperrors.WriteJSON(w, err, s.dev())
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects clients that exceed their request budget with 429.
func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.opts.TrustProxy)
		if !s.limiter.Allow(ip) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", s.limiter.RetryAfterSeconds()))
			apperrors.WriteJSON(w, apperrors.RateLimit(), s.dev())
			return
		}
		next.ServeHTTP(w, r)
	})
}
