package httpapi

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/makerden/doorlog/internal/logging"
)

// wrap assembles the middleware chain. Request IDs are attached first so
// every inner log line carries one; recovery sits innermost so a panicking
// handler still yields a completion log and a metrics sample.
func wrap(logger logging.Logger, next http.Handler) http.Handler {
	return requestIDMiddleware(logger, observeMiddleware(recoverMiddleware(next)))
}

// requestIDMiddleware tags each request with a generated ID and puts a
// request-scoped logger on the context.
func requestIDMiddleware(logger logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.With().Str("request_id", uuid.NewString()).Logger()
		next.ServeHTTP(w, r.WithContext(reqLog.WithContext(r.Context())))
	})
}

// observeMiddleware emits one completion log line plus the request counter
// and duration samples per call. Metrics are labeled with the matched route
// pattern rather than the raw path to keep cardinality bounded.
func observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = r.URL.Path
		}
		status := strconv.Itoa(rec.status)
		metricHTTPRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		metricHTTPRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())

		logging.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request completed")
	})
}

// recoverMiddleware converts a handler panic into a 500 response instead of
// letting it kill the connection.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				logging.Ctx(r.Context()).Error().
					Bytes("stack", debug.Stack()).
					Msgf("http panic recovered: %v", p)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the handler chain.
// A handler that writes a body without calling WriteHeader implies 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
