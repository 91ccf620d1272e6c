package httphandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/reviewboard/internal/application"
	"github.com/ericfisherdev/reviewboard/internal/domain/model"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	viewerKey
	routeKey
)

// RequestIDHeader carries the request ID on requests and responses.
const RequestIDHeader = "X-Request-ID"

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// requestIDMiddleware tags each request with an ID, reusing the caller's
// X-Request-ID when it is a valid UUID.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// requestIDFrom returns the request ID stored by requestIDMiddleware.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", requestIDFrom(r.Context()),
		)
	})
}

// metricsMiddleware records request counts and latency per route pattern.
// Requests rejected before routing, such as failed logins, are labeled
// "unmatched".
func metricsMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		route := new(string)

		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), routeKey, route)))

		label := *route
		if label == "" {
			label = "unmatched"
		}
		m.requests.WithLabelValues(label, r.Method, strconv.Itoa(sw.status)).Inc()
		m.duration.WithLabelValues(label, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeCapture copies the pattern the mux matched into the slot left by
// metricsMiddleware. It must wrap the mux directly.
func routeCapture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		if route, ok := r.Context().Value(routeKey).(*string); ok {
			*route = r.Pattern
		}
	})
}

// recoveryMiddleware recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("panic recovered",
					"panic", v,
					"path", r.URL.Path,
					"request_id", requestIDFrom(r.Context()),
				)
				writeError(w, http.StatusInternalServerError, 0, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves HTTP Basic credentials to a viewer. Requests without
// credentials continue anonymously; bad credentials are rejected.
func authMiddleware(auth *application.AuthService, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := auth.Authenticate(r.Context(), username, password)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), viewerKey, user)))
	})
}

// viewerFrom returns the authenticated user, or nil for anonymous requests.
func viewerFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(viewerKey).(*model.User)
	return user
}
