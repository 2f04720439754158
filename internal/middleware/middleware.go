// Package middleware contains http middleware for the api server.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"
)

type contextKey string

const logCtxKey contextKey = "log"

const requestIDHeader = "X-Request-ID"

// RequestID assigns a request id to every request and puts a request-scoped
// logrus entry into the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, id)

		l := logrus.WithField("request_id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), logCtxKey, l)))
	})
}

// Log returns the request-scoped logrus entry.
func Log(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(logCtxKey).(*logrus.Entry); ok {
		return l
	}

	return logrus.NewEntry(logrus.StandardLogger())
}

// Logger writes an access log line for every request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		Log(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"ip":       realip.FromRequest(r),
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request processed")
	})
}

// Recoverer turns panics into 500 responses and reports them to sentry when
// it is configured.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				sentry.CurrentHub().Recover(rvr)
				Log(r.Context()).Errorf("recovered from panic: %+v", rvr)

				w.WriteHeader(http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
