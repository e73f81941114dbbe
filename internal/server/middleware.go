// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestIDHeader carries the request id back to the caller
const RequestIDHeader = "X-Request-ID"

// statusRecorder remembers the status code and whether anything was written
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.status = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// requestLogger attaches a request-scoped zerolog logger carrying a fresh
// request id to the context and logs the start and end of every request
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := uuid.NewString()
			ctx := base.With().Str("request_id", requestID).Logger().WithContext(r.Context())
			w.Header().Set(RequestIDHeader, requestID)

			log.Ctx(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_ip", r.RemoteAddr).
				Msg("incoming request")

			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				log.Ctx(ctx).Info().
					Int("status", rec.status).
					Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
					Msg("request completed")
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

// panicHandler turns a handler panic into a 500 response
func panicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if err := recover(); err != nil {
				log.Ctx(r.Context()).Error().
					Str("panic", fmt.Sprintf("%v", err)).
					Str("stack_trace", string(debug.Stack())).
					Msg("panic occurred")

				if !rec.written {
					sendError(r.Context(), rec, http.StatusInternalServerError, "unable to process request")
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
