package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const MaxCronRequestsPerMinute = 60

// RateCounter counts requests per client in the current window.
type RateCounter interface {
	IncrementClientRateLimit(ctx context.Context, client string) (int64, error)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// AccessLog logs every request with its status and duration.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("client", clientIP(r)),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			}

			if rec.status >= http.StatusInternalServerError {
				logger.Error("request failed", fields...)
			} else {
				logger.Info("request handled", fields...)
			}
		})
	}
}

// Recovery turns a handler panic into a 500.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rv),
						zap.Stack("stack"),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects clients over limit requests per window. A nil counter or
// a counter error lets the request through.
func RateLimit(counter RateCounter, limit int64, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIP(r)

			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			count, err := counter.IncrementClientRateLimit(ctx, client)
			if err != nil {
				logger.Error("failed to check rate limit",
					zap.String("client", client),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if count > limit {
				logger.Warn("rate limit exceeded",
					zap.String("client", client),
					zap.Int64("count", count),
				)
				writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"error":   "too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
