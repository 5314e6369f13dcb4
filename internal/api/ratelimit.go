package api

import (
	"log/slog"
	"net/http"

	domainerrors "github.com/holocronapp/holocron-server/internal/errors"
	"github.com/holocronapp/holocron-server/internal/http/response"
	"github.com/holocronapp/holocron-server/internal/ratelimit"
)

// RateLimitMiddleware rate limits requests by client IP and answers 429 when
// the limit is exceeded. Health checks are exempt.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				response.HandleError(w, domainerrors.RateLimited("Too many requests. Please try again later."), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
