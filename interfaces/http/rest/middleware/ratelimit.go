package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"flowchart-backend/pkg/errors"
	"flowchart-backend/pkg/ratelimit"
)

// RateLimit rejects clients over their per-IP budget with 429.
// A nil limiter disables limiting.
func RateLimit(limiter *ratelimit.IPRateLimiter, errHandler *errors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("Rate limiter error", zap.Error(err))
			}
			if !allowed {
				errHandler.HandleStatus(w, r, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the peer address without its port. Forwarding headers only
// reach it when the router trusts them and installs RealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
