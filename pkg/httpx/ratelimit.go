package httpx

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// LoginLimit mirrors the API's login throttle: 10 requests per minute.
var LoginLimit = RateLimitConfig{
	RequestsPerWindow: 10,
	Window:            time.Minute,
	Burst:             10,
}

// NewLimiter builds a token bucket for cfg.
func NewLimiter(cfg RateLimitConfig) *rate.Limiter {
	if cfg.RequestsPerWindow <= 0 || cfg.Window <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	every := cfg.Window / time.Duration(cfg.RequestsPerWindow)
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerWindow
	}
	return rate.NewLimiter(rate.Every(every), burst)
}

// RateLimit rejects requests with 429 once limiter runs dry. The limiter is
// shared by every caller of the wrapped handler.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "60")
				WriteError(w, http.StatusTooManyRequests, "too many requests", "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
