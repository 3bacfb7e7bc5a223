// Package middleware provides HTTP middleware functions for the API server
package middleware

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// RateLimiter creates a middleware that limits requests per second
func RateLimiter(rps, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				rateLimited.Inc()
				w.Header().Set("Retry-After", retryAfter(rps))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter is the whole number of seconds until a token is available again
func retryAfter(rps int) string {
	if rps <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(rps))))
}
