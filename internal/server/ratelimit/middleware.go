package ratelimit

import (
	"net"
	"net/http"
	"strconv"
)

// WriteHeaders sets the rate limit headers for result. Retry-After is only set
// when the request is rejected.
func WriteHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(max(int(result.RetryAfter.Seconds()), 1)))
	}
}

// Middleware calls reject for clients over their limit instead of next. The
// headers are already written when reject runs.
//
// Clients are keyed by remote IP. The health check is never limited.
func Middleware(l *Limiter, reject func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}
			res := l.Allow(clientIP(r))
			WriteHeaders(w, res)
			if !res.Allowed {
				reject(w, r)
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
