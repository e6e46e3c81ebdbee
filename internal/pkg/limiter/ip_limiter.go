/*
Package limiter provides rate limiting keyed by client IP address.

It keeps one token bucket (rate.Limiter) per IP and runs a cleanup goroutine that
drops buckets which have refilled completely, so idle addresses do not accumulate.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/logx"
	"signalroom/internal/pkg/resp"

	"golang.org/x/time/rate"
)

const cleanupInterval = 3 * time.Minute

// IPRateLimiter implements a rate limiter keyed by client IP address.
type IPRateLimiter struct {
	// mu protects limits.
	mu sync.RWMutex

	// limits maps a client IP address to its token bucket.
	limits map[string]*rate.Limiter

	// r is the refill rate in events per second.
	r rate.Limit

	// b is the bucket size.
	b int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates an IPRateLimiter with rate r and burst b and starts
// its cleanup goroutine. Call Close to stop it.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.cleanUpVisitors()

	return i
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// Allow reports whether one more event from ip is allowed now.
func (i *IPRateLimiter) Allow(ip string) bool {
	return i.GetLimiter(ip).Allow()
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (i *IPRateLimiter) Close() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// cleanUpVisitors periodically removes buckets that are full again, i.e. IPs
// that have been idle for at least one refill period.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-ticker.C:
			i.mu.Lock()
			count := 0
			for ip, limiter := range i.limits {
				if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
					delete(i.limits, ip)
					count++
				}
			}
			remaining := len(i.limits)
			i.mu.Unlock()

			logx.Debug("Rate limiter cleanup finished.", "removed", count, "remaining", remaining)
		}
	}
}

// ClientIP extracts the host part of r.RemoteAddr. Run chi's RealIP middleware
// first when the server sits behind a proxy.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}

// Middleware rejects requests over the limit with ErrRateLimitExceeded (HTTP 429).
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		if !i.Allow(ip) {
			logx.Warn("Request rejected: rate limit exceeded.", "ip", logx.AnonymizeIP(ip), "path", r.URL.Path)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
