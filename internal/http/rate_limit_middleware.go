package httpx

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

type rateLimitKeyFunc func(req *http.Request) string

type rateLimitRule struct {
	name   string
	limit  int64
	window time.Duration
	key    rateLimitKeyFunc
}

var (
	ruleAuth      = rateLimitRule{name: "auth", limit: 20, window: time.Minute, key: rateLimitKeyIP}
	ruleUserRead  = rateLimitRule{name: "user_read", limit: 120, window: time.Minute, key: rateLimitKeyUser}
	ruleUserWrite = rateLimitRule{name: "user_write", limit: 60, window: time.Minute, key: rateLimitKeyUser}
	ruleWebhook   = rateLimitRule{name: "webhook", limit: 120, window: time.Minute, key: rateLimitKeyIP}
	ruleWebsocket = rateLimitRule{name: "ws", limit: 30, window: 30 * time.Second, key: rateLimitKeyUser}
)

func rateLimitKeyIP(req *http.Request) string {
	return "ip:" + clientIP(req)
}

// rateLimitKeyUser keys by authenticated user when the auth middleware
// already ran, falling back to client IP.
func rateLimitKeyUser(req *http.Request) string {
	if info, ok := authInfoFrom(req.Context()); ok {
		return fmt.Sprintf("user:%d", info.UserID)
	}
	return "ip:" + clientIP(req)
}

func (r *Router) withRateLimit(rule rateLimitRule, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		key := rule.name + ":" + rule.key(req)
		decision, err := r.limiter.Allow(req.Context(), key, rule.limit, rule.window)
		if err != nil {
			// Fail open: losing the limiter should not take the API down.
			r.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
			next(w, req)
			return
		}
		if !decision.allowed {
			retryAfter := max(int(time.Until(decision.windowEnd).Seconds()), 1)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
