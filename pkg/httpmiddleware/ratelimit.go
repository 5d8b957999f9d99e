package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitRule caps the requests sharing a key to Max per sliding Window.
type RateLimitRule struct {
	// Name identifies the rule in the X-RateLimit-Scope header of rejections.
	Name   string
	Max    int
	Window time.Duration
	// Key buckets requests, for example by client IP or cart session. An
	// empty key exempts the request from this rule.
	Key func(*http.Request) string
}

// RateLimitConfig configures RateLimit. A request must pass every rule.
type RateLimitConfig struct {
	Rules []RateLimitRule
	// Skip exempts requests such as health probes from all rules.
	Skip func(*http.Request) bool
}

// window approximates a sliding window from two fixed ones: the previous
// count is weighted by how much of it the sliding window still covers.
type window struct {
	prev  float64
	curr  float64
	start time.Time
}

func (w *window) advance(now time.Time, size time.Duration) {
	switch elapsed := now.Sub(w.start); {
	case elapsed >= 2*size:
		w.prev, w.curr = 0, 0
		w.start = now.Truncate(size)
	case elapsed >= size:
		w.prev, w.curr = w.curr, 0
		w.start = w.start.Add(size)
	}
}

func (w *window) estimate(now time.Time, size time.Duration) float64 {
	covered := 1 - float64(now.Sub(w.start))/float64(size)
	return w.prev*max(covered, 0) + w.curr
}

type verdict struct {
	rule      *RateLimitRule
	remaining int
	resetAt   time.Time
	allowed   bool
}

type rateLimiter struct {
	rules []RateLimitRule
	skip  func(*http.Request) bool
	now   func() time.Time

	mu      sync.Mutex
	buckets []map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{skip: cfg.Skip, now: time.Now}
	for _, rule := range cfg.Rules {
		if rule.Max <= 0 || rule.Window <= 0 || rule.Key == nil {
			continue
		}
		rl.rules = append(rl.rules, rule)
		rl.buckets = append(rl.buckets, make(map[string]*window))
	}
	return rl
}

// take counts the request against every rule it has a key for, unless one
// of them is exhausted, in which case nothing is counted. The verdict
// describes the rule closest to its limit.
func (rl *rateLimiter) take(keys []string) verdict {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	var (
		v       = verdict{remaining: math.MaxInt, allowed: true}
		touched = make([]*window, 0, len(rl.rules))
	)
	for i := range rl.rules {
		if keys[i] == "" {
			continue
		}
		rule := &rl.rules[i]
		w, ok := rl.buckets[i][keys[i]]
		if !ok {
			w = &window{start: now.Truncate(rule.Window)}
			rl.buckets[i][keys[i]] = w
		}
		w.advance(now, rule.Window)

		used := w.estimate(now, rule.Window)
		resetAt := w.start.Add(rule.Window)
		if used >= float64(rule.Max) {
			return verdict{rule: rule, resetAt: resetAt}
		}
		if left := int(float64(rule.Max) - used - 1); left < v.remaining {
			v.rule, v.remaining, v.resetAt = rule, max(left, 0), resetAt
		}
		touched = append(touched, w)
	}
	for _, w := range touched {
		w.curr++
	}
	return v
}

// sweep drops buckets idle for two full windows.
func (rl *rateLimiter) sweep() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for i, rule := range rl.rules {
		for key, w := range rl.buckets[i] {
			if now.Sub(w.start) >= 2*rule.Window {
				delete(rl.buckets[i], key)
			}
		}
	}
}

func (rl *rateLimiter) sweepEvery(ctx context.Context) {
	if len(rl.rules) == 0 {
		return
	}
	interval := rl.rules[0].Window
	for _, rule := range rl.rules[1:] {
		interval = min(interval, rule.Window)
	}
	ticker := time.NewTicker(2 * interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// RateLimit enforces cfg's rules with sliding windows. Stale buckets are
// swept in the background until ctx is done. Rejections get a 429 API error
// with Retry-After and X-RateLimit-Scope. Limited responses carry the
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset headers of
// the tightest rule.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go rl.sweepEvery(ctx)
	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(rl.rules) == 0 || (rl.skip != nil && rl.skip(r)) {
			next.ServeHTTP(w, r)
			return
		}

		keys := make([]string, len(rl.rules))
		for i, rule := range rl.rules {
			keys[i] = rule.Key(r)
		}
		v := rl.take(keys)
		if v.rule == nil {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(v.rule.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(v.resetAt.Unix(), 10))
		if !v.allowed {
			wait := max(v.resetAt.Sub(rl.now()), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			h.Set("X-RateLimit-Scope", v.rule.Name)
			WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the originating client address: the first
// X-Forwarded-For hop, then X-Real-IP, then the connection peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
