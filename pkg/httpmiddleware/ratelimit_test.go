package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC)}
}

func sessionKey(r *http.Request) string {
	return r.Header.Get("X-Cart-Session")
}

func newTestLimiter(clk *fakeClock, cfg RateLimitConfig) (*rateLimiter, http.Handler) {
	rl := newRateLimiter(cfg)
	rl.now = clk.now
	return rl, rl.middleware(okHandler())
}

func shopRequest(method, path, ip, session string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":40000"
	if session != "" {
		req.Header.Set("X-Cart-Session", session)
	}
	return req
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRateLimit_ClientBudget(t *testing.T) {
	_, h := newTestLimiter(newFakeClock(), RateLimitConfig{Rules: []RateLimitRule{
		{Name: "client", Max: 3, Window: time.Minute, Key: ClientIP},
	}})

	for _, want := range []string{"2", "1", "0"} {
		w := serve(h, shopRequest(http.MethodGet, "/api/products", "10.0.0.1", ""))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}

	w := serve(h, shopRequest(http.MethodGet, "/api/products", "10.0.0.1", ""))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "client", w.Header().Get("X-RateLimit-Scope"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())

	w = serve(h, shopRequest(http.MethodGet, "/api/products", "10.0.0.2", ""))
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own budget")
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	clk := newFakeClock()
	_, h := newTestLimiter(clk, RateLimitConfig{Rules: []RateLimitRule{
		{Name: "client", Max: 4, Window: time.Minute, Key: ClientIP},
	}})
	hit := func() int {
		return serve(h, shopRequest(http.MethodGet, "/api/blog", "10.0.0.1", "")).Code
	}

	for range 4 {
		require.Equal(t, http.StatusOK, hit())
	}
	require.Equal(t, http.StatusTooManyRequests, hit())

	// Half of the previous window still counts: 4 * 0.5 = 2 used.
	clk.advance(90 * time.Second)
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	clk.advance(3 * time.Minute)
	for range 4 {
		assert.Equal(t, http.StatusOK, hit())
	}
}

func TestRateLimit_CartSessionRule(t *testing.T) {
	_, h := newTestLimiter(newFakeClock(), RateLimitConfig{Rules: []RateLimitRule{
		{Name: "client", Max: 10, Window: time.Minute, Key: ClientIP},
		{Name: "cart", Max: 2, Window: time.Minute, Key: sessionKey},
	}})

	for range 2 {
		w := serve(h, shopRequest(http.MethodPost, "/api/cart/items", "10.0.0.1", "sess-a"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"), "cart rule is the tightest")
	}

	w := serve(h, shopRequest(http.MethodPost, "/api/cart/items", "10.0.0.9", "sess-a"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "switching address does not reset the cart budget")
	assert.Equal(t, "cart", w.Header().Get("X-RateLimit-Scope"))

	w = serve(h, shopRequest(http.MethodPost, "/api/cart/items", "10.0.0.1", "sess-b"))
	assert.Equal(t, http.StatusOK, w.Code)

	// Two allowed requests of sess-a plus one of sess-b; the rejection was
	// not counted against the client.
	w = serve(h, shopRequest(http.MethodGet, "/api/products", "10.0.0.1", ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "6", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_Skip(t *testing.T) {
	_, h := newTestLimiter(newFakeClock(), RateLimitConfig{
		Rules: []RateLimitRule{{Name: "client", Max: 1, Window: time.Minute, Key: ClientIP}},
		Skip:  func(r *http.Request) bool { return r.URL.Path == "/readyz" },
	})

	require.Equal(t, http.StatusOK, serve(h, shopRequest(http.MethodGet, "/api/cart", "10.0.0.1", "")).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(h, shopRequest(http.MethodGet, "/api/cart", "10.0.0.1", "")).Code)

	w := serve(h, shopRequest(http.MethodGet, "/readyz", "10.0.0.1", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimit_DisabledRules(t *testing.T) {
	rl, h := newTestLimiter(newFakeClock(), RateLimitConfig{Rules: []RateLimitRule{
		{Name: "client", Max: 0, Window: time.Minute, Key: ClientIP},
		{Name: "cart", Max: 5, Window: 0, Key: sessionKey},
	}})
	assert.Empty(t, rl.rules)

	w := serve(h, shopRequest(http.MethodPost, "/api/cart/items", "10.0.0.1", "sess-a"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	clk := newFakeClock()
	rl, h := newTestLimiter(clk, RateLimitConfig{Rules: []RateLimitRule{
		{Name: "client", Max: 5, Window: time.Minute, Key: ClientIP},
	}})

	serve(h, shopRequest(http.MethodGet, "/api/products", "10.0.0.1", ""))
	clk.advance(90 * time.Second)
	serve(h, shopRequest(http.MethodGet, "/api/products", "10.0.0.2", ""))

	clk.advance(time.Minute)
	rl.sweep()

	require.Len(t, rl.buckets[0], 1)
	assert.Contains(t, rl.buckets[0], "10.0.0.2")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "peer address", remote: "192.0.2.7:51234", want: "192.0.2.7"},
		{name: "peer without port", remote: "192.0.2.7", want: "192.0.2.7"},
		{name: "first forwarded hop", headers: map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, remote: "10.0.0.1:80", want: "203.0.113.5"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.9"}, remote: "10.0.0.1:80", want: "203.0.113.9"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " ,10.0.0.1"}, remote: "198.51.100.1:80", want: "198.51.100.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
