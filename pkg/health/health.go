// Package health serves the /livez and /readyz probes of the storefront.
//
// Checks run in background goroutines. A check flips to unhealthy only after
// a run of consecutive failures and back after a run of successes, so a
// single slow Redis or PostgreSQL round trip does not pull the pod out of
// rotation.
package health

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"
)

// Probe paths.
const (
	LivePath  = "/livez"
	ReadyPath = "/readyz"
)

// CheckFunc returns nil when the checked component is usable.
type CheckFunc func(ctx context.Context) error

// CheckOption tunes a registered check.
type CheckOption func(*check)

// WithThresholds sets how many consecutive failures mark a check unhealthy
// and how many successes restore it. Defaults are 3 and 1.
func WithThresholds(failures, successes int) CheckOption {
	return func(c *check) {
		c.failAfter = max(failures, 1)
		c.recoverAfter = max(successes, 1)
	}
}

type check struct {
	name         string
	timeout      time.Duration
	fn           CheckFunc
	failAfter    int
	recoverAfter int

	// streak is only touched by the goroutine running the check: positive
	// for consecutive successes, negative for failures.
	streak int

	healthy atomic.Bool
	lastErr atomic.Pointer[string]
}

func newCheck(name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) *check {
	c := &check{name: name, timeout: timeout, fn: fn, failAfter: 3, recoverAfter: 1}
	for _, o := range opts {
		o(c)
	}
	c.healthy.Store(true)
	return c
}

// run executes the check once. Callers serialize runs of the same check.
func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.fn(ctx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.streak = min(c.streak, 0) - 1
		if -c.streak >= c.failAfter {
			c.healthy.Store(false)
		}
		return
	}
	c.lastErr.Store(nil)
	c.streak = max(c.streak, 0) + 1
	if c.streak >= c.recoverAfter {
		c.healthy.Store(true)
	}
}

// state is "ok" for healthy checks, otherwise the last failure.
func (c *check) state() (string, bool) {
	if c.healthy.Load() {
		return "ok", true
	}
	if msg := c.lastErr.Load(); msg != nil {
		return *msg, false
	}
	return "unhealthy", false
}

// Health tracks process liveness and the readiness of the storefront's
// backends.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that restarts the process when failing.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn, opts))
}

// AddReadinessCheck registers a check that stops traffic when failing, such
// as the cart backend or the catalog database.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc, opts ...CheckOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn, opts))
}

// Start runs every registered check once per interval until Stop or ctx is
// done. Checks registered after Start are not run.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	checks := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, c := range checks {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				c.run(ctx)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// Stop ends the background checks. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady marks the service as accepting traffic. It is set after wiring
// and cleared when shutdown starts draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.readiness {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

// Register mounts the probe endpoints on r.
func (h *Health) Register(r *mux.Router) {
	r.HandleFunc(LivePath, h.LiveEndpoint).Methods(http.MethodGet)
	r.HandleFunc(ReadyPath, h.ReadyEndpoint).Methods(http.MethodGet)
}

// IsProbe reports whether r targets a probe endpoint.
func IsProbe(r *http.Request) bool {
	return r.URL.Path == LivePath || r.URL.Path == ReadyPath
}

// LiveEndpoint reports the liveness checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := slices.Clone(h.liveness)
	h.mu.RUnlock()

	writeReport(w, true, checks)
}

// ReadyEndpoint reports the readiness checks and the manual ready flag.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := slices.Clone(h.readiness)
	h.mu.RUnlock()

	writeReport(w, h.ready.Load(), checks)
}

// writeReport writes {"status":"ok"|"unhealthy","checks":{name:state}} with
// checks sorted by name. It answers 503 unless ready and every check passes.
func writeReport(w http.ResponseWriter, ready bool, checks []*check) {
	slices.SortFunc(checks, func(a, b *check) int { return cmp.Compare(a.name, b.name) })

	var e jx.Encoder
	ok := ready
	e.ObjStart()
	e.FieldStart("checks")
	e.ObjStart()
	for _, c := range checks {
		state, healthy := c.state()
		ok = ok && healthy
		e.FieldStart(c.name)
		e.Str(state)
	}
	e.ObjEnd()
	if !ready {
		e.FieldStart("reason")
		e.Str("service is not ready")
	}
	e.FieldStart("status")
	code := http.StatusOK
	if ok {
		e.Str("ok")
	} else {
		code = http.StatusServiceUnavailable
		e.Str("unhealthy")
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
