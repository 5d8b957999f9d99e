package health

import (
	"context"
	"runtime/debug"
	"runtime/metrics"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is a backend client that can verify its connection, like
// *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks that p reaches its backend.
func Ping(p Pinger) CheckFunc {
	return p.Ping
}

// RuntimeLimits bounds the process resources watched by RuntimeCheck. Zero
// fields are not checked.
type RuntimeLimits struct {
	// MaxGoroutines catches goroutine leaks, such as stuck cart saves.
	MaxGoroutines uint64
	// MaxHeapBytes bounds live heap objects: the session and catalog caches
	// dominate it.
	MaxHeapBytes uint64
	// MaxGCPause bounds the most recent stop-the-world pause.
	MaxGCPause time.Duration
}

const (
	goroutinesMetric = "/sched/goroutines:goroutines"
	heapMetric       = "/memory/classes/heap/objects:bytes"
)

// RuntimeCheck reports the first exceeded limit of the running process.
func RuntimeCheck(limits RuntimeLimits) CheckFunc {
	return func(context.Context) error {
		samples := []metrics.Sample{{Name: goroutinesMetric}, {Name: heapMetric}}
		metrics.Read(samples)

		if n, ok := uintSample(samples[0]); ok && limits.MaxGoroutines > 0 && n > limits.MaxGoroutines {
			return errors.Errorf("%d goroutines over limit %d", n, limits.MaxGoroutines)
		}
		if n, ok := uintSample(samples[1]); ok && limits.MaxHeapBytes > 0 && n > limits.MaxHeapBytes {
			return errors.Errorf("heap of %d bytes over limit %d", n, limits.MaxHeapBytes)
		}
		if limits.MaxGCPause > 0 {
			var stats debug.GCStats
			debug.ReadGCStats(&stats)
			if len(stats.Pause) > 0 && stats.Pause[0] > limits.MaxGCPause {
				return errors.Errorf("last GC pause %s over limit %s", stats.Pause[0], limits.MaxGCPause)
			}
		}
		return nil
	}
}

func uintSample(s metrics.Sample) (uint64, bool) {
	if s.Value.Kind() != metrics.KindUint64 {
		return 0, false
	}
	return s.Value.Uint64(), true
}
