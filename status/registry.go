// Package status keeps the wheel's session statistics: how many spins ran,
// how they ended and how long the authority took to answer.
package status

import (
	"log/slog"
	"sync/atomic"
)

// Metric keys recorded by the app
const (
	SpinsStarted    = "spins.started"
	SpinsResolved   = "spins.resolved"
	SpinsAborted    = "spins.aborted"
	RefreshFailures = "refresh.failures"
	TicksPlayed     = "ticks.played"
	AuthorityWaitMs = "authority.wait_ms"
	LastWinner      = "winner.last"
	LastAbortKind   = "abort.last"
)

// Registry groups the metric maps
// Callers cache metric pointers once; updates are lock-free atomics
type Registry struct {
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

func NewRegistry() *Registry {
	return &Registry{
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns the number of metrics across all maps
func (r *Registry) TotalCount() int {
	return r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// LogValue renders every metric as one slog group, keys in sorted order
func (r *Registry) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, r.TotalCount())
	r.Ints.Range(func(key string, v *atomic.Int64) {
		attrs = append(attrs, slog.Int64(key, v.Load()))
	})
	r.Floats.Range(func(key string, v *AtomicFloat) {
		attrs = append(attrs, slog.Float64(key, v.Get()))
	})
	r.Strings.Range(func(key string, v *AtomicString) {
		attrs = append(attrs, slog.String(key, v.Load()))
	})
	return slog.GroupValue(attrs...)
}
