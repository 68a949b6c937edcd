package mateauth

import (
	"sync/atomic"
	"time"
)

// MetricID names one in-process counter or latency histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginUnverified
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricFingerprintMismatch
	MetricRateLimitHit
	MetricSessionCreated
	MetricSessionRevoked
	MetricLogout
	MetricLogoutAll
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricVerifySuccess
	MetricVerifyFailure
	MetricPasswordRehashed
	MetricAuthenticateLatency
	MetricLoginLatency
	MetricRefreshLatency
	metricIDCount
)

// LatencyBucketBounds are the inclusive upper bounds of the finite latency
// buckets. One more bucket collects everything slower.
var LatencyBucketBounds = []time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

var latencyMetrics = []MetricID{MetricAuthenticateLatency, MetricLoginLatency, MetricRefreshLatency}

type latencyHistogram [8]atomic.Uint64

// Metrics counts engine outcomes with atomics. A nil or disabled *Metrics
// ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]atomic.Uint64
	latency       map[MetricID]*latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics]. Histogram buckets are
// non-cumulative and follow [LatencyBucketBounds] plus a final +Inf bucket.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	m := &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
	if m.enableLatency {
		m.latency = make(map[MetricID]*latencyHistogram, len(latencyMetrics))
		for _, id := range latencyMetrics {
			m.latency[id] = new(latencyHistogram)
		}
	}
	return m
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || isLatencyMetric(id) {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d for a latency metric. Other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	if h, ok := m.latency[id]; ok {
		h[latencyBucket(d)].Add(1)
	}
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if !isLatencyMetric(id) {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	for id, h := range m.latency {
		buckets := make([]uint64, len(h))
		for i := range h {
			buckets[i] = h[i].Load()
		}
		s.Histograms[id] = buckets
	}
	return s
}

func isLatencyMetric(id MetricID) bool {
	for _, l := range latencyMetrics {
		if l == id {
			return true
		}
	}
	return false
}

func latencyBucket(d time.Duration) int {
	for i, bound := range LatencyBucketBounds {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBucketBounds)
}
