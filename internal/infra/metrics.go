package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. An instance is constructed at
// bootstrap and injected into the services that record to it.
type Metrics struct {
	// Counters
	intentsAggregated atomic.Uint64
	intentsSkipped    atomic.Uint64
	ordersSubmitted   atomic.Uint64
	ordersFilled      atomic.Uint64
	ordersRejected    atomic.Uint64
	allocationErrors  atomic.Uint64

	// Latency tracking for broker calls
	brokerLatencySumNs atomic.Int64
	brokerLatencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// NewMetrics creates a fresh metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordIntentAggregated counts an intent folded into an aggregate.
func (m *Metrics) RecordIntentAggregated() {
	m.intentsAggregated.Add(1)
}

// RecordIntentSkipped counts an intent excluded from aggregation.
func (m *Metrics) RecordIntentSkipped() {
	m.intentsSkipped.Add(1)
}

// RecordOrderSubmitted records a bulk order accepted by a broker, with
// the broker call latency.
func (m *Metrics) RecordOrderSubmitted(latencyNs int64) {
	m.ordersSubmitted.Add(1)
	m.brokerLatencySumNs.Add(latencyNs)
	m.brokerLatencyCount.Add(1)
}

// RecordOrderFilled records a filled bulk order.
func (m *Metrics) RecordOrderFilled() {
	m.ordersFilled.Add(1)
}

// RecordOrderRejected records a rejected bulk order.
func (m *Metrics) RecordOrderRejected() {
	m.ordersRejected.Add(1)
}

// RecordAllocationError records a conservation violation.
func (m *Metrics) RecordAllocationError() {
	m.allocationErrors.Add(1)
}

// IncrementConnections increments active broker connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active broker connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	IntentsAggregated  uint64
	IntentsSkipped     uint64
	OrdersSubmitted    uint64
	OrdersFilled       uint64
	OrdersRejected     uint64
	AllocationErrors   uint64
	AvgBrokerLatencyNs int64
	ActiveConnections  int32
	Timestamp          time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.brokerLatencyCount.Load()
	if count > 0 {
		avgLatency = m.brokerLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		IntentsAggregated:  m.intentsAggregated.Load(),
		IntentsSkipped:     m.intentsSkipped.Load(),
		OrdersSubmitted:    m.ordersSubmitted.Load(),
		OrdersFilled:       m.ordersFilled.Load(),
		OrdersRejected:     m.ordersRejected.Load(),
		AllocationErrors:   m.allocationErrors.Load(),
		AvgBrokerLatencyNs: avgLatency,
		ActiveConnections:  m.activeConnections.Load(),
		Timestamp:          time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.intentsAggregated.Store(0)
	m.intentsSkipped.Store(0)
	m.ordersSubmitted.Store(0)
	m.ordersFilled.Store(0)
	m.ordersRejected.Store(0)
	m.allocationErrors.Store(0)
	m.brokerLatencySumNs.Store(0)
	m.brokerLatencyCount.Store(0)
	m.activeConnections.Store(0)
}
