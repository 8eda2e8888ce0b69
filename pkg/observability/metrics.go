package observability

import (
	"sort"
	"sync"
	"time"
)

// NewMetricsClient creates the default in-process metrics client
func NewMetricsClient() MetricsClient {
	return &simpleMetricsClient{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

// simpleMetricsClient aggregates metrics in memory. It exists so that
// components can record metrics unconditionally; an exporter can be
// swapped in behind the same interface without touching call sites.
type simpleMetricsClient struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func (m *simpleMetricsClient) RecordCounter(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey(name, labels)] += value
}

func (m *simpleMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[metricKey(name, labels)] = value
}

func (m *simpleMetricsClient) RecordLatency(operation string, duration time.Duration) {
	m.RecordGauge("latency."+operation, duration.Seconds(), nil)
}

func (m *simpleMetricsClient) RecordAPIOperation(api string, operation string, success bool, durationSeconds float64) {
	labels := map[string]string{"api": api, "operation": operation}
	if success {
		m.RecordCounter("api.operation.success", 1, labels)
	} else {
		m.RecordCounter("api.operation.failure", 1, labels)
	}
	m.RecordGauge("api.operation.duration", durationSeconds, labels)
}

func (m *simpleMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
	m.RecordCounter(name, value, labels)
}

func (m *simpleMetricsClient) Close() error { return nil }

// CounterValue returns the current value of a counter, for tests
func (m *simpleMetricsClient) CounterValue(name string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metricKey(name, labels)]
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	key := name
	for _, k := range keys {
		key += "|" + k + "=" + labels[k]
	}
	return key
}
