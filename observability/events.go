package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	published *prometheus.CounterVec
	dropped   prometheus.Counter
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking published ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Committed events published, segmented by contract and type.",
			}, []string{"contract", "type"}),
			dropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "events",
				Name:      "indexer_failures_total",
				Help:      "Events the indexer failed to persist.",
			}),
		}
		prometheus.MustRegister(eventRegistry.published, eventRegistry.dropped)
	})
	return eventRegistry
}

// RecordPublished counts a committed event. The contract label is the prefix
// before the first dot of the event type.
func (m *eventMetrics) RecordPublished(eventType string) {
	if m == nil {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "unknown"
	}
	contract, _, _ := strings.Cut(eventType, ".")
	m.published.WithLabelValues(contract, eventType).Inc()
}

// RecordIndexFailure counts an event the indexer could not store.
func (m *eventMetrics) RecordIndexFailure() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}
