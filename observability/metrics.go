package observability

import (
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "learn",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "quota_exceeded".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// LedgerMetrics tracks executed calls and the money flowing through the
// platform.
type LedgerMetrics struct {
	calls       *prometheus.CounterVec
	callLatency *prometheus.HistogramVec
	mints       *prometheus.CounterVec
	withdrawals *prometheus.CounterVec
	liabilities prometheus.Gauge
}

// Ledger returns the lazily-initialised ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "ledger",
				Name:      "calls_total",
				Help:      "Executed signed calls segmented by method and outcome kind.",
			}, []string{"method", "outcome"}),
			callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "learn",
				Subsystem: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Time spent executing and committing a signed call.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "ledger",
				Name:      "certificate_mints_total",
				Help:      "Certificate mint attempts segmented by call site and result.",
			}, []string{"site", "result"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "learn",
				Subsystem: "ledger",
				Name:      "withdrawn_total",
				Help:      "Native value paid out by withdrawals segmented by kind.",
			}, []string{"kind"}),
			liabilities: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "learn",
				Subsystem: "ledger",
				Name:      "liabilities",
				Help:      "Sum of author balances and the platform balance after the last commit.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.calls,
			ledgerRegistry.callLatency,
			ledgerRegistry.mints,
			ledgerRegistry.withdrawals,
			ledgerRegistry.liabilities,
		)
	})
	return ledgerRegistry
}

// ObserveCall records an executed call. Outcome is "success" or an error kind.
func (m *LedgerMetrics) ObserveCall(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "success"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.callLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordMint counts a certificate mint attempt at site ("complete" or "retry").
func (m *LedgerMetrics) RecordMint(site string, ok bool) {
	if m == nil {
		return
	}
	result := "issued"
	if !ok {
		result = "failed"
	}
	m.mints.WithLabelValues(site, result).Inc()
}

// RecordWithdrawal adds amount to the withdrawn total for kind.
func (m *LedgerMetrics) RecordWithdrawal(kind string, amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.withdrawals.WithLabelValues(kind).Add(bigToFloat(amount))
}

// SetLiabilities publishes the platform's outstanding obligations.
func (m *LedgerMetrics) SetLiabilities(amount *big.Int) {
	if m == nil || amount == nil {
		return
	}
	m.liabilities.Set(bigToFloat(amount))
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
