// Package metrics exposes the client's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
)

const namespace = "qcc"

var (
	registry = prometheus.NewRegistry()

	ledgerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Ledger calls by operation and result kind.",
	}, []string{"op", "result"})

	ledgerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "call_duration_seconds",
		Help:      "Ledger call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	sessionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "events_total",
		Help:      "Wallet lifecycle events applied to the session.",
	}, []string{"kind"})

	ledgerRebinds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "rebinds_total",
		Help:      "Ledger client rebinds after account or chain changes.",
	})

	sessionConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "connected",
		Help:      "1 while a wallet account is connected.",
	})

	sessionEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "epoch",
		Help:      "Current session epoch.",
	})
)

func init() {
	registry.MustRegister(
		ledgerCalls,
		ledgerLatency,
		sessionEvents,
		ledgerRebinds,
		sessionConnected,
		sessionEpoch,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveLedgerCall records one finished ledger call. The result label is
// "ok" or the error kind.
func ObserveLedgerCall(op string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = errkind.KindOf(err).String()
	}
	ledgerCalls.WithLabelValues(op, result).Inc()
	ledgerLatency.WithLabelValues(op).Observe(took.Seconds())
}

func SessionEvent(kind string) {
	sessionEvents.WithLabelValues(kind).Inc()
}

// SessionState mirrors the session store into the session gauges.
func SessionState(connected bool, epoch uint64) {
	v := 0.0
	if connected {
		v = 1
	}
	sessionConnected.Set(v)
	sessionEpoch.Set(float64(epoch))
}

func LedgerRebind() {
	ledgerRebinds.Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
