package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "market_pulse",
			Subsystem: "overview",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a full market overview pass",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160},
		},
	)

	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_pulse",
			Subsystem: "overview",
			Name:      "passes_total",
			Help:      "Overview passes by mode (movers or symbols)",
		},
		[]string{"mode"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_pulse",
			Subsystem: "overview",
			Name:      "stage_failures_total",
			Help:      "Per-symbol pipeline stages that degraded to empty data",
		},
		[]string{"stage"},
	)

	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_pulse",
			Subsystem: "ai",
			Name:      "signals_total",
			Help:      "AI signals produced by value",
		},
		[]string{"signal"},
	)

	Tokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_pulse",
			Subsystem: "ai",
			Name:      "tokens_total",
			Help:      "LLM tokens consumed by kind",
		},
		[]string{"kind"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market_pulse",
			Subsystem: "notifier",
			Name:      "alerts_total",
			Help:      "Signal alerts by delivery result",
		},
		[]string{"result"},
	)

	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "market_pulse",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(PassDuration, PassesTotal, StageFailures, Signals, Tokens, Notifications, WSClients)
	})
}
