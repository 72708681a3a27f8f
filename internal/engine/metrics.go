package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"

	"github.com/xela07ax/clickpulse/internal/audit"
	"github.com/xela07ax/clickpulse/internal/domain"
)

type Metrics struct {
	// Latency: сколько заняла попытка загрузки (включая ретраи)
	LoadDuration *prometheus.HistogramVec

	// Traffic: попытки по домену и исходу
	LoadsTotal *prometheus.CounterVec

	// Отброшенные ответы вытесненных попыток
	StaleDiscarded *prometheus.CounterVec

	// Saturation: работающие таймеры real-time
	PollersActive *prometheus.GaugeVec

	// Состояние Circuit Breaker (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// История: потерянные из-за переполнения события
	HistoryDropped prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		LoadDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clickpulse_load_duration_seconds",
			Help:    "Histogram of analytics load attempt latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"domain", "outcome"}),

		LoadsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "clickpulse_loads_total",
			Help: "Total number of settled load attempts.",
		}, []string{"domain", "outcome"}),

		StaleDiscarded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "clickpulse_stale_responses_total",
			Help: "Responses discarded because a newer attempt superseded them.",
		}, []string{"domain"}),

		PollersActive: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "clickpulse_pollers_active",
			Help: "Whether realtime polling is active for the domain (0/1).",
		}, []string{"domain"}),

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "clickpulse_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),

		HistoryDropped: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "clickpulse_history_dropped_events",
			Help: "Load events dropped due to history buffer overflow.",
		}),
	}
}

// ObserveLoad реализует realtime.LoadMetrics
func (m *Metrics) ObserveLoad(kind domain.Kind, outcome string, d time.Duration) {
	m.LoadsTotal.WithLabelValues(string(kind), outcome).Inc()
	m.LoadDuration.WithLabelValues(string(kind), outcome).Observe(d.Seconds())
	if outcome == audit.OutcomeStale {
		m.StaleDiscarded.WithLabelValues(string(kind)).Inc()
	}
}

// SetPolling реализует realtime.LoadMetrics
func (m *Metrics) SetPolling(kind domain.Kind, active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.PollersActive.WithLabelValues(string(kind)).Set(v)
}

func (m *Metrics) SetBreakerState(name string, st gobreaker.State) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(st))
}
