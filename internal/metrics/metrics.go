// Package metrics exposes Prometheus counters for playback transitions
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Switch reasons
const (
	ReasonSelect   = "select"
	ReasonSchedule = "schedule"
	ReasonEnded    = "ended"
	ReasonSeekEdge = "seek_edge"
	ReasonNavigate = "navigate"
)

// Fallback outcomes
const (
	OutcomeRecovered = "recovered"
	OutcomeFailed    = "failed"
)

// States tracked by the state gauge
var States = []string{"idle", "loading", "playing", "paused", "error"}

// Metrics holds the player's Prometheus collectors
type Metrics struct {
	registry       *prometheus.Registry
	switchesTotal  *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	playRejected   prometheus.Counter
	loadDuration   *prometheus.HistogramVec
	state          *prometheus.GaugeVec
}

// New creates and registers the player metrics on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	switchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetv_event_switches_total",
		Help: "Total number of event switches by reason",
	}, []string{"reason"})
	fallbacksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetv_fallback_attempts_total",
		Help: "Total number of fallback stream attempts by outcome",
	}, []string{"outcome"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "livetv_player_errors_total",
		Help: "Total number of player errors by type",
	}, []string{"type"})
	playRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "livetv_play_rejected_total",
		Help: "Total number of play requests refused by the media element",
	})
	loadDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "livetv_load_duration_seconds",
		Help:    "Time from selection to a loaded backend",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"kind"})
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "livetv_player_state",
		Help: "1 for the controller's current state, 0 otherwise",
	}, []string{"state"})

	registry.MustRegister(
		switchesTotal,
		fallbacksTotal,
		errorsTotal,
		playRejected,
		loadDuration,
		state,
	)

	m := &Metrics{
		registry:       registry,
		switchesTotal:  switchesTotal,
		fallbacksTotal: fallbacksTotal,
		errorsTotal:    errorsTotal,
		playRejected:   playRejected,
		loadDuration:   loadDuration,
		state:          state,
	}
	m.SetState("idle")
	return m
}

// IncSwitch counts an event switch
func (m *Metrics) IncSwitch(reason string) {
	m.switchesTotal.WithLabelValues(reason).Inc()
}

// IncFallback counts a fallback attempt
func (m *Metrics) IncFallback(outcome string) {
	m.fallbacksTotal.WithLabelValues(outcome).Inc()
}

// IncError counts a player error
func (m *Metrics) IncError(errType string) {
	m.errorsTotal.WithLabelValues(errType).Inc()
}

// IncPlayRejected counts a refused play request
func (m *Metrics) IncPlayRejected() {
	m.playRejected.Inc()
}

// ObserveLoad records how long a load took for a backend kind
func (m *Metrics) ObserveLoad(kind string, d time.Duration) {
	m.loadDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetState marks state as current and clears the others
func (m *Metrics) SetState(state string) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
