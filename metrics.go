package timeout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stop reasons used as the "reason" label
const (
	reasonExpired   = "expired"
	reasonCancelled = "cancelled"
)

// Metrics exports timer lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	started *prometheus.CounterVec
	stopped *prometheus.CounterVec
	running *prometheus.GaugeVec
}

// NewMetrics creates the timer metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		started: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeout_timers_started_total",
				Help: "Total number of timers started per manager",
			},
			[]string{"manager"},
		),
		stopped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeout_timers_stopped_total",
				Help: "Total number of timers stopped per manager, by reason",
			},
			[]string{"manager", "reason"},
		),
		running: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "timeout_timer_running",
				Help: "Whether the manager has a running timer (1) or not (0)",
			},
			[]string{"manager"},
		),
	}
}

func (m *Metrics) timerStarted(id ManagerID) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(string(id)).Inc()
}

func (m *Metrics) timerStopped(id ManagerID, complete bool) {
	if m == nil {
		return
	}
	reason := reasonCancelled
	if complete {
		reason = reasonExpired
	}
	m.stopped.WithLabelValues(string(id), reason).Inc()
}

// setRunning follows the manager entering and leaving its running state
func (m *Metrics) setRunning(id ManagerID, running bool) {
	if m == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	m.running.WithLabelValues(string(id)).Set(v)
}
