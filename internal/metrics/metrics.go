// Package metrics exposes Prometheus collectors for the growth engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Advance outcome label values.
const (
	OutcomeAdvanced         = "advanced"
	OutcomeConditionsNotMet = "conditions_not_met"
	OutcomeAlreadyMature    = "already_mature"
	OutcomeBusy             = "busy"
)

// Discovery result label values.
const (
	DiscoveryFound     = "found"
	DiscoveryExhausted = "exhausted"
	DiscoveryCancelled = "cancelled"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Advances          *prometheus.CounterVec
	Stage             *prometheus.GaugeVec
	DiscoveryAttempts *prometheus.CounterVec
	DiscoveryResults  *prometheus.CounterVec
	TranslationErrors prometheus.Counter
	PersistenceErrors *prometheus.CounterVec
	Resets            prometheus.Counter
}

// New builds the collectors and registers them with reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Advances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mycelium",
			Name:      "advance_total",
			Help:      "Stage advance requests by outcome.",
		}, []string{"outcome"}),
		Stage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mycelium",
			Name:      "stage",
			Help:      "1 for the current growth stage, 0 otherwise.",
		}, []string{"stage"}),
		DiscoveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mycelium",
			Subsystem: "discovery",
			Name:      "attempts_total",
			Help:      "Discovery attempts by result (accepted, rejected, error).",
		}, []string{"result"}),
		DiscoveryResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mycelium",
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Completed discovery runs by result.",
		}, []string{"result"}),
		TranslationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mycelium",
			Subsystem: "discovery",
			Name:      "translation_errors_total",
			Help:      "Failed translation enrichments.",
		}),
		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mycelium",
			Subsystem: "persistence",
			Name:      "errors_total",
			Help:      "Snapshot load/save failures.",
		}, []string{"op"}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mycelium",
			Name:      "resets_total",
			Help:      "Growth cycle resets.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Advances, m.Stage, m.DiscoveryAttempts, m.DiscoveryResults,
			m.TranslationErrors, m.PersistenceErrors, m.Resets)
	}
	return m
}

// ObserveAdvance counts one advance outcome.
func (m *Metrics) ObserveAdvance(outcome string) {
	if m == nil {
		return
	}
	m.Advances.WithLabelValues(outcome).Inc()
}

// SetStage marks stage as current among stages.
func (m *Metrics) SetStage(stage string, stages []string) {
	if m == nil {
		return
	}
	for _, s := range stages {
		v := 0.0
		if s == stage {
			v = 1
		}
		m.Stage.WithLabelValues(s).Set(v)
	}
}

// ObserveAttempt counts one discovery attempt.
func (m *Metrics) ObserveAttempt(result string) {
	if m == nil {
		return
	}
	m.DiscoveryAttempts.WithLabelValues(result).Inc()
}

// ObserveDiscovery counts one finished discovery run.
func (m *Metrics) ObserveDiscovery(result string) {
	if m == nil {
		return
	}
	m.DiscoveryResults.WithLabelValues(result).Inc()
}

// ObserveTranslationError counts one failed translation.
func (m *Metrics) ObserveTranslationError() {
	if m == nil {
		return
	}
	m.TranslationErrors.Inc()
}

// ObservePersistenceError counts one failed load or save.
func (m *Metrics) ObservePersistenceError(op string) {
	if m == nil {
		return
	}
	m.PersistenceErrors.WithLabelValues(op).Inc()
}

// ObserveReset counts one reset.
func (m *Metrics) ObserveReset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
