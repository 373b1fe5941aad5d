package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var deliveryCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_deliveries",
	Help: "Number of webhook deliveries, by result",
}, []string{"result"})

var eventClassifiedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_events_classified",
	Help: "Number of comment events extracted from deliveries",
}, []string{"platform"})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_admission_decisions",
	Help: "Admission policy verdicts",
}, []string{"decision"})

var outcomeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "autoreply_event_outcomes",
	Help: "Terminal result of handling each event",
}, []string{"platform", "outcome"})

var eventPanicCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "autoreply_event_panics",
	Help: "Number of events whose processing panicked",
})

var collaboratorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "autoreply_collaborator_duration_sec",
	Help: "Duration of reply generation and dispatch calls",
}, []string{"collaborator", "result"})

// RegisterThreadGauge exports the live thread count of a store.
func RegisterThreadGauge(size func() int) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "autoreply_thread_entries",
		Help: "Threads currently held in the reply state store",
	}, func() float64 { return float64(size()) })
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
