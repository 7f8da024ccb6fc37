// Package metrics holds the Prometheus collectors for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clausewise",
		Name:      "stage_transitions_total",
		Help:      "Stage runs by target stage and outcome.",
	}, []string{"stage", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clausewise",
		Name:      "stage_duration_seconds",
		Help:      "Wall time of stage runs.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	Questions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clausewise",
		Name:      "questions_total",
		Help:      "Answered questions by outcome.",
	}, []string{"outcome"})

	EngineCalls = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clausewise",
		Name:      "engine_call_seconds",
		Help:      "Latency of extraction, generation and embedding calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine", "outcome"})
)

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveStage(stage string, started time.Time, err error) {
	StageTransitions.WithLabelValues(stage, Outcome(err)).Inc()
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

func ObserveEngine(engine string, started time.Time, err error) {
	EngineCalls.WithLabelValues(engine, Outcome(err)).Observe(time.Since(started).Seconds())
}
