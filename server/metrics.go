package server

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	analyses *prometheus.CounterVec
	duration prometheus.Histogram
	exports  *prometheus.CounterVec
	drafts   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interpreter_analyses_total",
			Help: "Analysis requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interpreter_analysis_duration_seconds",
			Help:    "Time spent waiting for the generation endpoint.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 180},
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interpreter_exports_total",
			Help: "Report exports by format and outcome.",
		}, []string{"format", "outcome"}),
		drafts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interpreter_drafts_saved_total",
			Help: "Input-only history saves.",
		}),
	}
	reg.MustRegister(m.analyses, m.duration, m.exports, m.drafts)
	return m
}
