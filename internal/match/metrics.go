package match

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const resultOK = "ok"

var (
	matchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_requests_total",
		Help: "Match decisions grouped by outcome.",
	}, []string{"result"})

	matchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "match_duration_seconds",
		Help:    "Time spent producing a match decision.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	reasoningDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reasoning_duration_seconds",
		Help:    "Latency of reasoning engine calls.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"model"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_cache_lookups_total",
		Help: "Result cache lookups grouped by outcome.",
	}, []string{"result"})
)

func resultLabel(err error) string {
	if err == nil {
		return resultOK
	}
	return string(KindOf(err))
}
