package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ragCollectors struct {
	service string

	indexBuildsTotal   *prometheus.CounterVec
	indexBuildDuration *prometheus.HistogramVec
	indexSegments      *prometheus.HistogramVec
	questionsTotal     *prometheus.CounterVec
	retrievedSegments  *prometheus.HistogramVec
	noContextTotal     *prometheus.CounterVec
	activeSessions     prometheus.Gauge
}

func newRAGCollectors(service string) *ragCollectors {
	return &ragCollectors{
		service: service,
		indexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "index_builds_total",
				Help:      "Total index builds by status.",
			},
			[]string{"service", "status"},
		),
		indexBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "index_build_duration_seconds",
				Help:      "Index build duration in seconds by status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "status"},
		),
		indexSegments: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "index_segments",
				Help:      "Distribution of segments per built index.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"service"},
		),
		questionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "questions_total",
				Help:      "Total answered questions by status.",
			},
			[]string{"service", "status"},
		),
		retrievedSegments: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "retrieved_segments",
				Help:      "Distribution of grounding segments per answered question.",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"service"},
		),
		noContextTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "no_context_total",
				Help:      "Total answered questions without grounding segments.",
			},
			[]string{"service"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "active",
				Help:      "Number of live sessions.",
				ConstLabels: prometheus.Labels{
					"service": service,
				},
			},
		),
	}
}

func (c *ragCollectors) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.indexBuildsTotal,
		c.indexBuildDuration,
		c.indexSegments,
		c.questionsTotal,
		c.retrievedSegments,
		c.noContextTotal,
		c.activeSessions,
	}
}

func (m *ServerMetrics) RecordIndexBuild(segments int, duration time.Duration, err error) {
	status := statusOf(err)
	m.rag.indexBuildsTotal.WithLabelValues(m.service, status).Inc()
	m.rag.indexBuildDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if err == nil {
		m.rag.indexSegments.WithLabelValues(m.service).Observe(float64(segments))
	}
}

func (m *ServerMetrics) RecordQuestion(sourceCount int, err error) {
	m.rag.questionsTotal.WithLabelValues(m.service, statusOf(err)).Inc()
	if err != nil {
		return
	}
	m.rag.retrievedSegments.WithLabelValues(m.service).Observe(float64(sourceCount))
	if sourceCount == 0 {
		m.rag.noContextTotal.WithLabelValues(m.service).Inc()
	}
}

func (m *ServerMetrics) SetActiveSessions(n int) {
	m.rag.activeSessions.Set(float64(n))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
