package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

var _ ports.AnalysisRecorder = (*AnalyzerMetrics)(nil)

type AnalyzerMetrics struct {
	service string

	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	analysesTotal   *prometheus.CounterVec
	analysisSeconds *prometheus.HistogramVec
}

func NewAnalyzerMetrics(service string, reg prometheus.Registerer) *AnalyzerMetrics {
	m := &AnalyzerMetrics{
		service: service,
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "provider_attempts_total",
			Help:      "External provider attempts by outcome.",
		}, []string{"service", "provider", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "provider_attempt_duration_seconds",
			Help:      "External provider attempt latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"service", "provider"}),
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "analyses_total",
			Help:      "Completed analyses by the provider that produced them.",
		}, []string{"service", "provider"}),
		analysisSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis time including failed attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "provider"}),
	}
	reg.MustRegister(m.attemptsTotal, m.attemptDuration, m.analysesTotal, m.analysisSeconds)
	return m
}

func (m *AnalyzerMetrics) ObserveProviderAttempt(provider string, duration time.Duration, err error) {
	m.attemptsTotal.WithLabelValues(m.service, provider, attemptOutcome(err)).Inc()
	m.attemptDuration.WithLabelValues(m.service, provider).Observe(duration.Seconds())
}

func (m *AnalyzerMetrics) ObserveAnalysis(provider string, duration time.Duration) {
	m.analysesTotal.WithLabelValues(m.service, provider).Inc()
	m.analysisSeconds.WithLabelValues(m.service, provider).Observe(duration.Seconds())
}

func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrParse):
		return "parse_error"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrTemporary):
		return "temporary"
	default:
		return "error"
	}
}
