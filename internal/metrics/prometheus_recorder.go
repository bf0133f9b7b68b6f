package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mdxbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	entries       prom.Gauge
	rebuilds      *prom.CounterVec
	contentErrors prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		entries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Content entries discovered by the last build",
		}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Rebuilds triggered by the dev loop",
		}, []string{"trigger"}),
		contentErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "content_errors_total",
			Help:      "Collected content errors across builds",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults, pr.buildOutcome, pr.entries, pr.rebuilds, pr.contentErrors)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetEntries(n int) {
	if p == nil {
		return
	}
	p.entries.Set(float64(n))
}

func (p *PrometheusRecorder) IncRebuild(trigger string) {
	if p == nil {
		return
	}
	p.rebuilds.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) IncContentErrors(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.contentErrors.Add(float64(n))
}
