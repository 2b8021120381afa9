package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "quicksip"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	buildDuration  *prom.HistogramVec
	buildOutcome   *prom.CounterVec
	watchReactions *prom.CounterVec
	bytesWritten   *prom.CounterVec
	watchActive    *prom.GaugeVec
}

// NewPrometheusRecorder constructs the metric families and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"prefix", "stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"prefix", "stage", "result"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a full clean plus stage batch run",
			Buckets:   prom.DefBuckets,
		}, []string{"prefix", "mode"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"prefix", "outcome"}),
		watchReactions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_reactions_total",
			Help:      "Watch reactions by kind",
		}, []string{"prefix", "kind"}),
		bytesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to the output tree by stage",
		}, []string{"prefix", "stage"}),
		watchActive: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "watch_active",
			Help:      "1 while a watch session is running for the prefix",
		}, []string{"prefix"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.buildDuration, pr.buildOutcome,
		pr.watchReactions, pr.bytesWritten, pr.watchActive)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(prefix, stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(prefix, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(prefix, stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(prefix, stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(prefix, mode string, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(prefix, mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(prefix string, outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(prefix, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncWatchReaction(prefix, kind string) {
	if p == nil || p.watchReactions == nil {
		return
	}
	p.watchReactions.WithLabelValues(prefix, kind).Inc()
}

func (p *PrometheusRecorder) AddBytesWritten(prefix, stage string, n int64) {
	if p == nil || p.bytesWritten == nil || n <= 0 {
		return
	}
	p.bytesWritten.WithLabelValues(prefix, stage).Add(float64(n))
}

func (p *PrometheusRecorder) SetWatchActive(prefix string, active bool) {
	if p == nil || p.watchActive == nil {
		return
	}
	v := 0.0
	if active {
		v = 1
	}
	p.watchActive.WithLabelValues(prefix).Set(v)
}
