package refresh

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

const namespace = "campaign_refresh"

// Metrics are the Prometheus collectors updated after every run.
type Metrics struct {
	runs          *prometheus.CounterVec
	stages        *prometheus.CounterVec
	stageRecords  *prometheus.GaugeVec
	alerts        prometheus.Counter
	lastDuration  prometheus.Gauge
	lastTimestamp prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Refresh runs by outcome.",
		}, []string{"outcome"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage results by stage and status.",
		}, []string{"stage", "status"}),
		stageRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_records",
			Help:      "Records handled by the last successful run of each stage.",
		}, []string{"stage"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_generated_total",
			Help:      "Performance alerts generated.",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run finished.",
		}),
	}
	reg.MustRegister(m.runs, m.stages, m.stageRecords, m.alerts, m.lastDuration, m.lastTimestamp)
	return m
}

func (m *Metrics) observe(run *model.RefreshRun) {
	if m == nil {
		return
	}

	outcome := "success"
	if !run.Succeeded() {
		outcome = "partial"
	}
	m.runs.WithLabelValues(outcome).Inc()

	for stage, res := range run.Status {
		m.stages.WithLabelValues(string(stage), string(res.Status)).Inc()
		if res.OK() {
			m.stageRecords.WithLabelValues(string(stage)).Set(float64(res.Count()))
		}
	}

	m.alerts.Add(float64(run.AlertCount))
	m.lastDuration.Set(run.FinishedAt.Sub(run.StartedAt).Seconds())
	m.lastTimestamp.Set(float64(run.FinishedAt.UnixNano()) / float64(time.Second))
}
