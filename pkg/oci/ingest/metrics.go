package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a sync did. Each instance has its own registry so runs
// in the same process, and tests, do not share counters.
type Metrics struct {
	Registry      *prometheus.Registry
	RecordsSynced *prometheus.CounterVec
	LinksWritten  *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocigraph",
			Name:      "records_synced_total",
			Help:      "Resource records written to the graph.",
		}, []string{"kind", "region"}),
		LinksWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocigraph",
			Name:      "links_written_total",
			Help:      "Cross-reference edges written to the graph.",
		}, []string{"type"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ocigraph",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each stage, per region.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocigraph",
			Name:      "stage_failures_total",
			Help:      "Stages that returned an error.",
		}, []string{"stage"}),
	}
	m.Registry.MustRegister(m.RecordsSynced, m.LinksWritten, m.StageDuration, m.StageFailures)
	return m
}

// WriteToTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
