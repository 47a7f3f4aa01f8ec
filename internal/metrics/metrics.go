// Package metrics exposes per-run counters in the Prometheus text format so a
// node exporter textfile collector can pick up curation results.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicecohort"

// Recorder collects the metrics of one curation run. A nil Recorder discards
// every observation.
type Recorder struct {
	registry   *prometheus.Registry
	decisions  *prometheus.CounterVec
	rejections *prometheus.CounterVec
	cohort     *prometheus.GaugeVec
	duration   prometheus.Gauge
	lastRun    prometheus.Gauge
}

// New registers the run metrics on a private registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Curation decisions by stage and result.",
		}, []string{"stage", "result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected submissions by stage and reason code.",
		}, []string{"stage", "reason"}),
		cohort: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cohort_size",
			Help:      "Size of the curated cohort by group.",
		}, []string{"group"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last curation run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last curation run finished.",
		}),
	}
	r.registry.MustRegister(r.decisions, r.rejections, r.cohort, r.duration, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Decision counts one decision.
func (r *Recorder) Decision(stage, result string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(stage, result).Inc()
}

// Rejection counts one rejection with its reason code.
func (r *Recorder) Rejection(stage, reason string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(stage, reason).Inc()
}

// Dropped adds n filter drops for reason.
func (r *Recorder) Dropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rejections.WithLabelValues("filter", reason).Add(float64(n))
}

// Cohort records the final group sizes.
func (r *Recorder) Cohort(positives, controls, unmatched int) {
	if r == nil {
		return
	}
	r.cohort.WithLabelValues("positive").Set(float64(positives))
	r.cohort.WithLabelValues("control").Set(float64(controls))
	r.cohort.WithLabelValues("unmatched").Set(float64(unmatched))
}

// Finished records the run duration and completion time.
func (r *Recorder) Finished(started, finished time.Time) {
	if r == nil {
		return
	}
	r.duration.Set(finished.Sub(started).Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes the metrics atomically to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
