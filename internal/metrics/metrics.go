// Package metrics exposes run outcomes as Prometheus metrics written to a
// node-exporter textfile.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"mongoprov/internal/provision"
	"mongoprov/internal/verify"
)

const namespace = "mongoprov"

// Recorder owns a private registry with the run metrics.
type Recorder struct {
	registry    *prometheus.Registry
	actions     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	lastRun     *prometheus.GaugeVec
}

// NewRecorder registers the run metrics on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Provisioning actions and verification checks by kind and status.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a command run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"command"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run of the command succeeded, 0 otherwise.",
		}, []string{"command"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last run of the command.",
		}, []string{"command"}),
	}
	r.registry.MustRegister(r.actions, r.duration, r.lastSuccess, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveReport records an apply run. A nil report (rejected plan) still
// counts as a failed run.
func (r *Recorder) ObserveReport(report *provision.Report, runErr error) {
	finished := time.Now()
	var elapsed time.Duration
	if report != nil {
		for _, a := range report.Actions {
			r.actions.WithLabelValues(string(a.Kind), string(a.Status)).Inc()
		}
		if !report.FinishedAt.IsZero() {
			finished = report.FinishedAt
			elapsed = report.Duration()
		}
	}
	r.observeRun("apply", finished, elapsed, runErr == nil)
}

// ObserveVerification records a verify run that started at startedAt.
func (r *Recorder) ObserveVerification(result *verify.Result, startedAt time.Time, runErr error) {
	passed := runErr == nil
	if result != nil {
		for _, f := range result.Findings {
			status := "passed"
			if !f.Passed {
				status = "failed"
			}
			r.actions.WithLabelValues("check", status).Inc()
		}
		passed = passed && result.Passed()
	}
	now := time.Now()
	r.observeRun("verify", now, now.Sub(startedAt), passed)
}

func (r *Recorder) observeRun(command string, at time.Time, elapsed time.Duration, ok bool) {
	r.duration.WithLabelValues(command).Observe(elapsed.Seconds())
	r.lastRun.WithLabelValues(command).Set(float64(at.Unix()))
	success := 0.0
	if ok {
		success = 1
	}
	r.lastSuccess.WithLabelValues(command).Set(success)
}

// WriteTextfile writes the registry to path in the text exposition format.
// An empty path disables the export.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create metrics directory %s", dir)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
