// Package metrics exports the outcome of a run as a node-exporter textfile.
package metrics

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

// Run collects the gauges of a single run. Each run owns its registry so
// the textfile holds exactly one job.
type Run struct {
	reg *prometheus.Registry

	lastRun      prometheus.Gauge
	success      prometheus.Gauge
	duration     prometheus.Gauge
	transferred  prometheus.Gauge
	checksums    *prometheus.GaugeVec
	snapshots    *prometheus.GaugeVec
	removed      prometheus.Gauge
	verified     prometheus.Gauge
	verifyFailed prometheus.Gauge
}

func NewRun(job string) *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"job": job}, reg))

	return &Run{
		reg: reg,
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		success: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_last_run_success",
			Help: "1 if the last run succeeded, 0 otherwise",
		}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_last_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		transferred: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_transferred_files",
			Help: "Files written by rsync in the last run",
		}),
		checksums: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rsync_backup_checksums",
			Help: "Checksums of the new snapshot by origin",
		}, []string{"source"}), // "transfer", "inherited", "computed"
		snapshots: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rsync_backup_snapshots",
			Help: "Snapshots on disk by interval",
		}, []string{"interval"}),
		removed: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_snapshots_removed",
			Help: "Snapshots removed by retention in the last run",
		}),
		verified: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_verified_files",
			Help: "Files checked by the last verification",
		}),
		verifyFailed: f.NewGauge(prometheus.GaugeOpts{
			Name: "rsync_backup_verification_failures",
			Help: "Files that failed the last verification",
		}),
	}
}

func (r *Run) ObserveTransfer(changed, transferred, inherited, computed int) {
	r.transferred.Set(float64(changed))
	r.checksums.WithLabelValues("transfer").Set(float64(transferred))
	r.checksums.WithLabelValues("inherited").Set(float64(inherited))
	r.checksums.WithLabelValues("computed").Set(float64(computed))
}

func (r *Run) ObserveCatalog(cat *snapshot.Catalog, removed int) {
	for _, l := range []snapshot.Label{snapshot.Daily, snapshot.Monthly, snapshot.Yearly, snapshot.Custom, snapshot.Incomplete} {
		r.snapshots.WithLabelValues(string(l)).Set(float64(len(cat.ByLabel(l))))
	}
	r.removed.Set(float64(removed))
}

func (r *Run) ObserveVerification(checked, failed int) {
	r.verified.Set(float64(checked))
	r.verifyFailed.Set(float64(failed))
}

func (r *Run) Finish(success bool, started, finished time.Time) {
	r.lastRun.Set(float64(finished.Unix()))
	r.duration.Set(finished.Sub(started).Seconds())
	if success {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
}

// FileName is the textfile of a job label.
func FileName(label string) string {
	return fmt.Sprintf("rsync_backup_%s.prom", label)
}

// WriteTextfile atomically replaces dir/FileName(label).
func (r *Run) WriteTextfile(dir, label string) error {
	path := filepath.Join(dir, FileName(label))
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
