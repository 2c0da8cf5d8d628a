// Package worker runs scheduled jobs, one goroutine per configured job so
// a job never overlaps itself while different jobs proceed independently.
package worker

import (
	"context"

	"github.com/raoulx24/rsync-backup/internal/job"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/mailbox"
)

// RunFunc executes one action of the named job.
type RunFunc func(ctx context.Context, name string, action job.Action) error

// Worker drains the mailbox of a single job.
type Worker struct {
	name string
	run  RunFunc
	log  logging.Logger
	mb   *mailbox.Mailbox[Job]
}

func New(name string, run RunFunc, log logging.Logger) *Worker {
	return &Worker{
		name: name,
		run:  run,
		log:  log.With("job", name),
		mb:   mailbox.New[Job](),
	}
}

// Submit hands j to the worker without blocking.
func (w *Worker) Submit(j Job) {
	if w.mb.PutWith(j, merge) {
		w.log.Info("run already pending, request merged", "backup", j.Backup, "verify", j.Verify)
	}
}

// Start runs the worker loop until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.loop(ctx, ctx)
}

// loop stops taking jobs once stop is done; runs use runCtx so a stopped
// worker completes the run in progress.
func (w *Worker) loop(stop, runCtx context.Context) {
	w.log.Info("starting worker")
	for {
		j, ok := w.mb.TakeContext(stop)
		if !ok {
			w.log.Info("worker stopped")
			return
		}
		w.Handle(runCtx, j)
		if w.mb.Pending() {
			w.log.Debug("request arrived during the run, starting again")
		}
	}
}

// Handle runs the backup before the verification when both are requested.
func (w *Worker) Handle(ctx context.Context, j Job) {
	w.log.Debug("handling job", "backup", j.Backup, "verify", j.Verify, "requested", j.Requested)

	if j.Backup {
		if err := w.run(ctx, w.name, job.Backup); err != nil {
			w.log.Error("backup failed", "error", err)
		}
	}
	if j.Verify && ctx.Err() == nil {
		if err := w.run(ctx, w.name, job.Verify); err != nil {
			w.log.Error("verification failed", "error", err)
		}
	}
}
