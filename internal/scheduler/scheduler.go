// Package scheduler turns the cron expressions of schedule.jobs into
// worker submissions.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/worker"
)

// Submitter receives the jobs that came due.
type Submitter interface {
	Submit(j worker.Job) bool
}

type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	sink    Submitter
	log     logging.Logger
	entries []cron.EntryID
}

func New(sink Submitter, log logging.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cronLogger{log})),
		sink: sink,
		log:  log,
	}
}

// Apply replaces the schedule. When any expression fails to parse the
// current schedule is kept.
func (s *Scheduler) Apply(jobs []config.ScheduledJob) error {
	type entry struct {
		sched cron.Schedule
		job   worker.Job
		expr  string
	}

	var next []entry
	for _, j := range jobs {
		if j.Job == "" {
			return fmt.Errorf("schedule entry without job name")
		}
		for _, e := range []struct {
			expr string
			job  worker.Job
		}{
			{j.Backup, worker.Job{Name: j.Job, Backup: true}},
			{j.Verify, worker.Job{Name: j.Job, Verify: true}},
		} {
			if e.expr == "" {
				continue
			}
			sched, err := cron.ParseStandard(e.expr)
			if err != nil {
				return fmt.Errorf("job %s: invalid cron expression %q: %w", j.Job, e.expr, err)
			}
			next = append(next, entry{sched: sched, job: e.job, expr: e.expr})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	for _, e := range next {
		j := e.job
		id := s.cron.Schedule(e.sched, cron.FuncJob(func() {
			due := j
			due.Requested = time.Now()
			s.sink.Submit(due)
		}))
		s.entries = append(s.entries, id)
		s.log.Info("scheduled", "job", j.Name, "backup", j.Backup, "verify", j.Verify, "cron", e.expr)
	}
	return nil
}

// Jobs returns the distinct job names of a schedule.
func Jobs(jobs []config.ScheduledJob) []string {
	seen := map[string]bool{}
	var out []string
	for _, j := range jobs {
		if j.Job != "" && !seen[j.Job] {
			seen[j.Job] = true
			out = append(out, j.Job)
		}
	}
	return out
}

// Next returns the next activation time of every entry. Times are zero
// until the scheduler is started.
func (s *Scheduler) Next() []time.Time {
	var out []time.Time
	for _, e := range s.cron.Entries() {
		out = append(out, e.Next)
	}
	return out
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule; running submissions are not waited for, they
// only hand jobs to the workers.
func (s *Scheduler) Stop() { s.cron.Stop() }

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
