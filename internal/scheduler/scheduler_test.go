package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/rsync-backup/internal/config"
	"github.com/raoulx24/rsync-backup/internal/logging"
	"github.com/raoulx24/rsync-backup/internal/worker"
)

type sink struct {
	mu   sync.Mutex
	jobs []worker.Job
}

func (s *sink) Submit(j worker.Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
	return true
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func TestApply(t *testing.T) {
	s := New(&sink{}, logging.Nop())

	require.NoError(t, s.Apply([]config.ScheduledJob{
		{Job: "www", Backup: "0 3 * * *", Verify: "0 5 * * 0"},
		{Job: "db", Backup: "@hourly"},
	}))
	assert.Len(t, s.cron.Entries(), 3)

	err := s.Apply([]config.ScheduledJob{{Job: "www", Backup: "not cron"}})
	assert.Error(t, err)
	assert.Len(t, s.cron.Entries(), 3, "previous schedule kept")

	require.NoError(t, s.Apply([]config.ScheduledJob{{Job: "www", Backup: "0 3 * * *"}}))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestNextAfterStart(t *testing.T) {
	s := New(&sink{}, logging.Nop())
	require.NoError(t, s.Apply([]config.ScheduledJob{{Job: "www", Backup: "@hourly", Verify: "@daily"}}))

	s.Start()
	defer s.Stop()

	next := s.Next()
	require.Len(t, next, 2)
	for _, at := range next {
		assert.True(t, at.After(time.Now().Add(-time.Second)), at)
	}
}

func TestJobs(t *testing.T) {
	assert.Equal(t, []string{"www", "db"}, Jobs([]config.ScheduledJob{
		{Job: "www", Backup: "@daily"},
		{Job: "db", Backup: "@daily"},
		{Job: "www", Verify: "@weekly"},
	}))
}

func TestEntriesSubmitJobs(t *testing.T) {
	out := &sink{}
	s := New(out, logging.Nop())
	require.NoError(t, s.Apply([]config.ScheduledJob{{Job: "www", Backup: "@every 1s"}}))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return out.count() > 0 }, 3*time.Second, 20*time.Millisecond)
	out.mu.Lock()
	j := out.jobs[0]
	out.mu.Unlock()
	assert.Equal(t, "www", j.Name)
	assert.True(t, j.Backup)
	assert.False(t, j.Requested.IsZero())
}
