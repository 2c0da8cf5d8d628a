package worker

import "time"

// Job is a pending request to run a configured job. Requests for the same
// job coalesce: Backup and Verify are OR-ed together.
type Job struct {
	Name      string
	Backup    bool
	Verify    bool
	Requested time.Time
}

func merge(pending, next Job) Job {
	return Job{
		Name:      next.Name,
		Backup:    pending.Backup || next.Backup,
		Verify:    pending.Verify || next.Verify,
		Requested: pending.Requested,
	}
}
