package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/raoulx24/rsync-backup/internal/runlog"
)

// PruneLogs removes run logs in dir that are more than days whole days
// old at now. The log at current is never removed. days < 1 disables pruning.
func (e *Engine) PruneLogs(ctx context.Context, dir, current string, days int, now time.Time, dryRun bool) (int, error) {
	if days < 1 {
		return 0, nil
	}

	e.log.Info("removing old backup logs", "older_than_days", days)

	logs, err := runlog.List(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, l := range logs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if l.Path == current || ageInDays(now, l.CreatedAt) <= days {
			continue
		}

		if dryRun {
			e.log.Info("removing log (DRY RUN)", "path", l.Path)
			continue
		}

		e.log.Info("removing log", "path", l.Path)
		if err := e.fs.RemoveAll(l.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", l.Path, err)
		}
		removed++
	}

	return removed, nil
}

func ageInDays(now, t time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}
