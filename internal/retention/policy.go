package retention

import (
	"fmt"
	"time"

	"github.com/raoulx24/rsync-backup/internal/snapshot"
)

// Keep is the retention count of an interval. A disabled Keep means the
// interval is neither created nor pruned; it is distinct from keeping zero.
type Keep struct {
	enabled bool
	n       int
}

// KeepLast keeps the n most recent snapshots. n < 1 disables the interval.
func KeepLast(n int) Keep {
	if n < 1 {
		return Keep{}
	}
	return Keep{enabled: true, n: n}
}

// Disabled returns a Keep that turns the interval off.
func Disabled() Keep {
	return Keep{}
}

func (k Keep) Enabled() bool { return k.enabled }
func (k Keep) Count() int    { return k.n }

func (k Keep) String() string {
	if !k.enabled {
		return "disabled"
	}
	return fmt.Sprintf("keep %d", k.n)
}

// Period is the calendar period an interval creates one snapshot for.
type Period int

const (
	Day Period = iota
	Month
	Year
)

// Prefix returns the snapshot stamp prefix shared by every snapshot taken
// in the same period as now.
func (p Period) Prefix(now time.Time) string {
	switch p {
	case Year:
		return now.Format("2006")
	case Month:
		return now.Format("2006-01")
	default:
		return now.Format("2006-01-02")
	}
}

// Policy is the retention configuration of one interval label.
type Policy struct {
	Label  snapshot.Label
	Period Period
	Keep   Keep
}

// Policies returns the daily, monthly and yearly policies in that order.
func Policies(daily, monthly, yearly int) []Policy {
	return []Policy{
		{Label: snapshot.Daily, Period: Day, Keep: KeepLast(daily)},
		{Label: snapshot.Monthly, Period: Month, Keep: KeepLast(monthly)},
		{Label: snapshot.Yearly, Period: Year, Keep: KeepLast(yearly)},
	}
}
