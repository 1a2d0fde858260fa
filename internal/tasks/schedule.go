package tasks

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Farthest back a tick is searched for; covers yearly schedules.
const maxTickLookback = 400 * 24 * time.Hour

// scheduledAt returns the latest tick of cronExpr at or before now, evaluated
// in loc. A retried run lands on the tick of its first attempt as long as
// the retry starts before the next tick.
func scheduledAt(cronExpr string, loc *time.Location, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron %q: %w", cronExpr, err)
	}
	now = now.In(loc)

	for back := time.Minute; back <= maxTickLookback; back *= 2 {
		tick := sched.Next(now.Add(-back))
		if tick.IsZero() || tick.After(now) {
			continue
		}
		for {
			next := sched.Next(tick)
			if next.IsZero() || next.After(now) {
				return tick, nil
			}
			tick = next
		}
	}
	return time.Time{}, fmt.Errorf("no tick of %q within %s", cronExpr, maxTickLookback)
}

// fireTime is the scheduled timestamp of a run of def handled at now.
func fireTime(def Definition, now time.Time) (time.Time, error) {
	tz := def.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return scheduledAt(def.Cron, loc, now)
}
