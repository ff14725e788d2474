package schedule

import (
	"time"

	"github.com/robfig/cron/v3"

	"trigsched/internal/trigger"
)

const day = 24 * time.Hour

// everySchedule fires at anchor, anchor+every, anchor+2*every, ...
//
// Unlike cron.Every it keeps sub-second periods and stays on the anchor's
// phase, so a late worker skips missed occurrences instead of drifting.
type everySchedule struct {
	anchor time.Time
	every  time.Duration
}

var _ cron.Schedule = everySchedule{}

// Next returns the first occurrence strictly after t.
func (s everySchedule) Next(t time.Time) time.Time {
	if t.Before(s.anchor) {
		return s.anchor
	}
	if s.every <= 0 {
		return time.Time{}
	}
	n := t.Sub(s.anchor)/s.every + 1
	return s.anchor.Add(n * s.every)
}

// intervalSchedule starts at the activation instant.
func intervalSchedule(now time.Time, every time.Duration) everySchedule {
	return everySchedule{anchor: now, every: every}
}

// dailySchedule starts at the next wall-clock occurrence of at (today when
// it has not passed yet) and repeats every 24h of elapsed time.
func dailySchedule(at trigger.TimeOfDay, now time.Time, loc *time.Location) everySchedule {
	first := at.On(now, loc)
	if first.Before(now) {
		first = at.On(now.In(first.Location()).AddDate(0, 0, 1), loc)
	}
	return everySchedule{anchor: first, every: day}
}
