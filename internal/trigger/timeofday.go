package trigger

import (
	"errors"
	"fmt"
	"time"
)

// TimeLayout is the only accepted time-of-day format ("h:mm a", e.g. "1:05 PM").
const TimeLayout = "3:04 PM"

const day = 24 * time.Hour

var ErrBadTime = errors.New("malformed time of day")

// TimeOfDay is a wall-clock time without a date, stored as an offset from midnight.
type TimeOfDay struct {
	off time.Duration
}

// ParseTimeOfDay parses s using TimeLayout.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q (want %q)", ErrBadTime, s, TimeLayout)
	}
	return Clock(t.Hour(), t.Minute()), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Clock builds a TimeOfDay from a 24h hour and a minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay{}.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Add moves the time forward by d, wrapping past midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	off := (t.off + d) % day
	if off < 0 {
		off += day
	}
	return TimeOfDay{off: off}
}

// Sub returns the offset from u to t going forward, in [0, 24h).
func (t TimeOfDay) Sub(u TimeOfDay) time.Duration {
	return TimeOfDay{}.Add(t.off - u.off).off
}

// Offset returns the duration since midnight.
func (t TimeOfDay) Offset() time.Duration { return t.off }

func (t TimeOfDay) Hour() int   { return int(t.off / time.Hour) }
func (t TimeOfDay) Minute() int { return int(t.off%time.Hour) / int(time.Minute) }

// Truncate rounds t down to a multiple of d.
func (t TimeOfDay) Truncate(d time.Duration) TimeOfDay {
	if d <= 0 {
		return t
	}
	return TimeOfDay{off: t.off - t.off%d}
}

// On returns the instant at which t occurs on the calendar day of ref in loc.
func (t TimeOfDay) On(ref time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	ref = ref.In(loc)
	y, m, d := ref.Date()
	sec := int(t.off / time.Second)
	return time.Date(y, m, d, sec/3600, (sec%3600)/60, sec%60, 0, loc)
}

func (t TimeOfDay) String() string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(t.off).Format(TimeLayout)
}
