package schedule

import (
	"testing"
	"time"

	"trigsched/internal/trigger"
)

func TestEveryScheduleNext(t *testing.T) {
	t.Parallel()
	anchor := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := everySchedule{anchor: anchor, every: 250 * time.Millisecond}

	cases := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"before anchor", anchor.Add(-time.Hour), anchor},
		{"at anchor", anchor, anchor.Add(250 * time.Millisecond)},
		{"mid period", anchor.Add(300 * time.Millisecond), anchor.Add(500 * time.Millisecond)},
		{"on boundary", anchor.Add(time.Second), anchor.Add(1250 * time.Millisecond)},
		{"far behind skips", anchor.Add(time.Hour + 10*time.Millisecond), anchor.Add(time.Hour + 250*time.Millisecond)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Next(tc.at); !got.Equal(tc.want) {
				t.Fatalf("Next(%v)=%v want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestDailySchedule(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("X", 2*3600)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, loc)

	later := dailySchedule(trigger.Clock(11, 30), now, loc)
	if want := time.Date(2026, 5, 1, 11, 30, 0, 0, loc); !later.anchor.Equal(want) {
		t.Fatalf("today: got %v want %v", later.anchor, want)
	}

	passed := dailySchedule(trigger.Clock(9, 0), now, loc)
	if want := time.Date(2026, 5, 2, 9, 0, 0, 0, loc); !passed.anchor.Equal(want) {
		t.Fatalf("tomorrow: got %v want %v", passed.anchor, want)
	}

	exact := dailySchedule(trigger.Clock(10, 0), now, loc)
	if !exact.anchor.Equal(now) {
		t.Fatalf("now: got %v", exact.anchor)
	}

	if got, want := later.Next(later.anchor), later.anchor.Add(day); !got.Equal(want) {
		t.Fatalf("next day: got %v want %v", got, want)
	}
}
