package trigger

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid trigger")

// Kind discriminates the trigger payload.
type Kind int

const (
	KindInterval Kind = iota + 1
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Interval is the payload of an interval trigger. Unit is kept verbatim so an
// unrecognized name surfaces through Validate instead of failing construction.
type Interval struct {
	Every int
	Unit  string
}

// Range is the payload of a daily range trigger. At is derived once from
// Start/End when the trigger is built.
type Range struct {
	Start *TimeOfDay
	End   *TimeOfDay
	At    TimeOfDay
}

// Trigger is an immutable description of what to publish and when.
type Trigger struct {
	ID             string
	PublishChannel string
	Cmd            string
	Params         map[string]string

	Kind     Kind
	Interval *Interval
	Range    *Range
}

// NewInterval builds an interval trigger. It never fails; check Valid.
func NewInterval(id string, every int, unit, publishChannel, cmd string, params map[string]string) Trigger {
	return Trigger{
		ID:             id,
		PublishChannel: publishChannel,
		Cmd:            cmd,
		Params:         params,
		Kind:           KindInterval,
		Interval:       &Interval{Every: every, Unit: unit},
	}
}

// NewRange builds a daily range trigger and picks its fire time.
//
// A nil start yields a trigger that fails Validate. Malformed time strings are
// reported as ErrBadTime.
func NewRange(id string, start, end *string, publishChannel, cmd string, params map[string]string) (Trigger, error) {
	t := Trigger{
		ID:             id,
		PublishChannel: publishChannel,
		Cmd:            cmd,
		Params:         params,
		Kind:           KindRange,
		Range:          &Range{},
	}
	if start != nil {
		st, err := ParseTimeOfDay(*start)
		if err != nil {
			return Trigger{}, fmt.Errorf("trigger %q startTime: %w", id, err)
		}
		t.Range.Start = &st
	}
	if end != nil {
		et, err := ParseTimeOfDay(*end)
		if err != nil {
			return Trigger{}, fmt.Errorf("trigger %q endTime: %w", id, err)
		}
		t.Range.End = &et
	}
	if t.Range.Start != nil {
		at, err := PickTime(*t.Range.Start, t.Range.End, randReader)
		if err != nil {
			return Trigger{}, fmt.Errorf("trigger %q: %w", id, err)
		}
		t.Range.At = at
	}
	return t, nil
}

// Validate reports why the trigger cannot be scheduled, or nil.
func (t Trigger) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id required", ErrInvalid)
	}
	if t.PublishChannel == "" {
		return fmt.Errorf("%w: publishChannel required", ErrInvalid)
	}
	switch t.Kind {
	case KindInterval:
		if t.Interval == nil {
			return fmt.Errorf("%w: interval payload missing", ErrInvalid)
		}
		if t.Interval.Every <= 0 {
			return fmt.Errorf("%w: interval must be > 0, got %d", ErrInvalid, t.Interval.Every)
		}
		u, err := ParseUnit(t.Interval.Unit)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if int64(t.Interval.Every) > math.MaxInt64/int64(u.Duration()) {
			return fmt.Errorf("%w: interval overflows: %d %s", ErrInvalid, t.Interval.Every, u)
		}
	case KindRange:
		if t.Range == nil || t.Range.Start == nil {
			return fmt.Errorf("%w: startTime required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalid, t.Kind)
	}
	return nil
}

func (t Trigger) Valid() bool { return t.Validate() == nil }

// Period returns the repeat period of an interval trigger (0 for other kinds or
// an unknown unit).
func (t Trigger) Period() time.Duration {
	if t.Kind != KindInterval || t.Interval == nil {
		return 0
	}
	return time.Duration(t.Interval.Every) * Unit(t.Interval.Unit).Duration()
}

// Equal compares every configured field. The picked range time is derived, so it
// is not compared.
func (t Trigger) Equal(o Trigger) bool {
	if t.Kind != o.Kind || t.ID != o.ID || t.PublishChannel != o.PublishChannel || t.Cmd != o.Cmd {
		return false
	}
	if (t.Params == nil) != (o.Params == nil) || !maps.Equal(t.Params, o.Params) {
		return false
	}
	switch t.Kind {
	case KindInterval:
		if t.Interval == nil || o.Interval == nil {
			return t.Interval == o.Interval
		}
		return *t.Interval == *o.Interval
	case KindRange:
		if t.Range == nil || o.Range == nil {
			return t.Range == o.Range
		}
		return sameTime(t.Range.Start, o.Range.Start) && sameTime(t.Range.End, o.Range.End)
	}
	return true
}

func sameTime(a, b *TimeOfDay) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (t Trigger) String() string {
	var b strings.Builder
	switch t.Kind {
	case KindInterval:
		b.WriteString("IntervalTrigger{")
		if t.Interval != nil {
			fmt.Fprintf(&b, "interval=%d, unit=%s, ", t.Interval.Every, t.Interval.Unit)
		}
	case KindRange:
		b.WriteString("RangeTrigger{")
		if t.Range != nil {
			fmt.Fprintf(&b, "startTime=%s, endTime=%s, time=%s, ", fmtTime(t.Range.Start), fmtTime(t.Range.End), t.Range.At)
		}
	default:
		b.WriteString("Trigger{")
	}
	fmt.Fprintf(&b, "id=%q, publishChannel=%q, cmd=%q, params=%v}", t.ID, t.PublishChannel, t.Cmd, t.Params)
	return b.String()
}

func fmtTime(t *TimeOfDay) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
