package trigger

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownUnit = errors.New("unknown time unit")

// Unit is the time unit of an interval trigger. Names are case-sensitive.
type Unit string

const (
	UnitMilliseconds Unit = "MILLISECONDS"
	UnitSeconds      Unit = "SECONDS"
	UnitMinutes      Unit = "MINUTES"
	UnitHours        Unit = "HOURS"
)

// ParseUnit maps a canonical unit name to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(s); u {
	case UnitMilliseconds, UnitSeconds, UnitMinutes, UnitHours:
		return u, nil
	case "":
		return "", fmt.Errorf("%w: empty", ErrUnknownUnit)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
}

// Duration returns one unit as a time.Duration (0 for unknown units).
func (u Unit) Duration() time.Duration {
	switch u {
	case UnitMilliseconds:
		return time.Millisecond
	case UnitSeconds:
		return time.Second
	case UnitMinutes:
		return time.Minute
	case UnitHours:
		return time.Hour
	default:
		return 0
	}
}
