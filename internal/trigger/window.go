package trigger

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

// GuardFactor is the share of a window's tail that is never picked, so a
// subscriber whose work fails at the picked time can still retry inside the window.
const GuardFactor = 0.10

// randReader is the entropy source used by NewRange.
var randReader io.Reader = rand.Reader

// WindowPeriod returns the length of [start, end). If end is not after start the
// window runs past midnight, so equal times describe a full day.
func WindowPeriod(start, end TimeOfDay) time.Duration {
	if end.off > start.off {
		return end.off - start.off
	}
	return day + (end.off - start.off)
}

// GuardedPeriod is the part of the window that PickTime draws from, in whole seconds.
func GuardedPeriod(start, end TimeOfDay) time.Duration {
	period := int64(WindowPeriod(start, end) / time.Second)
	period -= int64(float64(period) * GuardFactor)
	return time.Duration(period) * time.Second
}

// PickTime returns start when end is nil; otherwise a uniformly random time in
// [start, start+GuardedPeriod) drawn from r and rounded down to the minute.
func PickTime(start TimeOfDay, end *TimeOfDay, r io.Reader) (TimeOfDay, error) {
	if end == nil {
		return start, nil
	}
	period := int64(GuardedPeriod(start, *end) / time.Second)
	if period <= 0 {
		return start, nil
	}
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(period))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("draw trigger time: %w", err)
	}
	return start.Add(time.Duration(n.Int64()) * time.Second).Truncate(time.Minute), nil
}
