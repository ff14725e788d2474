package trigger

import (
	logx "trigsched/pkg/logx"
)

// IntervalDefinition is the decoded form of an interval trigger.
type IntervalDefinition struct {
	ID             string            `json:"id"`
	Interval       int               `json:"interval"`
	Unit           string            `json:"unit"`
	PublishChannel string            `json:"publishChannel"`
	Cmd            string            `json:"cmd,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
}

// RangeDefinition is the decoded form of a range trigger.
type RangeDefinition struct {
	ID             string            `json:"id"`
	StartTime      *string           `json:"startTime,omitempty"`
	EndTime        *string           `json:"endTime,omitempty"`
	PublishChannel string            `json:"publishChannel"`
	Cmd            string            `json:"cmd,omitempty"`
	Params         map[string]string `json:"params,omitempty"`
}

// Definitions holds every configured trigger, valid or not.
type Definitions struct {
	IntervalTriggers []IntervalDefinition `json:"intervalTriggers,omitempty"`
	RangeTriggers    []RangeDefinition    `json:"rangeTriggers,omitempty"`
}

func (d IntervalDefinition) Trigger() Trigger {
	return NewInterval(d.ID, d.Interval, d.Unit, d.PublishChannel, d.Cmd, d.Params)
}

func (d RangeDefinition) Trigger() (Trigger, error) {
	return NewRange(d.ID, d.StartTime, d.EndTime, d.PublishChannel, d.Cmd, d.Params)
}

// Len is the number of definitions, valid or not.
func (d Definitions) Len() int { return len(d.IntervalTriggers) + len(d.RangeTriggers) }

// Build constructs every definition and keeps the valid ones. Rejected
// definitions are logged and skipped; they never abort the batch.
func (d Definitions) Build(log logx.Logger) (intervals, ranges []Trigger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	for i, def := range d.IntervalTriggers {
		t := def.Trigger()
		if err := t.Validate(); err != nil {
			log.Warn("interval trigger ignored", logx.Int("index", i), logx.String("id", def.ID), logx.Err(err))
			continue
		}
		intervals = append(intervals, t)
	}
	for i, def := range d.RangeTriggers {
		t, err := def.Trigger()
		if err == nil {
			err = t.Validate()
		}
		if err != nil {
			log.Warn("range trigger ignored", logx.Int("index", i), logx.String("id", def.ID), logx.Err(err))
			continue
		}
		ranges = append(ranges, t)
	}
	log.Debug("triggers built",
		logx.Int("intervals", len(intervals)),
		logx.Int("ranges", len(ranges)),
		logx.Int("rejected", d.Len()-len(intervals)-len(ranges)),
	)
	return intervals, ranges
}
