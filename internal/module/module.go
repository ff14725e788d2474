package module

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"trigsched/internal/schedule"
	"trigsched/internal/trigger"
	logx "trigsched/pkg/logx"
)

var (
	ErrNoTriggers  = errors.New("no valid triggers")
	ErrStartFailed = errors.New("schedule failed to start")
)

type Option func(*Module)

// WithGroup sets the group every trigger is registered under.
func WithGroup(g string) Option { return func(m *Module) { m.group = g } }

func WithLogger(l logx.Logger) Option {
	return func(m *Module) {
		if !l.IsZero() {
			m.log = l
		}
	}
}

func WithSinks(sinks ...StateSink) Option {
	return func(m *Module) {
		for _, s := range sinks {
			if s != nil {
				m.sinks = append(m.sinks, s)
			}
		}
	}
}

type Module struct {
	sched schedule.Schedule
	group string
	log   logx.Logger
	sinks []StateSink

	mu    sync.Mutex
	state State
}

func New(sched schedule.Schedule, opts ...Option) *Module {
	m := &Module{sched: sched, log: logx.Nop(), state: StateIdle}
	for _, o := range opts {
		if o != nil {
			o(m)
		}
	}
	return m
}

func (m *Module) Group() string { return m.group }

func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run registers every valid definition concurrently, then starts the
// schedule. The module ends RUNNING, or ERROR with a non-nil error.
func (m *Module) Run(ctx context.Context, defs trigger.Definitions) error {
	intervals, ranges := defs.Build(m.log)
	n := len(intervals) + len(ranges)
	if n == 0 {
		m.setState(StateError, ErrNoTriggers.Error())
		return ErrNoTriggers
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range intervals {
		t := &intervals[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m.sched.ScheduleIntervalTrigger(t, m.group)
			return nil
		})
	}
	for i := range ranges {
		t := &ranges[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m.sched.ScheduleRangeTrigger(t, m.group)
			m.log.Info("range trigger registered",
				logx.String("trigger", t.ID),
				logx.String("at", t.Range.At.String()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.setState(StateError, err.Error())
		return fmt.Errorf("register triggers: %w", err)
	}

	if !m.sched.Start() {
		m.setState(StateError, ErrStartFailed.Error())
		return ErrStartFailed
	}
	m.setState(StateRunning, fmt.Sprintf("%d triggers in group %q", n, m.group))
	return nil
}

// Stop stops the schedule. The module is STOPPED afterwards.
func (m *Module) Stop(reason StopReason) bool {
	if reason == "" {
		reason = StopUnknown
	}
	ok := m.sched.Stop()
	m.setState(StateStopped, string(reason))
	return ok
}

func (m *Module) setState(s State, detail string) {
	m.mu.Lock()
	m.state = s
	sinks := append([]StateSink(nil), m.sinks...)
	m.mu.Unlock()
	for _, sink := range sinks {
		sink.SetState(s, detail)
	}
}
