package module

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trigsched/internal/eventbus"
	"trigsched/internal/fire"
	"trigsched/internal/schedule"
	"trigsched/internal/storage"
	"trigsched/internal/trigger"
	logx "trigsched/pkg/logx"
)

type fakeSchedule struct {
	mu        sync.Mutex
	intervals []string
	ranges    []string
	groups    map[string]bool
	startOK   bool
	started   bool
	stopped   bool
}

func (f *fakeSchedule) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.startOK
}
func (f *fakeSchedule) Suspend() bool { return true }
func (f *fakeSchedule) Resume() bool  { return true }
func (f *fakeSchedule) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return true
}
func (f *fakeSchedule) CheckJobExists(string, string) bool { return false }
func (f *fakeSchedule) ScheduleIntervalTrigger(t *trigger.Trigger, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intervals = append(f.intervals, t.ID)
	f.groups[group] = true
}
func (f *fakeSchedule) ScheduleRangeTrigger(t *trigger.Trigger, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, t.ID)
	f.groups[group] = true
}

var _ schedule.Schedule = (*fakeSchedule)(nil)

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (s *stateLog) SetState(st State, _ string) {
	s.mu.Lock()
	s.states = append(s.states, st)
	s.mu.Unlock()
}

func strp(s string) *string { return &s }

func defs() trigger.Definitions {
	return trigger.Definitions{
		IntervalTriggers: []trigger.IntervalDefinition{
			{ID: "i1", Interval: 1, Unit: "SECONDS", PublishChannel: "/a"},
			{ID: "i2", Interval: 5, Unit: "MINUTES", PublishChannel: "/b", Cmd: "go"},
			{ID: "bad", Interval: 1, Unit: "DAYS", PublishChannel: "/c"},
		},
		RangeTriggers: []trigger.RangeDefinition{
			{ID: "r1", StartTime: strp("9:00 AM"), EndTime: strp("10:00 AM"), PublishChannel: "/d"},
			{ID: "r-bad", PublishChannel: "/e"},
		},
	}
}

func TestRunRegistersValidTriggersAndStarts(t *testing.T) {
	t.Parallel()
	fs := &fakeSchedule{startOK: true, groups: map[string]bool{}}
	sl := &stateLog{}
	m := New(fs, WithGroup("SchedulerModule"), WithSinks(sl))

	require.NoError(t, m.Run(context.Background(), defs()))
	assert.Equal(t, StateRunning, m.State())

	sort.Strings(fs.intervals)
	assert.Equal(t, []string{"i1", "i2"}, fs.intervals)
	assert.Equal(t, []string{"r1"}, fs.ranges)
	assert.Equal(t, map[string]bool{"SchedulerModule": true}, fs.groups)
	assert.True(t, fs.started)

	assert.True(t, m.Stop(StopAppStop))
	assert.True(t, fs.stopped)
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, []State{StateRunning, StateStopped}, sl.states)
}

func TestRunWithoutValidTriggersIsError(t *testing.T) {
	t.Parallel()
	fs := &fakeSchedule{startOK: true, groups: map[string]bool{}}
	m := New(fs)
	err := m.Run(context.Background(), trigger.Definitions{
		IntervalTriggers: []trigger.IntervalDefinition{{ID: "x", Interval: 0, Unit: "SECONDS", PublishChannel: "/x"}},
	})
	require.ErrorIs(t, err, ErrNoTriggers)
	assert.Equal(t, StateError, m.State())
	assert.False(t, fs.started)
}

func TestRunStartFailureIsError(t *testing.T) {
	t.Parallel()
	fs := &fakeSchedule{startOK: false, groups: map[string]bool{}}
	m := New(fs)
	require.ErrorIs(t, m.Run(context.Background(), defs()), ErrStartFailed)
	assert.Equal(t, StateError, m.State())
}

func TestRunHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	fs := &fakeSchedule{startOK: true, groups: map[string]bool{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New(fs)
	require.ErrorIs(t, m.Run(ctx, defs()), context.Canceled)
	assert.Equal(t, StateError, m.State())
	assert.Empty(t, fs.intervals)
}

func TestRunWithRealEngine(t *testing.T) {
	t.Parallel()
	fired := make(chan fire.Firing, 16)
	eng := schedule.New(schedule.FirerFunc(func(_ context.Context, f fire.Firing) error {
		select {
		case fired <- f:
		default:
		}
		return nil
	}))
	m := New(eng, WithGroup(""))
	require.NoError(t, m.Run(context.Background(), defs()))
	defer m.Stop(StopAppStop)

	assert.True(t, eng.CheckJobExists("i1", ""))
	assert.True(t, eng.CheckJobExists("r1", ""))
	assert.False(t, eng.CheckJobExists("bad", ""))

	select {
	case f := <-fired:
		assert.Contains(t, []string{"i1", "i2"}, f.TriggerID)
	case <-time.After(2 * time.Second):
		t.Fatal("interval trigger did not fire on start")
	}
}

func TestSystemdSink(t *testing.T) {
	t.Parallel()
	var got []string
	s := NewSystemdSink(logxNop())
	s.notify = func(_ bool, state string) (bool, error) {
		got = append(got, state)
		return true, nil
	}
	s.SetState(StateRunning, "2 triggers")
	s.SetState(StateError, "")
	s.SetState(StateStopped, "sigterm")
	s.SetState(StateStopped, string(StopConfigReload))
	assert.Equal(t, []string{
		"READY=1\nSTATUS=RUNNING: 2 triggers",
		"STATUS=ERROR",
		"STOPPING=1\nSTATUS=STOPPED: sigterm",
		"RELOADING=1\nSTATUS=STOPPED: config_reload",
	}, got)
}

type memStore struct {
	mu   sync.Mutex
	recs []storage.FiringRecord
}

func (s *memStore) AppendFiring(_ context.Context, r storage.FiringRecord) error {
	s.mu.Lock()
	s.recs = append(s.recs, r)
	s.mu.Unlock()
	return nil
}
func (s *memStore) RecentFirings(context.Context, int) ([]storage.FiringRecord, error) {
	return nil, nil
}
func (s *memStore) Close() error { return nil }

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func TestJournalAppendsReports(t *testing.T) {
	t.Parallel()
	b := eventbus.New()
	st := &memStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	go func() { _ = NewJournal(b, st, logxNop()).Run(ctx, ready) }()
	<-ready

	ts := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	b.Publish(eventbus.Event{Type: fire.TypeFired, Data: fire.Report{
		Message:     fire.NewMessage("t1", ts),
		Group:       "g",
		Destination: "/x$cmd",
		Command:     "on",
		Err:         "boom",
	}})
	b.Publish(eventbus.Event{Type: "/x$cmd", Data: "ignored"})

	require.Eventually(t, func() bool { return st.len() == 1 }, time.Second, 5*time.Millisecond)
	r := st.recs[0]
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "t1", r.TriggerID)
	assert.Equal(t, ts, r.FiredAt)
	assert.False(t, r.OK)
	assert.Equal(t, "boom", r.Error)
}

func logxNop() logx.Logger { return logx.Nop() }
