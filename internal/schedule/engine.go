package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"trigsched/internal/fire"
	"trigsched/internal/trigger"
	logx "trigsched/pkg/logx"
)

// Schedule is the lifecycle and registration surface used by the module host.
type Schedule interface {
	Start() bool
	Suspend() bool
	Resume() bool
	Stop() bool
	CheckJobExists(id, group string) bool
	ScheduleIntervalTrigger(t *trigger.Trigger, group string)
	ScheduleRangeTrigger(t *trigger.Trigger, group string)
}

// Firer performs one firing. A non-nil error is logged and counted; the job
// stays registered.
type Firer interface {
	Fire(ctx context.Context, f fire.Firing) error
}

// FirerFunc adapts a function to Firer.
type FirerFunc func(ctx context.Context, f fire.Firing) error

func (fn FirerFunc) Fire(ctx context.Context, f fire.Firing) error { return fn(ctx, f) }

// Key identifies a job. Both parts compare exactly; "" is a valid group.
type Key struct {
	ID    string
	Group string
}

type job struct {
	key     Key
	trig    trigger.Trigger
	sched   cron.Schedule
	pending bool
	next    time.Time
	prev    time.Time
	fired   uint64
}

type Option func(*Engine)

func WithLogger(l logx.Logger) Option {
	return func(e *Engine) {
		if !l.IsZero() {
			e.log = l
		}
	}
}

// WithLocation sets the zone used to place range triggers on the wall clock.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithClock replaces time.Now when computing fire times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithContext sets the parent of the context passed to Firer.Fire.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.parent = ctx
		}
	}
}

// Engine implements Schedule.
type Engine struct {
	id     string
	firer  Firer
	log    logx.Logger
	loc    *time.Location
	now    func() time.Time
	parent context.Context

	mu       sync.Mutex
	state    State
	jobs     map[Key]*job
	launched bool
	fired    uint64
	failed   uint64

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	quit   chan struct{}
	done   chan struct{}
}

var _ Schedule = (*Engine)(nil)

func New(firer Firer, opts ...Option) *Engine {
	e := &Engine{
		id:     uuid.NewString(),
		firer:  firer,
		log:    logx.Nop(),
		loc:    time.Local,
		now:    time.Now,
		parent: context.Background(),
		jobs:   map[Key]*job{},
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	e.log = e.log.With(logx.String("schedule", e.id))
	e.ctx, e.cancel = context.WithCancel(e.parent)
	return e
}

func (e *Engine) ID() string { return e.id }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start activates pending jobs and launches the worker on first use.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Stopped:
		e.log.Warn("start on stopped schedule")
		return false
	case Started:
		return true
	}
	e.state = Started
	if !e.launched {
		e.launched = true
		go e.run()
	}
	e.rearmLocked(e.now())
	e.log.Info("schedule started", logx.Int("jobs", len(e.jobs)))
	return true
}

// Suspend pauses firing. Jobs are kept.
func (e *Engine) Suspend() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Stopped:
		return false
	case Suspended:
		return true
	}
	e.state = Suspended
	e.signal()
	e.log.Info("schedule suspended")
	return true
}

// Resume continues a suspended engine. Next fire times are recomputed from
// now; occurrences missed while suspended are skipped.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Stopped:
		return false
	case Created, Started:
		return true
	}
	if !e.launched {
		e.state = Created
		return true
	}
	e.state = Started
	e.rearmLocked(e.now())
	e.log.Info("schedule resumed", logx.Int("jobs", len(e.jobs)))
	return true
}

// Stop discards every job and waits for an in-flight firing to return. It must
// not be called from within Firer.Fire.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	if e.state == Stopped {
		e.mu.Unlock()
		return true
	}
	e.state = Stopped
	n := len(e.jobs)
	e.jobs = map[Key]*job{}
	launched := e.launched
	close(e.quit)
	e.cancel()
	e.mu.Unlock()

	if launched {
		<-e.done
	}
	e.log.Info("schedule stopped", logx.Int("discarded", n))
	return true
}

func (e *Engine) CheckJobExists(id, group string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.jobs[Key{ID: id, Group: group}]
	return ok
}

func (e *Engine) ScheduleIntervalTrigger(t *trigger.Trigger, group string) {
	e.register(t, group, trigger.KindInterval)
}

func (e *Engine) ScheduleRangeTrigger(t *trigger.Trigger, group string) {
	e.register(t, group, trigger.KindRange)
}

func (e *Engine) register(t *trigger.Trigger, group string, kind trigger.Kind) {
	if t == nil {
		e.log.Warn("ignoring nil trigger", logx.String("group", group), logx.String("kind", kind.String()))
		return
	}
	if err := t.Validate(); err != nil {
		e.log.Warn("ignoring invalid trigger", logx.String("trigger", t.String()), logx.Err(err))
		return
	}
	if t.Kind != kind {
		e.log.Warn("ignoring trigger of wrong kind",
			logx.String("trigger", t.ID),
			logx.String("want", kind.String()),
			logx.String("got", t.Kind.String()),
		)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Stopped {
		e.log.Warn("ignoring trigger on stopped schedule", logx.String("trigger", t.ID))
		return
	}
	k := Key{ID: t.ID, Group: group}
	j := &job{key: k, trig: *t, pending: true}
	_, replaced := e.jobs[k]
	e.jobs[k] = j
	if e.state == Started {
		e.activateLocked(j, e.now())
		e.signal()
	}
	e.log.Debug("trigger registered",
		logx.String("trigger", t.ID),
		logx.String("group", group),
		logx.String("kind", kind.String()),
		logx.Bool("replaced", replaced),
		logx.Bool("pending", j.pending),
	)
}

func (e *Engine) activateLocked(j *job, now time.Time) {
	var s everySchedule
	switch j.trig.Kind {
	case trigger.KindInterval:
		s = intervalSchedule(now, j.trig.Period())
	case trigger.KindRange:
		s = dailySchedule(j.trig.Range.At, now, e.loc)
	}
	j.sched = s
	j.next = s.anchor
	j.pending = false
}

// rearmLocked activates pending jobs and moves the others to their next
// occurrence after now.
func (e *Engine) rearmLocked(now time.Time) {
	for _, j := range e.jobs {
		if j.pending {
			e.activateLocked(j, now)
			continue
		}
		if j.next.Before(now) {
			j.next = j.sched.Next(now)
		}
	}
	e.signal()
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) earliestLocked() *job {
	var best *job
	for _, j := range e.jobs {
		if j.pending || j.next.IsZero() {
			continue
		}
		if best == nil || j.next.Before(best.next) {
			best = j
		}
	}
	return best
}

func (e *Engine) run() {
	defer close(e.done)
	timer := time.NewTimer(time.Hour)
	stopTimer(timer)

	for {
		e.mu.Lock()
		if e.state == Stopped {
			e.mu.Unlock()
			return
		}
		var j *job
		if e.state == Started {
			j = e.earliestLocked()
		}
		now := e.now()
		if j != nil && !j.next.After(now) {
			f := e.advanceLocked(j, now)
			e.mu.Unlock()
			e.fire(f)
			continue
		}
		wait := time.Duration(-1)
		if j != nil {
			wait = j.next.Sub(now)
		}
		e.mu.Unlock()

		var tc <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			tc = timer.C
		}
		select {
		case <-tc:
		case <-e.wake:
			stopTimer(timer)
		case <-e.quit:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) advanceLocked(j *job, now time.Time) fire.Firing {
	scheduled := j.next
	j.prev = now
	j.next = j.sched.Next(now)
	j.fired++
	var params map[string]string
	if j.trig.Params != nil {
		params = make(map[string]string, len(j.trig.Params))
		for k, v := range j.trig.Params {
			params[k] = v
		}
	}
	return fire.Firing{
		TriggerID:      j.trig.ID,
		Group:          j.key.Group,
		PublishChannel: j.trig.PublishChannel,
		Cmd:            j.trig.Cmd,
		Params:         params,
		ScheduledAt:    scheduled,
		FiredAt:        now,
		NextAt:         j.next,
	}
}

func (e *Engine) fire(f fire.Firing) {
	var err error
	if e.firer != nil {
		err = e.firer.Fire(e.ctx, f)
	}
	e.mu.Lock()
	e.fired++
	if err != nil {
		e.failed++
	}
	e.mu.Unlock()
	if err != nil {
		e.log.Error("trigger firing failed",
			logx.String("trigger", f.TriggerID),
			logx.String("group", f.Group),
			logx.Err(err),
		)
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// JobInfo is a point-in-time view of one job. Pending jobs have no Next.
type JobInfo struct {
	Key     Key
	Kind    trigger.Kind
	Pending bool
	At      string
	Next    time.Time
	Prev    time.Time
	Fired   uint64
}

type Snapshot struct {
	ID     string
	State  State
	Jobs   []JobInfo
	Fired  uint64
	Failed uint64
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Snapshot{ID: e.id, State: e.state, Fired: e.fired, Failed: e.failed}
	out.Jobs = make([]JobInfo, 0, len(e.jobs))
	for _, j := range e.jobs {
		ji := JobInfo{Key: j.key, Kind: j.trig.Kind, Pending: j.pending, Next: j.next, Prev: j.prev, Fired: j.fired}
		if j.trig.Kind == trigger.KindRange && j.trig.Range != nil {
			ji.At = j.trig.Range.At.String()
		}
		out.Jobs = append(out.Jobs, ji)
	}
	sort.Slice(out.Jobs, func(a, b int) bool {
		if out.Jobs[a].Key.Group != out.Jobs[b].Key.Group {
			return out.Jobs[a].Key.Group < out.Jobs[b].Key.Group
		}
		return out.Jobs[a].Key.ID < out.Jobs[b].Key.ID
	})
	return out
}
