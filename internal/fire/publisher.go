package fire

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"trigsched/internal/eventbus"
	"trigsched/internal/transport"
	logx "trigsched/pkg/logx"
)

var ErrInvalidDestination = errors.New("invalid destination")

const defaultWarnEvery = 30 * time.Second

type Option func(*Publisher)

func WithLogger(l logx.Logger) Option {
	return func(p *Publisher) {
		if !l.IsZero() {
			p.log = l
		}
	}
}

// WithBus sets where Reports are published. Without it no report is emitted.
func WithBus(b eventbus.Bus) Option { return func(p *Publisher) { p.bus = b } }

// WithWarnEvery bounds how often a failing trigger logs a warning. Suppressed
// failures are logged at debug level.
func WithWarnEvery(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.warnEvery = d
		}
	}
}

// Publisher is safe for concurrent use.
type Publisher struct {
	node      transport.Node
	log       logx.Logger
	bus       eventbus.Bus
	warnEvery time.Duration

	mu    sync.Mutex
	warns map[string]*rate.Limiter
}

func New(node transport.Node, opts ...Option) *Publisher {
	p := &Publisher{
		node:      node,
		log:       logx.Nop(),
		warnEvery: defaultWarnEvery,
		warns:     map[string]*rate.Limiter{},
	}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	return p
}

// Fire publishes the command request for f and announces it. The returned
// error is non-nil only for an unparsable destination.
func (p *Publisher) Fire(ctx context.Context, f Firing) error {
	if ctx == nil {
		ctx = context.Background()
	}
	firedAt := f.FiredAt
	if firedAt.IsZero() {
		firedAt = time.Now()
	}
	req := NewRequest(f.Cmd, f.Params)
	rep := Report{
		Message: NewMessage(f.TriggerID, firedAt),
		Group:   f.Group,
		Command: f.Cmd,
		NextAt:  f.NextAt,
	}

	dest, err := ResolveDestination(f.PublishChannel, f.Cmd)
	if err != nil {
		rep.Destination = f.PublishChannel
		rep.Err = err.Error()
		p.report(rep)
		return err
	}
	rep.Destination = dest.String()

	if err := p.publish(ctx, dest, req); err != nil {
		rep.Err = err.Error()
		p.warn(f.TriggerID, "trigger publish failed",
			logx.String("trigger", f.TriggerID),
			logx.String("group", f.Group),
			logx.String("dest", dest.String()),
			logx.Err(err),
		)
	} else {
		p.log.Debug("trigger published",
			logx.String("trigger", f.TriggerID),
			logx.String("dest", dest.String()),
		)
	}
	p.report(rep)
	if !f.NextAt.IsZero() {
		p.log.Info("trigger fired",
			logx.String("trigger", f.TriggerID),
			logx.String("group", f.Group),
			logx.Time("next", f.NextAt),
		)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, dest transport.Destination, req Request) (err error) {
	if p.node == nil {
		return errors.New("no transport node")
	}
	ch, err := p.node.OpenChannel(ctx, dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ch.Publish(ctx, req)
}

func (p *Publisher) report(r Report) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{Type: TypeFired, Time: *r.Message.Timestamp, Data: r})
}

func (p *Publisher) warn(id, msg string, fields ...logx.Field) {
	p.mu.Lock()
	lim, ok := p.warns[id]
	if !ok {
		lim = rate.NewLimiter(rate.Every(p.warnEvery), 1)
		p.warns[id] = lim
	}
	p.mu.Unlock()
	if lim.Allow() {
		p.log.Warn(msg, fields...)
		return
	}
	p.log.Debug(msg, fields...)
}
