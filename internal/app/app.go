package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"trigsched/internal/config"
	"trigsched/internal/eventbus"
	"trigsched/internal/fire"
	"trigsched/internal/module"
	"trigsched/internal/runtime/supervisor"
	"trigsched/internal/schedule"
	"trigsched/internal/storage"
	"trigsched/internal/transport"
	logx "trigsched/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	sd    *module.SystemdSink

	mu   sync.Mutex
	node transport.Node
	run  *runtime
}

// runtime is one engine and its module. A stopped engine is never reused: a
// reload builds a new runtime.
type runtime struct {
	eng *schedule.Engine
	mod *module.Module
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	b := eventbus.New()

	node, driver, err := newNode(cfg, b)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	log.Info("transport ready", logx.String("driver", driver))

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		bus:   b,
		store: store,
		sd:    module.NewSystemdSink(log.With(logx.String("comp", "systemd"))),
		node:  node,
	}, nil
}

// Bus exposes the event bus so in-process consumers can subscribe to
// destinations and fired reports.
func (a *App) Bus() eventbus.Bus { return a.bus }

func (a *App) Store() storage.Store { return a.store }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Snapshot returns the current engine view, or false before Start.
func (a *App) Snapshot() (schedule.Snapshot, bool) {
	a.mu.Lock()
	rt := a.run
	a.mu.Unlock()
	if rt == nil {
		return schedule.Snapshot{}, false
	}
	return rt.eng.Snapshot(), true
}

// Start runs the configured triggers and begins watching the config file.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapLocation(cfg); err != nil {
			return err
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		_, _, err := newNode(cfg, a.bus)
		return err
	})

	if a.store != nil {
		ready := make(chan struct{})
		j := module.NewJournal(a.bus, a.store, a.log.With(logx.String("comp", "journal")))
		a.sup.Go("journal", func(c context.Context) error { return j.Run(c, ready) })
		<-ready
	}

	// Debug view of every event (fired reports and in-process publishes).
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Trace("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	if err := a.startRuntime(a.cfgm.Get()); err != nil {
		return err
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) startRuntime(cfg *config.Config) error {
	loc, err := mapLocation(cfg)
	if err != nil {
		return err
	}
	a.mu.Lock()
	node := a.node
	a.mu.Unlock()

	pub := fire.New(node,
		fire.WithLogger(a.log.With(logx.String("comp", "fire"))),
		fire.WithBus(a.bus),
	)
	eng := schedule.New(pub,
		schedule.WithLogger(a.log.With(logx.String("comp", "schedule"))),
		schedule.WithLocation(loc),
		schedule.WithContext(a.sup.Context()),
	)
	mod := module.New(eng,
		module.WithGroup(cfg.Scheduler.Group),
		module.WithLogger(a.log.With(logx.String("comp", "module"))),
		module.WithSinks(module.LogSink{Log: a.log.With(logx.String("comp", "module"))}, a.sd),
	)

	a.mu.Lock()
	a.run = &runtime{eng: eng, mod: mod}
	a.mu.Unlock()

	if err := mod.Run(a.sup.Context(), cfg.Triggers); err != nil {
		return fmt.Errorf("module: %w", err)
	}
	return nil
}

func (a *App) stopRuntime(reason module.StopReason) {
	a.mu.Lock()
	rt := a.run
	a.run = nil
	a.mu.Unlock()
	if rt != nil {
		rt.mod.Stop(reason)
	}
}

func (a *App) reloadLoop(c context.Context, sub <-chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-c.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					drained = true
				}
			}
			a.apply(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// apply hot-reloads newCfg. Logging is applied in place; any change to the
// scheduler, transport or triggers replaces the runtime.
func (a *App) apply(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)

	if slices.Contains(sections, "logging") {
		a.logs.Apply(mapLogConfig(newCfg))
	}
	if slices.Contains(sections, "storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}
	if slices.Contains(sections, "transport") {
		node, driver, err := newNode(newCfg, a.bus)
		if err != nil {
			a.log.Warn("invalid transport config; keeping previous", logx.Err(err))
		} else {
			a.mu.Lock()
			a.node = node
			a.mu.Unlock()
			a.log.Info("transport replaced", logx.String("driver", driver))
		}
	}

	if !slices.ContainsFunc(sections, func(s string) bool {
		return s == "scheduler" || s == "transport" || s == "triggers"
	}) {
		return
	}
	a.stopRuntime(module.StopConfigReload)
	if err := a.startRuntime(newCfg); err != nil {
		// Keep running without triggers; the next valid reload retries.
		a.log.Error("runtime restart failed", logx.Err(err))
	}
}

func (a *App) Stop(ctx context.Context, reason module.StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Stop the schedule first so no firing races the shutdown of its sinks.
	a.step(ctx, "module", 3*time.Second, func(context.Context) error {
		a.stopRuntime(reason)
		return nil
	})
	a.sup.Cancel()
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	if err := a.sup.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// step runs fn with an upper bound so one component can't stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		// respect the caller's deadline; never extend it
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		// fn must honor stepCtx; if it doesn't, log and move on.
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
