package module

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trigsched/internal/eventbus"
	"trigsched/internal/fire"
	"trigsched/internal/storage"
	logx "trigsched/pkg/logx"
)

const journalBuffer = 256

// Journal appends every fired report seen on the bus to a store.
type Journal struct {
	bus   eventbus.Bus
	store storage.Store
	log   logx.Logger
}

func NewJournal(bus eventbus.Bus, store storage.Store, log logx.Logger) *Journal {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Journal{bus: bus, store: store, log: log}
}

// Run consumes reports until ctx is done. The subscription is taken before
// ready is closed (when non-nil), so callers can wait for it.
func (j *Journal) Run(ctx context.Context, ready chan<- struct{}) error {
	events, unsub := j.bus.Subscribe(journalBuffer, fire.TypeFired)
	defer unsub()
	if ready != nil {
		close(ready)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			rep, ok := e.Data.(fire.Report)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := j.store.AppendFiring(wctx, Record(rep, e.Time))
			cancel()
			if err != nil {
				j.log.Warn("journal append failed", logx.String("trigger", rep.Message.TriggerID), logx.Err(err))
			}
		}
	}
}

// Record converts a report into a journal record.
func Record(rep fire.Report, at time.Time) storage.FiringRecord {
	if rep.Message.Timestamp != nil {
		at = *rep.Message.Timestamp
	}
	return storage.FiringRecord{
		ID:          uuid.NewString(),
		TriggerID:   rep.Message.TriggerID,
		Group:       rep.Group,
		Destination: rep.Destination,
		Command:     rep.Command,
		FiredAt:     at,
		NextAt:      rep.NextAt,
		OK:          rep.OK(),
		Error:       rep.Err,
	}
}
