package fire

import (
	"fmt"
	"time"

	"trigsched/internal/transport"
)

// CommandSuffix is appended to the publish channel when a trigger has a
// command, producing e.g. "/lights$cmd".
const CommandSuffix = "$cmd"

// TypeFired is the event bus type of every Report.
const TypeFired = "trigger.fired"

// Request is the command request body sent to the destination.
type Request struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// NewRequest builds a request for cmd. Nil params are omitted on the wire.
func NewRequest(cmd string, params map[string]string) Request {
	r := Request{Name: cmd}
	if params != nil {
		r.Params = make(map[string]string, len(params))
		for k, v := range params {
			r.Params[k] = v
		}
	}
	return r
}

// Message is the fired-event payload. Fields are emitted in declaration order.
type Message struct {
	TriggerID string     `json:"id,omitempty"`
	Timestamp *time.Time `json:"ts,omitempty"`
}

func NewMessage(id string, ts time.Time) Message {
	return Message{TriggerID: id, Timestamp: &ts}
}

// ResolveDestination returns publishChannel, or publishChannel+CommandSuffix
// when cmd is set.
func ResolveDestination(publishChannel, cmd string) (transport.Destination, error) {
	raw := publishChannel
	if cmd != "" {
		raw += CommandSuffix
	}
	d, err := transport.ParseDestination(raw)
	if err != nil {
		return transport.Destination{}, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}
	return d, nil
}

// Firing describes one due occurrence handed over by the schedule engine.
type Firing struct {
	TriggerID      string
	Group          string
	PublishChannel string
	Cmd            string
	Params         map[string]string

	ScheduledAt time.Time
	FiredAt     time.Time
	NextAt      time.Time
}

// Report is published on the event bus after every attempt.
type Report struct {
	Message     Message
	Group       string
	Destination string
	Command     string
	Err         string
	NextAt      time.Time
}

func (r Report) OK() bool { return r.Err == "" }
