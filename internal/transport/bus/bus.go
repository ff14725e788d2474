// Package bus is an in-process transport: each publish becomes an eventbus
// event whose Type is the destination string.
package bus

import (
	"context"
	"sync/atomic"

	"trigsched/internal/eventbus"
	"trigsched/internal/transport"
)

type Node struct {
	bus eventbus.Bus
}

func New(b eventbus.Bus) *Node {
	if b == nil {
		b = eventbus.New()
	}
	return &Node{bus: b}
}

func (n *Node) OpenChannel(ctx context.Context, dest transport.Destination) (transport.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &channel{bus: n.bus, dest: dest}, nil
}

type channel struct {
	bus    eventbus.Bus
	dest   transport.Destination
	closed atomic.Bool
}

// Publish never blocks. Having no subscriber is not an error.
func (c *channel) Publish(ctx context.Context, msg any) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.bus.Publish(eventbus.Event{Type: c.dest.String(), Data: msg})
	return nil
}

func (c *channel) Close() error {
	c.closed.Store(true)
	return nil
}
