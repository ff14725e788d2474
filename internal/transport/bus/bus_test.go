package bus

import (
	"context"
	"errors"
	"testing"

	"trigsched/internal/eventbus"
	"trigsched/internal/transport"
)

func TestPublishDeliversToDestinationTopic(t *testing.T) {
	t.Parallel()
	b := eventbus.New()
	ch, unsub := b.Subscribe(2, "/lights$cmd")
	defer unsub()

	dest, err := transport.ParseDestination("/lights$cmd")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	c, err := New(b).OpenChannel(context.Background(), dest)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Publish(context.Background(), "on"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	_ = c.Close()

	e := <-ch
	if e.Data != "on" {
		t.Fatalf("data=%v", e.Data)
	}
	if err := c.Publish(context.Background(), "off"); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestOpenHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dest, _ := transport.ParseDestination("/x")
	if _, err := New(nil).OpenChannel(ctx, dest); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}
