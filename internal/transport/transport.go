// Package transport is the publish capability used when a trigger fires.
//
// A Node opens a Channel for a Destination; the caller publishes on it and
// closes it. Implementations live in subpackages (bus, webhook).
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

var (
	ErrBadDestination = errors.New("malformed destination")
	ErrClosed         = errors.New("channel closed")
)

// Destination is a parsed delivery address such as "/lights$cmd" or
// "ndn:/module/trigger".
type Destination struct {
	raw string
	u   *url.URL
}

// ParseDestination validates s as a URI reference.
func ParseDestination(s string) (Destination, error) {
	if s == "" {
		return Destination{}, fmt.Errorf("%w: empty", ErrBadDestination)
	}
	if i := strings.IndexFunc(s, func(r rune) bool {
		return r == '\\' || unicode.IsSpace(r) || unicode.IsControl(r)
	}); i >= 0 {
		return Destination{}, fmt.Errorf("%w: %q: illegal character at index %d", ErrBadDestination, s, i)
	}
	u, err := url.Parse(s)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %w", ErrBadDestination, err)
	}
	return Destination{raw: s, u: u}, nil
}

func (d Destination) String() string { return d.raw }

func (d Destination) IsZero() bool { return d.raw == "" }

// URL returns a copy of the parsed form.
func (d Destination) URL() *url.URL {
	if d.u == nil {
		return &url.URL{}
	}
	cp := *d.u
	return &cp
}

// Channel publishes messages to a single destination.
type Channel interface {
	Publish(ctx context.Context, msg any) error
	Close() error
}

// Node opens channels. Implementations must be safe for concurrent use.
type Node interface {
	OpenChannel(ctx context.Context, dest Destination) (Channel, error)
}

// NodeFunc adapts a function to Node.
type NodeFunc func(ctx context.Context, dest Destination) (Channel, error)

func (f NodeFunc) OpenChannel(ctx context.Context, dest Destination) (Channel, error) {
	return f(ctx, dest)
}
