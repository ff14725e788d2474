// Package webhook delivers trigger publishes as HTTP POST requests with a JSON
// body. The destination is resolved against a base URL; an absolute
// destination is used as is.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"trigsched/internal/transport"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrBody     = 512
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Headers    map[string]string
}

type Node struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// New returns a Node. RatePerSec <= 0 disables outbound limiting.
func New(cfg Config, client *http.Client) (*Node, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("webhook base_url: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("webhook base_url %q: must be absolute", cfg.BaseURL)
	}
	if client == nil {
		to := cfg.Timeout
		if to <= 0 {
			to = defaultTimeout
		}
		client = &http.Client{Timeout: to}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	h := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		h[k] = v
	}
	return &Node{base: base, client: client, limiter: lim, headers: h}, nil
}

func (n *Node) OpenChannel(ctx context.Context, dest transport.Destination) (transport.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &channel{n: n, target: n.resolve(dest)}, nil
}

// resolve appends a relative destination path to the base path. "$" is legal
// in a path and is kept verbatim.
func (n *Node) resolve(dest transport.Destination) string {
	du := dest.URL()
	if du.IsAbs() {
		return du.String()
	}
	u := *n.base
	p := du.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u.Path = strings.TrimSuffix(n.base.Path, "/") + p
	u.RawPath = ""
	if du.RawQuery != "" {
		u.RawQuery = du.RawQuery
	}
	return u.String()
}

type channel struct {
	n      *Node
	target string
	closed atomic.Bool
}

func (c *channel) Publish(ctx context.Context, msg any) error {
	if c.closed.Load() {
		return transport.ErrClosed
	}
	if err := c.n.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.n.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return fmt.Errorf("webhook %s: status %d: %s", c.target, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *channel) Close() error {
	c.closed.Store(true)
	return nil
}
