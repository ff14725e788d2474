package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trigsched/internal/transport"
)

type hit struct {
	path  string
	ctype string
	token string
	body  map[string]any
}

func newServer(t *testing.T, status int) (*httptest.Server, func() []hit) {
	t.Helper()
	var mu sync.Mutex
	var hits []hit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		hits = append(hits, hit{path: r.URL.Path, ctype: r.Header.Get("Content-Type"), token: r.Header.Get("X-Token"), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []hit {
		mu.Lock()
		defer mu.Unlock()
		return append([]hit(nil), hits...)
	}
}

func TestPublishPostsJSON(t *testing.T) {
	t.Parallel()
	srv, hits := newServer(t, http.StatusNoContent)

	n, err := New(Config{BaseURL: srv.URL + "/hooks/", Headers: map[string]string{"X-Token": "abc"}}, srv.Client())
	require.NoError(t, err)

	dest, err := transport.ParseDestination("/lights$cmd")
	require.NoError(t, err)
	ch, err := n.OpenChannel(context.Background(), dest)
	require.NoError(t, err)
	require.NoError(t, ch.Publish(context.Background(), map[string]string{"name": "on"}))
	require.NoError(t, ch.Close())

	got := hits()
	require.Len(t, got, 1)
	assert.Equal(t, "/hooks/lights$cmd", got[0].path)
	assert.Equal(t, "application/json", got[0].ctype)
	assert.Equal(t, "abc", got[0].token)
	assert.Equal(t, "on", got[0].body["name"])

	assert.ErrorIs(t, ch.Publish(context.Background(), "x"), transport.ErrClosed)
}

func TestPublishNon2xxIsError(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusBadGateway)
	n, err := New(Config{BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	dest, _ := transport.ParseDestination("/x")
	ch, err := n.OpenChannel(context.Background(), dest)
	require.NoError(t, err)
	err = ch.Publish(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewRejectsRelativeBase(t *testing.T) {
	t.Parallel()
	_, err := New(Config{BaseURL: "/relative"}, nil)
	assert.Error(t, err)
}

func TestLimiterHonoursContext(t *testing.T) {
	t.Parallel()
	srv, _ := newServer(t, http.StatusOK)
	n, err := New(Config{BaseURL: srv.URL, RatePerSec: 0.001}, srv.Client())
	require.NoError(t, err)
	dest, _ := transport.ParseDestination("/x")
	ch, _ := n.OpenChannel(context.Background(), dest)
	require.NoError(t, ch.Publish(context.Background(), "first"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = ch.Publish(ctx, "second")
	assert.ErrorIs(t, err, context.Canceled)
}
