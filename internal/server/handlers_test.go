package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nonith-Rao/Live-Tracking/internal/config"
	"github.com/Nonith-Rao/Live-Tracking/internal/hub"
	"github.com/Nonith-Rao/Live-Tracking/internal/persist"
)

// fakeRepo is an in-memory Repository for handler tests.
type fakeRepo struct {
	mu        sync.Mutex
	locations map[string]persist.SharedLocation
	saveErr   error
	listErr   error
	pingErr   error
	listCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{locations: make(map[string]persist.SharedLocation)}
}

func (f *fakeRepo) Save(_ context.Context, loc persist.SharedLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.locations[loc.UserID] = loc
	return nil
}

func (f *fakeRepo) List(_ context.Context) ([]persist.SharedLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	locs := make([]persist.SharedLocation, 0, len(f.locations))
	for _, loc := range f.locations {
		locs = append(locs, loc)
	}
	return locs, nil
}

func (f *fakeRepo) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.locations[userID]; !ok {
		return persist.ErrNotFound
	}
	delete(f.locations, userID)
	return nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeRepo) Close()                       {}

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		MaxSessions:         100,
		MaxConnections:      100,
		MaxConnectionsPerIP: 100,
		ConnectionRate:      1000,
		ConnectionBurst:     1000,
		StaticDir:           "web/static",
	}
}

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func newTestServer(t *testing.T, repo persist.Repository) *Server {
	t.Helper()

	h := hub.New(hub.DefaultOptions(), clockwork.NewRealClock())
	t.Cleanup(h.Stop)

	return NewServer(testConfig(), h, repo)
}

func TestHandleWebSocket_UpgradeAndWelcome(t *testing.T) {
	srv := newTestServer(t, nil)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "welcome", msg["type"])
}

func TestHandleWebSocket_ReleasesSlotOnDisconnect(t *testing.T) {
	srv := newTestServer(t, nil)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return srv.limits.Current() == 1 },
		waitFor, tick)

	conn.Close()

	assert.Eventually(t, func() bool { return srv.limits.Current() == 0 },
		waitFor, tick)
}

func TestHandleWebSocket_RejectsOverGlobalLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnections = 1

	h := hub.New(hub.DefaultOptions(), clockwork.NewRealClock())
	t.Cleanup(h.Stop)
	srv := NewServer(cfg, h, nil)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return srv.limits.Current() == 1 },
		waitFor, tick)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleWebSocket_RejectsOverRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ConnectionRate = 1
	cfg.ConnectionBurst = 1

	h := hub.New(hub.DefaultOptions(), clockwork.NewRealClock())
	t.Cleanup(h.Stop)
	srv := NewServer(cfg, h, nil)

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
