package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dynprog/internal/valueiter"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New("", "double integrator", valueiter.DefaultConfig())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getSnapshot(t *testing.T, url string) Snapshot {
	t.Helper()
	resp, err := http.Get(url + "/api/run")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	return snap
}

func TestRunBeforeAndAfterSweep(t *testing.T) {
	s, ts := newTestServer(t)

	snap := getSnapshot(t, ts.URL)
	assert.Equal(t, 0, snap.Iteration)
	assert.Equal(t, "initializing", snap.Phase)
	assert.Equal(t, "double integrator", snap.Title)
	assert.Equal(t, valueiter.DefaultConfig().MaxIterations, snap.Budget)

	require.NoError(t, s.OnSweep(valueiter.Sweep{Iteration: 7, Norm: 0.5, Phase: valueiter.PhaseSweeping}))
	snap = getSnapshot(t, ts.URL)
	assert.Equal(t, 7, snap.Iteration)
	assert.InDelta(t, 0.5, snap.Norm, 1e-12)
	assert.False(t, snap.Done)

	require.NoError(t, s.OnSweep(valueiter.Sweep{Iteration: 8, Norm: 0.05, Phase: valueiter.PhaseConverged}))
	snap = getSnapshot(t, ts.URL)
	assert.Equal(t, "converged", snap.Phase)
	assert.True(t, snap.Done)
}

func TestIndex(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/run", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebsocketStream(t *testing.T) {
	s, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 0, first.Iteration)

	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.OnSweep(valueiter.Sweep{Iteration: i, Norm: 1 / float64(i), Phase: valueiter.PhaseSweeping}))
	}

	// intermediate sweeps may be coalesced, the last one always arrives
	for {
		var snap Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		if snap.Iteration == 5 {
			assert.InDelta(t, 0.2, snap.Norm, 1e-12)
			break
		}
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := New("127.0.0.1:0", "serve", valueiter.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestOfferKeepsNewest(t *testing.T) {
	ch := make(chan Snapshot, 1)
	offer(ch, Snapshot{Iteration: 1})
	offer(ch, Snapshot{Iteration: 2})
	assert.Equal(t, 2, (<-ch).Iteration)
}
