package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librescoot/timeout"
	"github.com/librescoot/timeout/internal/config"
	"github.com/librescoot/timeout/internal/logging"
)

func newTestApp(t *testing.T) (*app, *timeout.FakeClock, *prometheus.Registry) {
	t.Helper()

	cfg, err := config.Parse([]byte(`
managers:
  - id: session
    interval: 1s
    follow_up: LOGOUT
`))
	require.NoError(t, err)

	clock := timeout.NewFakeClock(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	registry := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApp(cfg, logger,
		timeout.WithClock(clock),
		timeout.WithMetrics(timeout.NewMetrics(registry)),
	)
	require.NoError(t, err)
	return a, clock, registry
}

func sliceOf(t *testing.T, a *app, id string) timeout.State {
	t.Helper()
	s, ok := a.store.State()[id].(timeout.State)
	require.True(t, ok, "slice %s missing", id)
	return s
}

func TestAppStartExpire(t *testing.T) {
	a, clock, _ := newTestApp(t)

	require.NoError(t, a.start("session", "", "S1"))
	s := sliceOf(t, a, "session")
	assert.True(t, s.Running)
	assert.Equal(t, s.Start.Add(time.Second), s.End)

	// The DEFAULT slice only follows its own manager
	assert.Equal(t, timeout.State{}, a.store.State()["DEFAULT"])

	clock.Advance(time.Second)
	s = sliceOf(t, a, "session")
	assert.False(t, s.Running)
	assert.True(t, s.Complete)
	assert.Equal(t, map[string]int{"LOGOUT": 1}, a.store.State()[followUpsKey])
}

func TestAppErrors(t *testing.T) {
	a, _, _ := newTestApp(t)

	assert.ErrorIs(t, a.start("nope", "", "X"), errUnknownManager)
	assert.ErrorIs(t, a.stop("DEFAULT"), timeout.ErrNotRunning)
	assert.Error(t, a.start("DEFAULT", "soon", "X"))

	require.NoError(t, a.start("DEFAULT", "inf", "X"))
	assert.ErrorIs(t, a.start("DEFAULT", "", "Y"), timeout.ErrAlreadyRunning)

	a.stopAll()
	for _, st := range a.statuses() {
		assert.False(t, st.Running, st.Manager)
	}
}

func TestAppStatuses(t *testing.T) {
	a, _, _ := newTestApp(t)
	require.NoError(t, a.start("session", "inf", "S1"))

	assert.Equal(t, []Status{
		{Manager: "DEFAULT", Interval: "30s"},
		{Manager: "session", Running: true, Timer: "S1", Interval: "1s"},
	}, a.statuses())
}

func TestShellCommands(t *testing.T) {
	a, clock, _ := newTestApp(t)
	var out bytes.Buffer
	sh := &shell{app: a, out: &out}

	assert.True(t, sh.exec("start session S1 250"))
	assert.Contains(t, out.String(), "OK")

	out.Reset()
	sh.exec("start session S2")
	assert.Contains(t, out.String(), "already running")

	out.Reset()
	sh.exec("status")
	assert.Regexp(t, `session\s+true\s+S1`, out.String())

	clock.Advance(250 * time.Millisecond)

	out.Reset()
	sh.exec("state")
	assert.Contains(t, out.String(), `"complete": true`)

	out.Reset()
	sh.exec("stop session")
	assert.Contains(t, out.String(), "no timer is running")

	out.Reset()
	sh.exec("start")
	assert.Contains(t, out.String(), "Usage: start")

	out.Reset()
	sh.exec("frobnicate")
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, sh.exec("   "))
	assert.False(t, sh.exec("exit"))
}

func TestShellStartInterval(t *testing.T) {
	a, _, _ := newTestApp(t)
	var out bytes.Buffer
	sh := &shell{app: a, out: &out}

	sh.exec("start session S1 250")
	s := sliceOf(t, a, "session")
	assert.Equal(t, 250*time.Millisecond, s.End.Sub(s.Start))

	// Without an interval the configured default applies
	sh.exec("start DEFAULT D1")
	s = sliceOf(t, a, "DEFAULT")
	assert.Equal(t, 30*time.Second, s.End.Sub(s.Start))

	out.Reset()
	sh.exec("start session")
	assert.Contains(t, out.String(), "Usage: start <manager> <timer-id> [interval]")
}

func TestShellLevel(t *testing.T) {
	a, _, _ := newTestApp(t)
	logger := logging.New(logging.Options{Level: slog.LevelInfo, Console: io.Discard})
	var out bytes.Buffer
	sh := &shell{app: a, level: logger, out: &out}

	sh.exec("level")
	assert.Contains(t, out.String(), "Log level: INFO")

	out.Reset()
	sh.exec("level debug")
	assert.Contains(t, out.String(), "Log level set to DEBUG")
	assert.Equal(t, slog.LevelDebug, logger.Level())

	out.Reset()
	sh.exec("level loud")
	assert.Contains(t, out.String(), "invalid log level")
	assert.Equal(t, slog.LevelDebug, logger.Level())

	out.Reset()
	sh.exec("level info warn")
	assert.Contains(t, out.String(), "Usage: level")
}

// blockingReader blocks in Readline until it is closed, like a terminal
// waiting for input.
type blockingReader struct {
	closed chan struct{}
	once   sync.Once
	count  int
	mu     sync.Mutex
}

func newBlockingReader() *blockingReader {
	return &blockingReader{closed: make(chan struct{})}
}

func (r *blockingReader) Readline() (string, error) {
	<-r.closed
	return "", io.EOF
}

func (r *blockingReader) Close() error {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *blockingReader) closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func TestShellClosesReaderOnCancel(t *testing.T) {
	a, _, _ := newTestApp(t)
	rl := newBlockingReader()
	sh := &shell{app: a, rl: rl, out: io.Discard}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sh.Run(ctx, cancel)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shell did not return after cancel")
	}
	assert.Equal(t, 1, rl.closes())
}

func TestServeReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := newServer(ln.Addr().String(), http.NotFoundHandler())

	err = serve(context.Background(), srv, logger)
	assert.ErrorContains(t, err, "http server failed")
}

func TestServeStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := newServer("127.0.0.1:0", http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, serve(ctx, srv, logger))
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, clock, registry := newTestApp(t)
	r := newRouter(a, registry)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/managers/session/start", `{"timer":"S1","interval":"500"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = do(http.MethodPost, "/managers/session/start", `{"timer":"S2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(http.MethodPost, "/managers/session/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodPost, "/managers/missing/stop", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(http.MethodPost, "/managers/session/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodPost, "/managers/session/stop", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	clock.RunAll()

	w = do(http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	var state map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "S1", state["session"]["timer"])
	assert.Equal(t, false, state["session"]["running"])
	assert.Equal(t, false, state["session"]["complete"])

	w = do(http.MethodGet, "/managers", "")
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	assert.Len(t, statuses, 2)

	w = do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `timeout_timers_started_total{manager="session"} 1`)
	assert.Contains(t, w.Body.String(), `timeout_timers_stopped_total{manager="session",reason="cancelled"} 1`)
}
