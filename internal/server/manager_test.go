package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startTestManager(t *testing.T, handler http.Handler) *Manager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	m := NewManager(handler, cfg, zap.NewNop())
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

// --- DefaultConfig ---

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ":9091", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 64<<10, cfg.MaxHeaderBytes)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

// --- Start / Shutdown lifecycle ---

func TestManager_StartAndShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	m := startTestManager(t, handler)

	resp, err := http.Get("http://" + m.Addr() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsRunning())
	require.NoError(t, m.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManager_DoubleStart(t *testing.T) {
	m := startTestManager(t, http.NewServeMux())

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestManager_StartAfterShutdown(t *testing.T) {
	m := startTestManager(t, http.NewServeMux())
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestManager_ListenFailureIsReported(t *testing.T) {
	first := startTestManager(t, http.NewServeMux())

	cfg := DefaultConfig()
	cfg.Addr = first.Addr()
	second := NewManager(http.NewServeMux(), cfg, nil)
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")

	select {
	case e := <-first.Errors():
		t.Fatalf("unexpected async error: %v", e)
	default:
	}
}

func TestManager_Addr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ":9999"
	m := NewManager(http.NewServeMux(), cfg, zap.NewNop())
	assert.Equal(t, ":9999", m.Addr(), "configured address before start")
}

// --- Handler ---

func TestNewHealth(t *testing.T) {
	assert.Equal(t, StatusOK, NewHealth(3, 3).Status)
	assert.Equal(t, StatusOK, NewHealth(0, 0).Status)
	assert.Equal(t, StatusDegraded, NewHealth(1, 3).Status)
	assert.Equal(t, StatusDown, NewHealth(0, 3).Status)
}

func TestHandler_Healthz(t *testing.T) {
	connected := 2
	h := NewHandler(prometheus.NewRegistry(), func() (int, int) { return connected, 2 })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, Health{Status: StatusOK, Connected: 2, Total: 2}, body)

	connected = 0
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "npc_scrape_check_total", Help: "scrape check"})
	reg.MustRegister(c)
	c.Inc()

	m := startTestManager(t, NewHandler(reg, nil))
	resp, err := http.Get("http://" + m.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "npc_scrape_check_total 1")
}
