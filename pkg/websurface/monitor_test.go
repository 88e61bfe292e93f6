package websurface

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor() (*Monitor, *fakeClock) {
	cfg := DefaultConfig()
	cfg.Browser = nil // no real browser in tests
	m := NewMonitor(cfg)

	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	m.now = clk.Now
	return m, clk
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func post(t *testing.T, m *Monitor, path string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, nil)
	resp, err := m.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestMonitor_CompletionLatch(t *testing.T) {
	m, _ := newTestMonitor()

	// Signals before a session starts do not count.
	assert.Equal(t, 200, post(t, m, "/complete"))
	assert.False(t, m.CompletionSignaled())

	require.NoError(t, m.Open())
	assert.False(t, m.CompletionSignaled(), "Open must clear stale signals")

	assert.Equal(t, 200, post(t, m, "/complete"))
	assert.True(t, m.CompletionSignaled())
	assert.True(t, m.CompletionSignaled(), "latch must hold until drained")

	m.Close()
	assert.False(t, m.CompletionSignaled())
}

func TestMonitor_InteractionWindow(t *testing.T) {
	m, clk := newTestMonitor()
	require.NoError(t, m.Open())

	assert.Equal(t, 200, post(t, m, "/interaction"))
	assert.True(t, m.InteractionDetected())

	clk.Advance(m.cfg.InteractionWindow / 2)
	assert.True(t, m.InteractionDetected())

	clk.Advance(m.cfg.InteractionWindow)
	assert.False(t, m.InteractionDetected(), "ping must age out")

	assert.Equal(t, 200, post(t, m, "/interaction"))
	assert.True(t, m.InteractionDetected())
}

func TestMonitor_InactiveSessionReportsNothing(t *testing.T) {
	m, _ := newTestMonitor()

	post(t, m, "/interaction")
	post(t, m, "/complete")

	assert.False(t, m.InteractionDetected())
	assert.False(t, m.CompletionSignaled())
}

func TestMonitor_Reset(t *testing.T) {
	m, _ := newTestMonitor()
	require.NoError(t, m.Open())
	post(t, m, "/complete")
	post(t, m, "/interaction")

	m.Reset()
	assert.False(t, m.CompletionSignaled())
	assert.False(t, m.InteractionDetected())

	// A fresh session starts clean.
	require.NoError(t, m.Open())
	assert.False(t, m.CompletionSignaled())
}

func TestMonitor_Health(t *testing.T) {
	m, _ := newTestMonitor()
	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := m.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
