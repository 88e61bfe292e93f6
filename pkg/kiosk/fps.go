package kiosk

import (
	"sync"
	"time"
)

// fpsWindow is how far back frame timestamps count toward the rate.
const fpsWindow = 2 * time.Second

// FPSMeter measures the frame rate over a sliding window.
type FPSMeter struct {
	mu      sync.Mutex
	samples []time.Time
	now     func() time.Time
}

// NewFPSMeter creates a meter with an empty window.
func NewFPSMeter() *FPSMeter {
	return &FPSMeter{now: time.Now}
}

// Tick records one processed frame.
func (m *FPSMeter) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.samples = append(m.samples, now)
	m.trim(now)
}

// FPS returns the rate over the sliding window, 0 with under two samples.
func (m *FPSMeter) FPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trim(m.now())
	if len(m.samples) < 2 {
		return 0
	}
	span := m.samples[len(m.samples)-1].Sub(m.samples[0])
	if span <= 0 {
		return 0
	}
	return float64(len(m.samples)-1) / span.Seconds()
}

func (m *FPSMeter) trim(now time.Time) {
	cutoff := now.Add(-fpsWindow)
	i := 0
	for i < len(m.samples) && m.samples[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		m.samples = m.samples[i:]
	}
}
