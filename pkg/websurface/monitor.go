// Package websurface manages the embedded catalog session: it opens
// and closes the browser and listens for the signals the hosted page
// raises (pointer/touch activity pings and the explicit "done" event).
package websurface

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/cmerch/kiosk/internal/httpc"
	"github.com/cmerch/kiosk/internal/log"
)

// Config holds the catalog URL and the signal listener settings.
type Config struct {
	// URL of the hosted catalog page.
	URL string `yaml:"url"`

	// SignalAddr is the listen address for the page's callback posts.
	SignalAddr string `yaml:"signal_addr"`

	// Browser is the command used to open the catalog; the URL is
	// appended. Empty disables browser launching (useful in tests and
	// when the page runs in a dedicated kiosk shell).
	Browser []string `yaml:"browser"`

	// InteractionWindow is how recent an activity ping must be to
	// count as "interacting right now".
	InteractionWindow time.Duration `yaml:"interaction_window"`
}

// DefaultConfig returns the local development settings.
func DefaultConfig() Config {
	return Config{
		URL:               "http://localhost:5173/",
		SignalAddr:        ":8765",
		Browser:           []string{"xdg-open"},
		InteractionWindow: time.Second,
	}
}

// Monitor reports per-tick web session facts to the frame loop. The
// HTTP handlers run on fiber's goroutines and only touch the
// mutex-guarded flags; the frame loop drains them once per tick.
type Monitor struct {
	cfg Config
	app *fiber.App
	now func() time.Time

	mu              sync.Mutex
	active          bool
	completion      bool
	lastInteraction time.Time
	browserCmd      *exec.Cmd
}

// NewMonitor creates the monitor and its signal routes.
func NewMonitor(cfg Config) *Monitor {
	m := &Monitor{
		cfg: cfg,
		now: time.Now,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Kiosk Signals",
		DisableStartupMessage: true,
	})

	// The catalog page is served from a different origin.
	app.Use(cors.New())

	app.Post("/complete", m.handleComplete)
	app.Post("/interaction", m.handleInteraction)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	m.app = app
	return m
}

func (m *Monitor) handleComplete(c *fiber.Ctx) error {
	m.mu.Lock()
	m.completion = true
	m.mu.Unlock()
	log.Info("web completion signal received")
	return c.JSON(fiber.Map{"status": "ok"})
}

func (m *Monitor) handleInteraction(c *fiber.Ctx) error {
	m.mu.Lock()
	m.lastInteraction = m.now()
	m.mu.Unlock()
	return c.JSON(fiber.Map{"status": "ok"})
}

// StartAsync starts the signal listener in a goroutine.
func (m *Monitor) StartAsync() {
	go func() {
		if err := m.app.Listen(m.cfg.SignalAddr); err != nil {
			log.Error("signal server stopped", "err", err)
		}
	}()
	log.Info("signal server listening", "addr", m.cfg.SignalAddr)
}

// Open starts a catalog session: clears stale signals and launches the
// browser when one is configured.
func (m *Monitor) Open() error {
	// A dead catalog still gets a browser window (it may recover), but
	// the operator should know.
	if resp, err := httpc.NewClient(2 * time.Second).Get(m.cfg.URL); err != nil {
		log.Warn("catalog not reachable", "url", m.cfg.URL, "err", err)
	} else {
		resp.Body.Close()
	}

	m.mu.Lock()
	m.completion = false
	m.lastInteraction = m.now()
	m.active = true
	m.mu.Unlock()

	if len(m.cfg.Browser) == 0 {
		return nil
	}

	args := append(append([]string{}, m.cfg.Browser[1:]...), m.cfg.URL)
	cmd := exec.Command(m.cfg.Browser[0], args...)
	if err := cmd.Start(); err != nil {
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
		return fmt.Errorf("open browser: %w", err)
	}

	m.mu.Lock()
	m.browserCmd = cmd
	m.mu.Unlock()

	go cmd.Wait()
	log.Info("catalog opened", "url", m.cfg.URL)
	return nil
}

// Close ends the catalog session and kills the browser process.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserCmd != nil && m.browserCmd.Process != nil {
		m.browserCmd.Process.Kill()
	}
	m.browserCmd = nil
	m.active = false
	m.completion = false
}

// InteractionDetected reports whether the visitor touched the page
// within the interaction window. Always false outside a session.
func (m *Monitor) InteractionDetected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active || m.lastInteraction.IsZero() {
		return false
	}
	return m.now().Sub(m.lastInteraction) < m.cfg.InteractionWindow
}

// CompletionSignaled reports whether the page raised its "done" event
// during the current session.
func (m *Monitor) CompletionSignaled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active && m.completion
}

// Reset drops all session state without shutting the listener down.
func (m *Monitor) Reset() {
	m.Close()
	m.mu.Lock()
	m.lastInteraction = time.Time{}
	m.mu.Unlock()
}

// Shutdown stops the signal listener.
func (m *Monitor) Shutdown() error {
	m.Close()
	return m.app.Shutdown()
}

// App exposes the fiber app for tests.
func (m *Monitor) App() *fiber.App {
	return m.app
}
