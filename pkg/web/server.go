// Package web serves the operator dashboard: live stage status, the
// event log, and the camera feed, plus a couple of control endpoints
// for staffing the kiosk remotely.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/cmerch/kiosk/internal/log"
	"github.com/cmerch/kiosk/pkg/hub"
)

// KioskState is the status snapshot broadcast to dashboard clients.
type KioskState struct {
	Stage         string  `json:"stage"`
	PreviousStage string  `json:"previous_stage"`
	PersonPresent bool    `json:"person_present"`
	Distance      string  `json:"distance"`
	Confidence    float64 `json:"confidence"`
	SessionID     string  `json:"session_id"`
	FPS           float64 `json:"fps"`
	StageSeconds  float64 `json:"stage_seconds"`

	// CountdownSeconds is the remaining inactivity countdown, or -1
	// when no countdown is armed.
	CountdownSeconds float64 `json:"countdown_seconds"`

	Visitors    uint64 `json:"visitors"`
	Completions uint64 `json:"completions"`
}

// LogEntry is one dashboard log line.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, stage, vision, error
	Message string `json:"message"`
}

const logBufferSize = 500

// Server is the dashboard HTTP and websocket server.
type Server struct {
	app  *fiber.App
	addr string

	state   KioskState
	stateMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub
	mediaHub  *hub.Hub

	// OnButtonClick fires when an operator presses the dashboard's
	// "start web" button; it feeds the same path as the touch button.
	OnButtonClick func()

	// OnReset fires on the dashboard's reset control.
	OnReset func()
}

// NewServer creates the dashboard server listening on addr.
func NewServer(addr string) *Server {
	s := &Server{
		addr:      addr,
		logs:      make([]LogEntry, 0, logBufferSize),
		statusHub: hub.New("status"),
		logHub:    hub.New("logs"),
		cameraHub: hub.New("camera"),
		mediaHub:  hub.New("media"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Kiosk Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/logs", s.handleGetLogs)
	api.Post("/click", s.handleClick)
	api.Post("/reset", s.handleReset)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/media", websocket.New(s.handleMediaWS))

	s.app = app
	return s
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.logHub.Run()
	go s.cameraHub.Run()
	go s.mediaHub.Run()
	log.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server stopped", "err", err)
		}
	}()
}

// UpdateState applies update to the shared state and broadcasts the
// result to status subscribers.
func (s *Server) UpdateState(update func(*KioskState)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(state)
}

// AddLog appends a log entry and broadcasts it.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > logBufferSize {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// SendCameraFrame broadcasts a JPEG frame to camera subscribers.
// Cheap when nobody is watching.
func (s *Server) SendCameraFrame(jpeg []byte) {
	if s.cameraHub.ClientCount() == 0 {
		return
	}
	s.cameraHub.BroadcastBinary(jpeg)
}

// SendMediaFrame broadcasts a JPEG frame of the active video to the
// kiosk display page.
func (s *Server) SendMediaFrame(jpeg []byte) {
	if s.mediaHub.ClientCount() == 0 {
		return
	}
	s.mediaHub.BroadcastBinary(jpeg)
}

// MediaViewers returns the number of connected display pages.
func (s *Server) MediaViewers() int {
	return s.mediaHub.ClientCount()
}

// Shutdown stops the hubs and the HTTP server.
func (s *Server) Shutdown() error {
	s.statusHub.Stop()
	s.logHub.Stop()
	s.cameraHub.Stop()
	s.mediaHub.Stop()
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
