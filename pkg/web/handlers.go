package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/cmerch/kiosk/pkg/hub"
)

// handleStatus returns the current state snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

// handleGetLogs returns the buffered log entries.
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleClick injects a button press, same as the on-screen button.
func (s *Server) handleClick(c *fiber.Ctx) error {
	if s.OnButtonClick == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "click handler not configured",
		})
	}
	s.OnButtonClick()
	s.AddLog("info", "dashboard click injected")
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleReset forces the kiosk back to the idle stage.
func (s *Server) handleReset(c *fiber.Ctx) error {
	if s.OnReset == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "reset handler not configured",
		})
	}
	s.OnReset()
	s.AddLog("info", "dashboard reset requested")
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatusWS streams state snapshots; the current one is sent on
// connect so the dashboard renders immediately.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.stateMu.RLock()
	c.WriteJSON(s.state)
	s.stateMu.RUnlock()

	hub.NewClient(s.statusHub, c).Run()
}

// handleLogsWS streams log entries, replaying the buffer on connect.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	for _, entry := range s.logs {
		c.WriteJSON(entry)
	}
	s.logsMu.RUnlock()

	hub.NewClient(s.logHub, c).Run()
}

// handleCameraWS streams JPEG frames as binary messages.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

// handleMediaWS streams the active video's frames to the display page.
func (s *Server) handleMediaWS(c *websocket.Conn) {
	hub.NewClient(s.mediaHub, c).Run()
}
