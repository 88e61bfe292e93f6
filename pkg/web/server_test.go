package web

import (
	"encoding/json"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestAPIStatus(t *testing.T) {
	s := NewServer(":0")
	s.UpdateState(func(st *KioskState) {
		st.Stage = "AudioPrompt"
		st.PersonPresent = true
	})

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	var state KioskState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if state.Stage != "AudioPrompt" || !state.PersonPresent {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestAPIClick(t *testing.T) {
	s := NewServer(":0")

	// No handler wired yet.
	req := httptest.NewRequest("POST", "/api/click", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 503 {
		t.Errorf("Status = %d, want 503 without handler", resp.StatusCode)
	}

	var clicked atomic.Bool
	s.OnButtonClick = func() { clicked.Store(true) }

	req = httptest.NewRequest("POST", "/api/click", nil)
	resp, err = s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	if !clicked.Load() {
		t.Error("click callback should have fired")
	}
}

func TestAPIReset(t *testing.T) {
	s := NewServer(":0")

	var reset atomic.Bool
	s.OnReset = func() { reset.Store(true) }

	req := httptest.NewRequest("POST", "/api/reset", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	if !reset.Load() {
		t.Error("reset callback should have fired")
	}
}

func TestLogBufferCap(t *testing.T) {
	s := NewServer(":0")
	for i := 0; i < logBufferSize+50; i++ {
		s.AddLog("info", "entry")
	}

	s.logsMu.RLock()
	n := len(s.logs)
	s.logsMu.RUnlock()
	if n != logBufferSize {
		t.Errorf("log buffer = %d entries, want %d", n, logBufferSize)
	}
}

func TestStatusWebSocket(t *testing.T) {
	s := NewServer(":18090")
	s.UpdateState(func(st *KioskState) {
		st.Stage = "Idle"
	})

	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/status", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Snapshot arrives on connect.
	var state KioskState
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&state); err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if state.Stage != "Idle" {
		t.Errorf("Stage = %s, want Idle", state.Stage)
	}

	// Updates stream through the hub.
	time.Sleep(50 * time.Millisecond)
	s.UpdateState(func(st *KioskState) {
		st.Stage = "PersonDetected"
	})

	if err := ws.ReadJSON(&state); err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if state.Stage != "PersonDetected" {
		t.Errorf("Stage = %s, want PersonDetected", state.Stage)
	}
}

func TestCameraWebSocket(t *testing.T) {
	s := NewServer(":18091")
	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/camera", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()
	time.Sleep(50 * time.Millisecond)

	frame := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	s.SendCameraFrame(frame)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", msgType)
	}
	if len(data) != len(frame) {
		t.Errorf("frame size = %d, want %d", len(data), len(frame))
	}
}

func TestLogReplayOnConnect(t *testing.T) {
	s := NewServer(":18092")
	s.AddLog("stage", "Idle -> PersonDetected")

	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18092/ws/logs", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	var entry LogEntry
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := ws.ReadJSON(&entry); err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if entry.Type != "stage" {
		t.Errorf("Type = %s, want stage", entry.Type)
	}
}
