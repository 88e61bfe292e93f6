package kiosk

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
log_level: debug
dashboard_addr: ":4000"
frame_interval: 50ms
stages:
  far_timeout: 5s
  web_countdown: 90s
  auto_advance: true
vision:
  near_height: 280
catalog:
  url: "https://catalog.example.com/"
  interaction_window: 1500ms
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiosk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.DashboardAddr != ":4000" {
		t.Errorf("DashboardAddr = %s, want :4000", cfg.DashboardAddr)
	}
	if time.Duration(cfg.FrameInterval) != 50*time.Millisecond {
		t.Errorf("FrameInterval = %v", cfg.FrameInterval)
	}

	// Overridden fields take the file's values.
	sc := cfg.Stages.ToStageConfig()
	if sc.FarTimeout != 5*time.Second {
		t.Errorf("FarTimeout = %v, want 5s", sc.FarTimeout)
	}
	if sc.WebCountdown != 90*time.Second {
		t.Errorf("WebCountdown = %v, want 90s", sc.WebCountdown)
	}
	if !sc.AutoAdvance {
		t.Error("AutoAdvance should be true")
	}

	// Untouched fields keep their defaults.
	if sc.LeaveCountdown != 10*time.Second {
		t.Errorf("LeaveCountdown = %v, want default 10s", sc.LeaveCountdown)
	}
	if cfg.Vision.NearHeight != 280 {
		t.Errorf("NearHeight = %d, want 280", cfg.Vision.NearHeight)
	}
	if cfg.Catalog.URL != "https://catalog.example.com/" {
		t.Errorf("Catalog URL = %s", cfg.Catalog.URL)
	}
	if time.Duration(cfg.Catalog.InteractionWindow) != 1500*time.Millisecond {
		t.Errorf("InteractionWindow = %v", cfg.Catalog.InteractionWindow)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.DashboardAddr != ":3000" {
		t.Errorf("DashboardAddr = %s, want default :3000", cfg.DashboardAddr)
	}
}

func TestLoadConfig_BadDuration(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "frame_interval: fast\n"))
	if err == nil {
		t.Error("expected parse error for bad duration")
	}
}

func TestLoadConfig_InvalidTimings(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "stages:\n  far_timeout: -1s\n"))
	if err == nil {
		t.Error("expected validation error for negative timeout")
	}
}

func TestConfig_ClassifierUsesCameraHeight(t *testing.T) {
	cfg := DefaultKioskConfig()
	cfg.Camera.Height = 1080

	c := cfg.Classifier()
	if c.FrameHeight != 1080 {
		t.Errorf("FrameHeight = %d, want 1080", c.FrameHeight)
	}
}
