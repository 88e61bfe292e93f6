package kiosk

import (
	"testing"

	"github.com/cmerch/kiosk/pkg/stage"
	"github.com/cmerch/kiosk/pkg/vision"
)

type fakeSource struct {
	frames int
}

func (f *fakeSource) Grab() ([]byte, error) {
	f.frames++
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func (f *fakeSource) Close() error { return nil }

// fakeDetector returns a fixed detection list per call.
type fakeDetector struct {
	dets  []vision.Detection
	calls int
}

func (f *fakeDetector) Detect([]byte) ([]vision.Detection, error) {
	f.calls++
	return f.dets, nil
}

func (f *fakeDetector) Close() error { return nil }

func newTestApp() (*App, *fakeSource, *fakeDetector) {
	cfg := DefaultKioskConfig()
	cfg.Catalog.Browser = nil // no real browser in tests
	cfg.Media.AudioPlayer = nil

	app := New(cfg)
	src := &fakeSource{}
	det := &fakeDetector{}
	app.SetFrameSource(src)
	app.SetDetector(det)
	return app, src, det
}

func detectionAtHeight(c vision.Classifier, px int) vision.Detection {
	return vision.Detection{
		X: 0.4, Y: 0.1, W: 0.2,
		H:          float64(px) / float64(c.FrameHeight),
		Confidence: 0.9,
	}
}

func TestApp_EngagementFlow(t *testing.T) {
	app, _, det := newTestApp()
	c := app.classifier

	// Empty scene stays Idle.
	app.tick()
	if got := app.machine.Stage(); got != stage.Idle {
		t.Fatalf("stage = %v, want Idle", got)
	}
	if app.sessionID != "" {
		t.Error("no session should exist in Idle")
	}

	// A near visitor starts a session.
	det.dets = []vision.Detection{detectionAtHeight(c, c.NearHeight+10)}
	app.tick()
	if got := app.machine.Stage(); got != stage.PersonDetected {
		t.Fatalf("stage = %v, want PersonDetected", got)
	}
	if app.sessionID == "" {
		t.Error("session should start when leaving Idle")
	}
	session := app.sessionID

	// Walking up to the screen triggers the prompt.
	det.dets = []vision.Detection{detectionAtHeight(c, c.VeryNearHeight+10)}
	app.tick()
	if got := app.machine.Stage(); got != stage.AudioPrompt {
		t.Fatalf("stage = %v, want AudioPrompt", got)
	}
	if app.sessionID != session {
		t.Error("session must persist across mid-flow transitions")
	}

	// Button tap opens the catalog.
	app.machine.SignalButtonClick()
	app.tick()
	if got := app.machine.Stage(); got != stage.WebInterface {
		t.Fatalf("stage = %v, want WebInterface", got)
	}

	// Detection is paused while the catalog is up.
	calls := det.calls
	app.tick()
	if det.calls != calls {
		t.Error("detector must not run during WebInterface")
	}

	// Completion plays the thank-you clip, then the clip ends the session.
	app.machine.SignalWebCompletion()
	app.tick()
	if got := app.machine.Stage(); got != stage.ThankYou {
		t.Fatalf("stage = %v, want ThankYou", got)
	}

	app.machine.SignalClipFinished()
	det.dets = nil
	app.tick()
	if got := app.machine.Stage(); got != stage.Idle {
		t.Fatalf("stage = %v, want Idle", got)
	}
	if app.sessionID != "" {
		t.Error("session must end back in Idle")
	}
}

func TestApp_ForceIdle(t *testing.T) {
	app, _, det := newTestApp()
	c := app.classifier

	det.dets = []vision.Detection{detectionAtHeight(c, c.VeryNearHeight+10)}
	app.tick() // Idle -> PersonDetected
	app.tick() // PersonDetected -> AudioPrompt
	if got := app.machine.Stage(); got != stage.AudioPrompt {
		t.Fatalf("stage = %v, want AudioPrompt", got)
	}

	app.forceIdle()
	if got := app.machine.Stage(); got != stage.Idle {
		t.Errorf("stage = %v, want Idle after reset", got)
	}
	if app.sessionID != "" {
		t.Error("reset must drop the session")
	}
}

func TestApp_RunRequiresInit(t *testing.T) {
	cfg := DefaultKioskConfig()
	app := New(cfg)
	if err := app.Run(nil); err == nil {
		t.Error("Run should fail without a frame source")
	}
}
