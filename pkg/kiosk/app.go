// Package kiosk wires the camera, detector, stage machine, media
// player, web surface and dashboard into the running application.
package kiosk

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cmerch/kiosk/internal/log"
	"github.com/cmerch/kiosk/pkg/camera"
	"github.com/cmerch/kiosk/pkg/media"
	"github.com/cmerch/kiosk/pkg/metrics"
	"github.com/cmerch/kiosk/pkg/stage"
	"github.com/cmerch/kiosk/pkg/vision"
	"github.com/cmerch/kiosk/pkg/web"
	"github.com/cmerch/kiosk/pkg/websurface"
)

// FrameSource supplies JPEG frames to the pipeline. *camera.Camera is
// the production implementation.
type FrameSource interface {
	Grab() ([]byte, error)
	Close() error
}

// App owns every component of the running kiosk.
type App struct {
	cfg Config

	machine    *stage.Machine
	classifier vision.Classifier
	source     FrameSource
	detector   vision.Detector
	player     *media.Player
	surface    *websurface.Monitor
	dashboard  *web.Server
	fps        *FPSMeter

	sessionID   string
	visitors    atomic.Uint64
	completions atomic.Uint64
}

// New assembles the software components. Hardware (camera, detector
// model) is opened in Init so tests can inject fakes first.
func New(cfg Config) *App {
	a := &App{
		cfg:        cfg,
		machine:    stage.New(cfg.Stages.ToStageConfig()),
		classifier: cfg.Classifier(),
		player:     media.NewPlayer(cfg.Media),
		surface:    websurface.NewMonitor(cfg.Catalog.ToSurfaceConfig()),
		dashboard:  web.NewServer(cfg.DashboardAddr),
		fps:        NewFPSMeter(),
	}

	a.player.OnClipFinished = a.machine.SignalClipFinished
	a.dashboard.OnButtonClick = a.machine.SignalButtonClick
	a.dashboard.OnReset = a.forceIdle
	return a
}

// Init opens the camera and loads the detector model.
func (a *App) Init() error {
	cam, err := camera.Open(a.cfg.Camera)
	if err != nil {
		return fmt.Errorf("init camera: %w", err)
	}
	a.source = cam

	det, err := vision.NewPersonDetector(a.cfg.YOLO())
	if err != nil {
		cam.Close()
		return fmt.Errorf("init detector: %w", err)
	}
	a.detector = det
	return nil
}

// SetFrameSource replaces the camera. Must be called before Run.
func (a *App) SetFrameSource(src FrameSource) { a.source = src }

// SetDetector replaces the person detector. Must be called before Run.
func (a *App) SetDetector(det vision.Detector) { a.detector = det }

// Machine exposes the stage machine for signal injection.
func (a *App) Machine() *stage.Machine { return a.machine }

// Run starts the servers and blocks in the frame loop until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a.source == nil || a.detector == nil {
		return fmt.Errorf("app not initialized")
	}

	a.surface.StartAsync()
	a.dashboard.StartAsync()
	metrics.Serve(a.cfg.MetricsAddr)

	a.applyPresentation(stage.Idle)
	metrics.SetStage(stage.Idle.String(), stageNames())
	log.Info("kiosk running",
		"frame_interval", time.Duration(a.cfg.FrameInterval).String(),
		"dashboard", a.cfg.DashboardAddr)

	ticker := time.NewTicker(time.Duration(a.cfg.FrameInterval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return ctx.Err()
		case <-ticker.C:
			a.tick()
		}
	}
}

// tick runs one pass of the pipeline: grab, detect, classify, update
// the machine, dispatch side effects, publish telemetry.
func (a *App) tick() {
	a.fps.Tick()
	metrics.FramesProcessed.Inc()

	frame, err := a.source.Grab()
	if err != nil {
		log.Warn("frame grab failed", "err", err)
		return
	}
	a.dashboard.SendCameraFrame(frame)

	var (
		present bool
		bucket  = stage.BucketNone
		conf    float64
	)

	// Detection is skipped while the catalog is up: the browser owns
	// the CPU and presence is irrelevant to the web stage's timers.
	if a.machine.Stage() != stage.WebInterface {
		dets, err := a.detector.Detect(frame)
		if err != nil {
			metrics.DetectionErrors.Inc()
			log.Warn("detection failed", "err", err)
		} else {
			present, _, bucket, conf = a.classifier.Classify(dets)
		}
	}

	in := stage.Inputs{
		PersonPresent:       present,
		Distance:            bucket,
		InteractionDetected: a.surface.InteractionDetected(),
		WebCompleted:        a.surface.CompletionSignaled(),
	}

	prev := a.machine.Stage()
	changed, current := a.machine.Update(in)
	if changed {
		a.handleTransition(prev, current)
	}

	a.pumpMedia()
	a.publishState(present, bucket, conf)
}

// handleTransition dispatches the side effects of a stage change.
func (a *App) handleTransition(from, to stage.Stage) {
	log.Info("stage transition", "from", from.String(), "to", to.String())
	a.dashboard.AddLog("stage", from.String()+" -> "+to.String())
	metrics.StageTransitions.WithLabelValues(from.String(), to.String()).Inc()
	metrics.SetStage(to.String(), stageNames())

	// Completion is decided before the surface is torn down.
	if from == stage.WebInterface && a.surface.CompletionSignaled() {
		a.completions.Add(1)
		metrics.Completions.Inc()
	}
	if from == stage.WebInterface {
		a.surface.Close()
	}

	if from == stage.Idle {
		a.sessionID = uuid.NewString()
		a.visitors.Add(1)
		metrics.Visitors.Inc()
		log.Info("visitor session started", "session", a.sessionID)
	}

	a.applyPresentation(to)

	if to == stage.Idle {
		if a.sessionID != "" {
			log.Info("visitor session ended", "session", a.sessionID)
		}
		a.sessionID = ""
	}
}

// applyPresentation points media and browser at the given stage.
func (a *App) applyPresentation(s stage.Stage) {
	assets := a.player.Assets()

	switch s {
	case stage.Idle:
		a.player.StopAudio()
		if err := a.player.Play(assets.IdleVideo); err != nil {
			log.Error("idle video failed", "err", err)
		}

	case stage.PersonDetected:
		a.player.StopAudio()
		if err := a.player.Play(assets.WavingVideo); err != nil {
			log.Error("waving video failed", "err", err)
		}

	case stage.AudioPrompt:
		if err := a.player.Play(assets.WavingVideo); err != nil {
			log.Error("waving video failed", "err", err)
		}
		if err := a.player.PlayAudioLoop(assets.WavingAudio); err != nil {
			log.Error("prompt audio failed", "err", err)
		}

	case stage.WebInterface:
		a.player.StopAll()
		if err := a.surface.Open(); err != nil {
			log.Error("catalog open failed", "err", err)
			// No browser means no session; fall back to Idle rather
			// than sit on a blank screen.
			a.forceIdle()
		}

	case stage.ThankYou:
		a.player.StopAudio()
		if err := a.player.PlayOnce(assets.ThankYouVideo); err != nil {
			log.Error("thank-you video failed", "err", err)
			a.machine.SignalClipFinished()
		}
	}
}

// pumpMedia advances the active video and streams the frame to the
// display page. Play-once completion is detected here.
func (a *App) pumpMedia() {
	frame, err := a.player.NextFrame(a.cfg.Camera.Width, a.cfg.Camera.Height)
	if err != nil {
		log.Warn("media frame failed", "err", err)
		return
	}
	if frame != nil {
		a.dashboard.SendMediaFrame(frame)
	}
}

// publishState pushes the status snapshot to the dashboard and metrics.
func (a *App) publishState(present bool, bucket stage.Bucket, conf float64) {
	fps := a.fps.FPS()
	metrics.FPS.Set(fps)

	countdown := -1.0
	if remaining, ok := a.machine.CountdownRemaining(); ok {
		countdown = remaining.Seconds()
	}

	a.dashboard.UpdateState(func(st *web.KioskState) {
		st.Stage = a.machine.Stage().String()
		st.PreviousStage = a.machine.Previous().String()
		st.PersonPresent = present
		st.Distance = bucket.String()
		st.Confidence = conf
		st.SessionID = a.sessionID
		st.FPS = fps
		st.StageSeconds = a.machine.StateDuration().Seconds()
		st.CountdownSeconds = countdown
		st.Visitors = a.visitors.Load()
		st.Completions = a.completions.Load()
	})
}

// forceIdle resets the machine and presentation, used by the dashboard
// reset control and unrecoverable collaborator failures.
func (a *App) forceIdle() {
	a.machine.Reset()
	a.surface.Close()
	a.applyPresentation(stage.Idle)
	metrics.SetStage(stage.Idle.String(), stageNames())
	a.sessionID = ""
}

func (a *App) shutdown() {
	log.Info("shutting down")
	a.player.Close()
	a.surface.Shutdown()
	a.dashboard.Shutdown()
	if a.detector != nil {
		a.detector.Close()
	}
	if a.source != nil {
		a.source.Close()
	}
}

func stageNames() []string {
	all := stage.All()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.String()
	}
	return names
}
