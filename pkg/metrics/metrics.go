// Package metrics exposes Prometheus instrumentation for the kiosk.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cmerch/kiosk/internal/log"
)

var (
	// FramesProcessed counts camera frames run through the pipeline.
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_frames_processed_total",
		Help: "Camera frames processed by the detection pipeline.",
	})

	// DetectionErrors counts frames the detector failed on.
	DetectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_detection_errors_total",
		Help: "Frames the person detector failed to process.",
	})

	// StageTransitions counts transitions by edge.
	StageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_stage_transitions_total",
		Help: "Stage transitions by from/to pair.",
	}, []string{"from", "to"})

	// CurrentStage is a one-hot gauge of the active stage.
	CurrentStage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kiosk_current_stage",
		Help: "1 for the active stage, 0 otherwise.",
	}, []string{"stage"})

	// FPS is the measured frame rate of the main loop.
	FPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_fps",
		Help: "Frames per second of the main loop.",
	})

	// Visitors counts engagement sessions (Idle left with a person).
	Visitors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_visitors_total",
		Help: "Visitor sessions started.",
	})

	// Completions counts catalog sessions that signaled completion.
	Completions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_completions_total",
		Help: "Web sessions that reached the completion signal.",
	})
)

// SetStage flips the one-hot stage gauge.
func SetStage(active string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1.0
		}
		CurrentStage.WithLabelValues(s).Set(v)
	}
}

// Serve exposes /metrics on addr in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
}
