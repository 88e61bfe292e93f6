// Kiosk controller - drives the unattended merchandising kiosk:
// person detection, stage flow, media playback and the web catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cmerch/kiosk/internal/config"
	"github.com/cmerch/kiosk/internal/log"
	"github.com/cmerch/kiosk/pkg/kiosk"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Init("info")
		log.Error("configuration error", "err", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)

	app := kiosk.New(cfg)
	if err := app.Init(); err != nil {
		log.Error("initialization failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("runtime error", "err", err)
		os.Exit(1)
	}
}

// parseFlags loads the config file and applies flag/env overrides.
func parseFlags() (kiosk.Config, error) {
	configPath := flag.String("config", config.ConfigPath("kiosk.yaml"), "Path to config file")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	cameraIdx := flag.Int("camera", -1, "Camera device index (overrides config)")
	catalogURL := flag.String("catalog-url", "", "Catalog URL (overrides config)")
	modelPath := flag.String("model", "", "Detector model path (overrides config)")
	autoAdvance := flag.Bool("auto-advance", false, "Open the catalog on sustained very-near presence")
	flag.Parse()

	cfg, err := kiosk.LoadConfig(*configPath)
	if err != nil {
		return cfg, err
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *cameraIdx >= 0 {
		cfg.Camera.Index = *cameraIdx
	} else if raw := config.CameraIndexEnv(); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Camera.Index = idx
	}
	if *catalogURL != "" {
		cfg.Catalog.URL = *catalogURL
	} else {
		cfg.Catalog.URL = config.CatalogURL(cfg.Catalog.URL)
	}
	if *modelPath != "" {
		cfg.Vision.ModelPath = *modelPath
	} else {
		cfg.Vision.ModelPath = config.ModelPath(cfg.Vision.ModelPath)
	}
	if *autoAdvance {
		cfg.Stages.AutoAdvance = true
	}
	return cfg, nil
}
