// Calibration tool for the distance thresholds. Stand at the positions
// you care about and read off the bounding-box heights; feed the
// numbers back into the config's near_height / very_near_height.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/cmerch/kiosk/internal/config"
	"github.com/cmerch/kiosk/internal/log"
	"github.com/cmerch/kiosk/pkg/camera"
	"github.com/cmerch/kiosk/pkg/kiosk"
	"github.com/cmerch/kiosk/pkg/vision"
)

func main() {
	configPath := flag.String("config", config.ConfigPath("kiosk.yaml"), "Path to config file")
	cameraIdx := flag.Int("camera", -1, "Camera device index (overrides config)")
	interval := flag.Duration("interval", 200*time.Millisecond, "Sample interval")
	flag.Parse()

	log.Init("warn") // keep the console clean for readings

	cfg, err := kiosk.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *cameraIdx >= 0 {
		cfg.Camera.Index = *cameraIdx
	}

	cam, err := camera.Open(cfg.Camera)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camera error: %v\n", err)
		os.Exit(1)
	}
	defer cam.Close()

	det, err := vision.NewPersonDetector(cfg.YOLO())
	if err != nil {
		fmt.Fprintf(os.Stderr, "detector error: %v\n", err)
		os.Exit(1)
	}
	defer det.Close()

	classifier := cfg.Classifier()
	fmt.Printf("Calibrating with near=%dpx very_near=%dpx (frame %dx%d)\n",
		classifier.NearHeight, classifier.VeryNearHeight, cfg.Camera.Width, cfg.Camera.Height)
	fmt.Println("Stand at each position of interest. Ctrl-C for the summary.")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var heights []int
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			printSummary(heights)
			return
		case <-ticker.C:
			frame, err := cam.Grab()
			if err != nil {
				continue
			}
			dets, err := det.Detect(frame)
			if err != nil {
				continue
			}

			present, best, bucket, conf := classifier.Classify(dets)
			if !present {
				fmt.Println("  no person")
				continue
			}

			px := int(best.H * float64(classifier.FrameHeight))
			heights = append(heights, px)
			fmt.Printf("  height=%4dpx bucket=%-10s conf=%.2f\n", px, bucket.String(), conf)
		}
	}
}

// printSummary prints the height distribution of the session.
func printSummary(heights []int) {
	if len(heights) == 0 {
		fmt.Println("\nNo detections recorded.")
		return
	}

	sort.Ints(heights)
	pct := func(p int) int { return heights[(len(heights)-1)*p/100] }

	fmt.Printf("\nSamples: %d\n", len(heights))
	fmt.Printf("  min=%dpx p25=%dpx median=%dpx p75=%dpx max=%dpx\n",
		heights[0], pct(25), pct(50), pct(75), heights[len(heights)-1])
	fmt.Println("Pick near_height around the reading at ~3m and very_near_height at ~1m.")
}
