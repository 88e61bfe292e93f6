package vision

import (
	"fmt"

	"github.com/cmerch/kiosk/pkg/stage"
)

// Classifier maps a person detection to a distance bucket using the
// bounding-box height heuristic: a taller box means a closer visitor.
// Thresholds are pixel heights and need calibration per camera setup
// (see cmd/calibrate).
type Classifier struct {
	// NearHeight is the minimum bbox height in pixels for the Near
	// bucket; anything below is Far.
	NearHeight int

	// VeryNearHeight is the minimum bbox height in pixels for the
	// VeryNear bucket.
	VeryNearHeight int

	// FrameHeight is the camera frame height the thresholds were
	// calibrated against.
	FrameHeight int
}

// DefaultClassifier returns thresholds calibrated for a 540x960
// portrait frame.
func DefaultClassifier() Classifier {
	return Classifier{
		NearHeight:     300,
		VeryNearHeight: 450,
		FrameHeight:    960,
	}
}

// Validate checks the threshold ordering.
func (c Classifier) Validate() error {
	if c.FrameHeight <= 0 {
		return fmt.Errorf("classifier: frame height must be positive, got %d", c.FrameHeight)
	}
	if c.NearHeight <= 0 || c.VeryNearHeight <= c.NearHeight {
		return fmt.Errorf("classifier: need 0 < near (%d) < very_near (%d)", c.NearHeight, c.VeryNearHeight)
	}
	return nil
}

// Bucket classifies a single detection.
func (c Classifier) Bucket(d Detection) stage.Bucket {
	height := int(d.H * float64(c.FrameHeight))
	switch {
	case height >= c.VeryNearHeight:
		return stage.VeryNear
	case height >= c.NearHeight:
		return stage.Near
	default:
		return stage.Far
	}
}

// Classify selects the best detection and returns the per-tick facts
// the stage machine consumes. With no detections it reports
// (false, nil, BucketNone, 0).
func (c Classifier) Classify(dets []Detection) (present bool, best *Detection, bucket stage.Bucket, confidence float64) {
	best = SelectBest(dets)
	if best == nil {
		return false, nil, stage.BucketNone, 0
	}
	return true, best, c.Bucket(*best), best.Confidence
}
