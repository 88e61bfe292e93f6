package vision

import (
	"testing"

	"github.com/cmerch/kiosk/pkg/stage"
)

func detWithPixelHeight(c Classifier, px int, conf float64) Detection {
	return Detection{
		X:          0.3,
		Y:          0.1,
		W:          0.2,
		H:          float64(px) / float64(c.FrameHeight),
		Confidence: conf,
	}
}

func TestClassifier_Bucket(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name   string
		height int
		want   stage.Bucket
	}{
		{"tiny figure", 80, stage.Far},
		{"just below near", c.NearHeight - 1, stage.Far},
		{"at near threshold", c.NearHeight, stage.Near},
		{"between thresholds", (c.NearHeight + c.VeryNearHeight) / 2, stage.Near},
		{"at very near threshold", c.VeryNearHeight, stage.VeryNear},
		{"fills the frame", c.FrameHeight, stage.VeryNear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Bucket(detWithPixelHeight(c, tt.height, 0.9))
			if got != tt.want {
				t.Errorf("Bucket(height=%d) = %v, want %v", tt.height, got, tt.want)
			}
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := DefaultClassifier()

	present, best, bucket, conf := c.Classify(nil)
	if present || best != nil || bucket != stage.BucketNone || conf != 0 {
		t.Errorf("empty input: got (%v, %v, %v, %v)", present, best, bucket, conf)
	}

	// Two visitors: the close confident one wins.
	dets := []Detection{
		detWithPixelHeight(c, 120, 0.55),
		detWithPixelHeight(c, 500, 0.90),
	}
	present, best, bucket, conf = c.Classify(dets)
	if !present {
		t.Fatal("expected a person")
	}
	if bucket != stage.VeryNear {
		t.Errorf("expected VeryNear for the dominant detection, got %v", bucket)
	}
	if conf != 0.90 {
		t.Errorf("expected confidence 0.90, got %v", conf)
	}
	if best.H != dets[1].H {
		t.Error("expected the larger detection to be selected")
	}
}

func TestClassifier_Validate(t *testing.T) {
	if err := DefaultClassifier().Validate(); err != nil {
		t.Fatalf("default classifier should validate: %v", err)
	}

	bad := DefaultClassifier()
	bad.VeryNearHeight = bad.NearHeight
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unordered thresholds")
	}
}

func TestSelectBest(t *testing.T) {
	if SelectBest(nil) != nil {
		t.Error("expected nil for empty input")
	}

	single := []Detection{{W: 0.1, H: 0.2, Confidence: 0.6}}
	if best := SelectBest(single); best == nil || best.Confidence != 0.6 {
		t.Error("expected the only detection back")
	}

	// High confidence beats slightly larger area.
	dets := []Detection{
		{W: 0.30, H: 0.30, Confidence: 0.55},
		{W: 0.28, H: 0.28, Confidence: 0.95},
	}
	best := SelectBest(dets)
	if best == nil || best.Confidence != 0.95 {
		t.Errorf("expected the confident detection, got %+v", best)
	}
}
