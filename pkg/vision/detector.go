// Package vision provides person detection and coarse distance
// classification for the kiosk camera.
package vision

// Detection represents a detected person
type Detection struct {
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector is the interface for person detection backends
type Detector interface {
	// Detect finds people in the image and returns their positions
	Detect(jpeg []byte) ([]Detection, error)

	// Close releases resources
	Close() error
}

// SelectBest picks the most relevant person from multiple detections.
// Priority: confidence * 0.7 + area * 0.3, so a close confident visitor
// wins over a distant one.
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection

	for i := range dets {
		score := dets[i].Confidence*0.7 + (dets[i].Area()/maxArea)*0.3
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}
