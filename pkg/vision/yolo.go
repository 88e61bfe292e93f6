package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// personClassID is the COCO class id for "person".
const personClassID = 0

// PersonDetector runs a YOLOv8 ONNX model through OpenCV's DNN module
// and keeps only person detections.
type PersonDetector struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex // Protects inference
	inputSize image.Point
}

// YOLOConfig holds person detector configuration
type YOLOConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultYOLOConfig returns production defaults for YOLOv8n
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// NewPersonDetector creates a new YOLO person detector
func NewPersonDetector(cfg YOLOConfig) (*PersonDetector, error) {
	// Check if model file exists
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Load ONNX model
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &PersonDetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds people in the JPEG image
func (d *PersonDetector) Detect(jpeg []byte) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Decode JPEG to Mat
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	// Create blob from image
	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, imgW, imgH), nil
}

// parseOutput parses the YOLOv8 output tensor, keeping person boxes only.
// Output shape: [1, 84, 8400] - 84 = 4 bbox + 80 class scores.
func (d *PersonDetector) parseOutput(output gocv.Mat, imgW, imgH float32) []Detection {
	var detections []Detection
	var boxes []image.Rectangle
	var confidences []float32

	rows := output.Cols() // 8400 detections
	cols := output.Rows() // 84 (4 bbox + 80 classes)

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	for i := 0; i < rows; i++ {
		// The kiosk only cares about people, so read the person score
		// directly instead of scanning all 80 classes.
		score := data[(4+personClassID)*rows+i]
		if score < d.config.ConfidenceThresh {
			continue
		}

		// Make sure person is actually the winning class for this box.
		isBest := true
		for c := 4; c < cols; c++ {
			if data[c*rows+i] > score {
				isBest = false
				break
			}
		}
		if !isBest {
			continue
		}

		// Bounding box comes as center x, center y, width, height.
		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		// Convert to corner format and scale to image size
		x1 := int((cx - w/2) * imgW / float32(d.config.InputWidth))
		y1 := int((cy - h/2) * imgH / float32(d.config.InputHeight))
		x2 := int((cx + w/2) * imgW / float32(d.config.InputWidth))
		y2 := int((cy + h/2) * imgH / float32(d.config.InputHeight))

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, score)
	}

	if len(boxes) == 0 {
		return detections
	}

	// Apply NMS
	indices := gocv.NMSBoxes(boxes, confidences, d.config.ConfidenceThresh, d.config.NMSThresh)

	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, Detection{
			X:          float64(box.Min.X) / float64(imgW),
			Y:          float64(box.Min.Y) / float64(imgH),
			W:          float64(box.Dx()) / float64(imgW),
			H:          float64(box.Dy()) / float64(imgH),
			Confidence: float64(confidences[idx]),
		})
	}

	return detections
}

// Close releases the detector resources
func (d *PersonDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}
