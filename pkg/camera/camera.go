// Package camera wraps OpenCV video capture for the kiosk frame loop.
package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Config holds capture settings. The kiosk runs a portrait display, so
// the defaults are 9:16.
type Config struct {
	Index  int `yaml:"index"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultConfig returns the development capture settings.
func DefaultConfig() Config {
	return Config{
		Index:  0,
		Width:  540,
		Height: 960,
	}
}

// Camera owns one capture device. Grab is safe to call from a single
// goroutine only; Close may race with nothing.
type Camera struct {
	cap *gocv.VideoCapture
	mat gocv.Mat
	cfg Config
	mu  sync.Mutex
}

// Open opens the capture device and applies the configured resolution.
func Open(cfg Config) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Index, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	return &Camera{
		cap: cap,
		mat: gocv.NewMat(),
		cfg: cfg,
	}, nil
}

// Grab reads one frame and returns it JPEG-encoded.
func (c *Camera) Grab() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil, fmt.Errorf("camera closed")
	}
	if ok := c.cap.Read(&c.mat); !ok {
		return nil, fmt.Errorf("camera %d: frame read failed", c.cfg.Index)
	}
	if c.mat.Empty() {
		return nil, fmt.Errorf("camera %d: empty frame", c.cfg.Index)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// Copy out: the NativeByteBuffer is released on Close.
	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the capture device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}
	c.mat.Close()
	err := c.cap.Close()
	c.cap = nil
	return err
}
