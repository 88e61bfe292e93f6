package kiosk

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cmerch/kiosk/internal/log"
	"github.com/cmerch/kiosk/pkg/camera"
	"github.com/cmerch/kiosk/pkg/media"
	"github.com/cmerch/kiosk/pkg/stage"
	"github.com/cmerch/kiosk/pkg/vision"
	"github.com/cmerch/kiosk/pkg/websurface"
)

// Duration wraps time.Duration so YAML configs can say "3s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration back as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// StageTimings is the YAML shape of the stage machine configuration.
type StageTimings struct {
	FarTimeout        Duration `yaml:"far_timeout"`
	LeaveCountdown    Duration `yaml:"leave_countdown"`
	ResponseTimeout   Duration `yaml:"response_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	WebCountdown      Duration `yaml:"web_countdown"`
	VeryNearStability Duration `yaml:"very_near_stability"`
	ThankYouTimeout   Duration `yaml:"thank_you_timeout"`
	AutoAdvance       bool     `yaml:"auto_advance"`
	ThankYouStage     bool     `yaml:"thank_you_stage"`
	ReturnToDetected  bool     `yaml:"return_to_detected"`
}

// ToStageConfig converts the YAML timings to the machine's config.
func (t StageTimings) ToStageConfig() stage.Config {
	return stage.Config{
		FarTimeout:        time.Duration(t.FarTimeout),
		LeaveCountdown:    time.Duration(t.LeaveCountdown),
		ResponseTimeout:   time.Duration(t.ResponseTimeout),
		IdleTimeout:       time.Duration(t.IdleTimeout),
		WebCountdown:      time.Duration(t.WebCountdown),
		VeryNearStability: time.Duration(t.VeryNearStability),
		ThankYouTimeout:   time.Duration(t.ThankYouTimeout),
		AutoAdvance:       t.AutoAdvance,
		ThankYouStage:     t.ThankYouStage,
		ReturnToDetected:  t.ReturnToDetected,
	}
}

func defaultStageTimings() StageTimings {
	d := stage.DefaultConfig()
	return StageTimings{
		FarTimeout:        Duration(d.FarTimeout),
		LeaveCountdown:    Duration(d.LeaveCountdown),
		ResponseTimeout:   Duration(d.ResponseTimeout),
		IdleTimeout:       Duration(d.IdleTimeout),
		WebCountdown:      Duration(d.WebCountdown),
		VeryNearStability: Duration(d.VeryNearStability),
		ThankYouTimeout:   Duration(d.ThankYouTimeout),
		ThankYouStage:     true,
	}
}

// VisionConfig holds detector and distance classification settings.
type VisionConfig struct {
	ModelPath        string  `yaml:"model_path"`
	ConfidenceThresh float32 `yaml:"confidence_thresh"`
	NMSThresh        float32 `yaml:"nms_thresh"`
	NearHeight       int     `yaml:"near_height"`
	VeryNearHeight   int     `yaml:"very_near_height"`
}

// CatalogConfig is the YAML shape of the web surface settings.
type CatalogConfig struct {
	URL               string   `yaml:"url"`
	SignalAddr        string   `yaml:"signal_addr"`
	Browser           []string `yaml:"browser"`
	InteractionWindow Duration `yaml:"interaction_window"`
}

// ToSurfaceConfig converts to the websurface package's config.
func (c CatalogConfig) ToSurfaceConfig() websurface.Config {
	return websurface.Config{
		URL:               c.URL,
		SignalAddr:        c.SignalAddr,
		Browser:           c.Browser,
		InteractionWindow: time.Duration(c.InteractionWindow),
	}
}

// Config is the full kiosk configuration.
type Config struct {
	LogLevel      string `yaml:"log_level"`
	DashboardAddr string `yaml:"dashboard_addr"`
	MetricsAddr   string `yaml:"metrics_addr"`

	// FrameInterval paces the main loop; detection runs every frame.
	FrameInterval Duration `yaml:"frame_interval"`

	Stages  StageTimings  `yaml:"stages"`
	Camera  camera.Config `yaml:"camera"`
	Vision  VisionConfig  `yaml:"vision"`
	Media   media.Config  `yaml:"media"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// DefaultKioskConfig returns the full default configuration.
func DefaultKioskConfig() Config {
	surface := websurface.DefaultConfig()
	yolo := vision.DefaultYOLOConfig()
	classifier := vision.DefaultClassifier()
	return Config{
		LogLevel:      "info",
		DashboardAddr: ":3000",
		MetricsAddr:   ":9090",
		FrameInterval: Duration(100 * time.Millisecond),
		Stages:        defaultStageTimings(),
		Camera:        camera.DefaultConfig(),
		Vision: VisionConfig{
			ModelPath:        yolo.ModelPath,
			ConfidenceThresh: yolo.ConfidenceThresh,
			NMSThresh:        yolo.NMSThresh,
			NearHeight:       classifier.NearHeight,
			VeryNearHeight:   classifier.VeryNearHeight,
		},
		Media: media.DefaultConfig(),
		Catalog: CatalogConfig{
			URL:               surface.URL,
			SignalAddr:        surface.SignalAddr,
			Browser:           surface.Browser,
			InteractionWindow: Duration(surface.InteractionWindow),
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing
// file is not an error: the defaults run as-is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultKioskConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	if err := c.Stages.ToStageConfig().Validate(); err != nil {
		return err
	}

	classifier := c.Classifier()
	if err := classifier.Validate(); err != nil {
		return err
	}

	if c.Vision.ConfidenceThresh <= 0 || c.Vision.ConfidenceThresh >= 1 {
		return fmt.Errorf("vision confidence_thresh must be in (0, 1), got %v", c.Vision.ConfidenceThresh)
	}
	if time.Duration(c.FrameInterval) <= 0 {
		return fmt.Errorf("frame_interval must be positive")
	}
	return nil
}

// Classifier builds the distance classifier from the vision settings.
func (c Config) Classifier() vision.Classifier {
	return vision.Classifier{
		NearHeight:     c.Vision.NearHeight,
		VeryNearHeight: c.Vision.VeryNearHeight,
		FrameHeight:    c.Camera.Height,
	}
}

// YOLO builds the detector config from the vision settings.
func (c Config) YOLO() vision.YOLOConfig {
	yolo := vision.DefaultYOLOConfig()
	yolo.ModelPath = c.Vision.ModelPath
	yolo.ConfidenceThresh = c.Vision.ConfidenceThresh
	yolo.NMSThresh = c.Vision.NMSThresh
	return yolo
}
