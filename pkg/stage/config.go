package stage

import (
	"fmt"
	"time"
)

// Config holds every timing window and topology switch for the machine.
// All durations must be positive.
type Config struct {
	// FarTimeout sends PersonDetected back to Idle after the visitor
	// has stayed in the Far bucket for this long.
	FarTimeout time.Duration

	// LeaveCountdown sends PersonDetected back to Idle after the
	// visitor has been out of sight for this long.
	LeaveCountdown time.Duration

	// ResponseTimeout sends AudioPrompt back to PersonDetected after
	// the visitor has stayed Far for this long without tapping the button.
	ResponseTimeout time.Duration

	// IdleTimeout starts the WebInterface close-out countdown once no
	// interaction has been seen for this long.
	IdleTimeout time.Duration

	// WebCountdown is the close-out countdown length in WebInterface.
	WebCountdown time.Duration

	// VeryNearStability is how long the visitor must hold VeryNear in
	// AudioPrompt before an AutoAdvance machine opens the catalog.
	VeryNearStability time.Duration

	// ThankYouTimeout bounds the ThankYou stage in case the clip-finished
	// signal never arrives.
	ThankYouTimeout time.Duration

	// AutoAdvance opens the catalog on sustained VeryNear presence
	// instead of requiring an explicit button tap.
	AutoAdvance bool

	// ThankYouStage routes web completion through the ThankYou clip
	// instead of straight back to Idle.
	ThankYouStage bool

	// ReturnToDetected sends AudioPrompt to PersonDetected rather than
	// Idle when the visitor disappears mid-prompt.
	ReturnToDetected bool
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		FarTimeout:        3 * time.Second,
		LeaveCountdown:    10 * time.Second,
		ResponseTimeout:   15 * time.Second,
		IdleTimeout:       15 * time.Second,
		WebCountdown:      60 * time.Second,
		VeryNearStability: 2 * time.Second,
		ThankYouTimeout:   12 * time.Second,
	}
}

// Validate checks that every timing window is positive.
func (c Config) Validate() error {
	checks := []struct {
		name string
		d    time.Duration
	}{
		{"far_timeout", c.FarTimeout},
		{"leave_countdown", c.LeaveCountdown},
		{"response_timeout", c.ResponseTimeout},
		{"idle_timeout", c.IdleTimeout},
		{"web_countdown", c.WebCountdown},
		{"very_near_stability", c.VeryNearStability},
		{"thank_you_timeout", c.ThankYouTimeout},
	}
	for _, chk := range checks {
		if chk.d <= 0 {
			return fmt.Errorf("stage config: %s must be positive, got %v", chk.name, chk.d)
		}
	}
	return nil
}
