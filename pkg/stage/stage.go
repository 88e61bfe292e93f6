// Package stage implements the kiosk's top-level finite state machine.
// It fuses per-tick sensor facts (person presence, distance bucket),
// interaction signals and latched one-shot events into deterministic
// stage transitions, and owns every timing window involved. The machine
// performs no I/O: callers read the returned stage change and drive
// media, browser and dashboard side effects themselves.
package stage

// Stage is one node of the kiosk flow. Exactly one stage is active at a time.
type Stage int

const (
	// Idle plays the looping attraction animation and watches for visitors.
	Idle Stage = iota
	// PersonDetected greets an approaching visitor with the waving clip.
	PersonDetected
	// AudioPrompt invites a very-near visitor to tap the info button.
	AudioPrompt
	// WebInterface shows the product catalog in the embedded browser.
	WebInterface
	// ThankYou plays the close-out clip before returning to Idle.
	// Only reachable when Config.ThankYouStage is enabled.
	ThankYou
)

// String returns the stage name used in logs and on the dashboard.
func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case PersonDetected:
		return "person_detected"
	case AudioPrompt:
		return "audio_prompt"
	case WebInterface:
		return "web_interface"
	case ThankYou:
		return "thank_you"
	default:
		return "unknown"
	}
}

// All lists every stage, in flow order.
func All() []Stage {
	return []Stage{Idle, PersonDetected, AudioPrompt, WebInterface, ThankYou}
}

// Bucket is the coarse distance classification of a detected person,
// derived externally from bounding-box size. The machine treats it as
// an opaque ordered signal: Far < Near < VeryNear.
type Bucket int

const (
	// BucketNone means no person, or no usable distance estimate.
	BucketNone Bucket = iota
	// Far is a person at the edge of the detection range (>5m).
	Far
	// Near is a person within engagement range (~3m).
	Near
	// VeryNear is a person at the screen (<1m).
	VeryNear
)

func (b Bucket) String() string {
	switch b {
	case Far:
		return "far"
	case Near:
		return "near"
	case VeryNear:
		return "very_near"
	default:
		return "none"
	}
}

// Inputs are the facts about a single tick. All values describe this
// tick only; the machine decides what they mean over time.
type Inputs struct {
	PersonPresent       bool
	Distance            Bucket
	InteractionDetected bool
	WebCompleted        bool
	ButtonClicked       bool
}
