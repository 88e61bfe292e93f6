package stage

import (
	"sync"
	"time"
)

// window tracks one named timing condition. Inactive until begin is
// called; elapsed time accumulates only while the owning guard stays
// true, so clearing the instant the guard fails is what absorbs
// distance-bucket flicker.
type window struct {
	start  time.Time
	active bool
}

func (w *window) begin(now time.Time) {
	if !w.active {
		w.start = now
		w.active = true
	}
}

func (w *window) clear() {
	w.active = false
}

func (w *window) elapsed(now time.Time) time.Duration {
	if !w.active {
		return 0
	}
	return now.Sub(w.start)
}

// Machine is the kiosk stage state machine. It must be owned by a
// single tick loop: Update and the query accessors are not safe for
// concurrent use. The Signal* methods are the exception; they may be
// called from any goroutine and latch until the next Update consumes
// them.
type Machine struct {
	cfg Config
	now func() time.Time

	current  Stage
	previous Stage

	enteredAt       time.Time
	lastInteraction time.Time

	// One timer category per stage. Entering a new stage clears all
	// of them; that single reset point is the source of truth.
	farAway   window // Far bucket, PersonDetected and AudioPrompt
	leave     window // person absent, PersonDetected
	veryNear  window // VeryNear bucket, AudioPrompt
	countdown window // close-out countdown, WebInterface

	// Latched one-shot signals from asynchronous collaborators.
	sigMu         sync.Mutex
	buttonClicked bool
	webCompleted  bool
	clipFinished  bool
}

// New creates a machine in Idle. The config is not validated here;
// call Config.Validate when loading it.
func New(cfg Config) *Machine {
	m := &Machine{
		cfg: cfg,
		now: time.Now,
	}
	start := m.now()
	m.enteredAt = start
	m.lastInteraction = start
	return m
}

// SignalButtonClick latches an info-button tap. The latch is consumed
// by the AudioPrompt stage and discarded on any stage transition, so a
// tap registered outside AudioPrompt never carries over.
func (m *Machine) SignalButtonClick() {
	m.sigMu.Lock()
	m.buttonClicked = true
	m.sigMu.Unlock()
}

// SignalWebCompletion latches the "done" event raised by the hosted
// web page. Cleared when the machine leaves WebInterface.
func (m *Machine) SignalWebCompletion() {
	m.sigMu.Lock()
	m.webCompleted = true
	m.sigMu.Unlock()
}

// SignalClipFinished latches the end of the thank-you clip. Only
// meaningful inside ThankYou; stale signals are dropped on entry.
func (m *Machine) SignalClipFinished() {
	m.sigMu.Lock()
	m.clipFinished = true
	m.sigMu.Unlock()
}

// Update advances the machine one tick. It never blocks and has no
// side effects beyond its own state; the caller dispatches media and
// browser commands when changed is true.
func (m *Machine) Update(in Inputs) (changed bool, s Stage) {
	now := m.now()

	// Fold this tick's one-shots into the latches so a click between
	// two frame reads is never lost.
	m.sigMu.Lock()
	if in.ButtonClicked {
		m.buttonClicked = true
	}
	if in.WebCompleted {
		m.webCompleted = true
	}
	button, web, clip := m.buttonClicked, m.webCompleted, m.clipFinished
	m.sigMu.Unlock()

	// Absence wins over any stale distance estimate.
	if !in.PersonPresent {
		in.Distance = BucketNone
	}
	if in.InteractionDetected {
		m.lastInteraction = now
	}

	old := m.current
	switch m.current {
	case Idle:
		m.tickIdle(in)
	case PersonDetected:
		m.tickDetected(now, in)
	case AudioPrompt:
		m.tickAudio(now, in, button)
	case WebInterface:
		m.tickWeb(now, in, web)
	case ThankYou:
		m.tickThankYou(now, clip)
	}

	changed = m.current != old
	if changed {
		m.previous = old
		m.enteredAt = now
		m.farAway.clear()
		m.leave.clear()
		m.veryNear.clear()
		m.countdown.clear()

		m.sigMu.Lock()
		m.buttonClicked = false
		if old == WebInterface {
			m.webCompleted = false
		}
		if m.current == ThankYou {
			m.clipFinished = false
		}
		m.sigMu.Unlock()

		if m.current == WebInterface {
			m.lastInteraction = now
		}
	}
	return changed, m.current
}

func (m *Machine) tickIdle(in Inputs) {
	if in.PersonPresent && (in.Distance == Near || in.Distance == VeryNear) {
		m.current = PersonDetected
	}
}

func (m *Machine) tickDetected(now time.Time, in Inputs) {
	if !in.PersonPresent {
		m.farAway.clear()
		m.leave.begin(now)
		if m.leave.elapsed(now) >= m.cfg.LeaveCountdown {
			m.current = Idle
		}
		return
	}

	// Any sighting cancels the leave countdown.
	m.leave.clear()

	switch in.Distance {
	case VeryNear:
		m.current = AudioPrompt
	case Far:
		m.farAway.begin(now)
		if m.farAway.elapsed(now) >= m.cfg.FarTimeout {
			m.current = Idle
		}
	default:
		// Near: engaged, everything resets.
		m.farAway.clear()
	}
}

func (m *Machine) tickAudio(now time.Time, in Inputs, button bool) {
	if button {
		m.current = WebInterface
		return
	}

	if !in.PersonPresent {
		if m.cfg.ReturnToDetected {
			m.current = PersonDetected
		} else {
			m.current = Idle
		}
		return
	}

	if in.Distance == VeryNear {
		m.farAway.clear()
		m.veryNear.begin(now)
		if m.cfg.AutoAdvance && m.veryNear.elapsed(now) >= m.cfg.VeryNearStability {
			m.current = WebInterface
		}
		return
	}

	m.veryNear.clear()
	if in.Distance == Far {
		m.farAway.begin(now)
		if m.farAway.elapsed(now) >= m.cfg.ResponseTimeout {
			m.current = PersonDetected
		}
	} else {
		m.farAway.clear()
	}
}

func (m *Machine) tickWeb(now time.Time, in Inputs, web bool) {
	if web {
		if m.cfg.ThankYouStage {
			m.current = ThankYou
		} else {
			m.current = Idle
		}
		return
	}

	// Activity at the screen cancels the countdown and restarts the
	// idle clock.
	if in.InteractionDetected || in.Distance == VeryNear {
		m.countdown.clear()
		m.lastInteraction = now
		return
	}

	stepAway := in.Distance == Near || in.Distance == Far
	idle := now.Sub(m.lastInteraction) >= m.cfg.IdleTimeout
	if stepAway || idle {
		m.countdown.begin(now)
		if m.countdown.elapsed(now) >= m.cfg.WebCountdown {
			m.current = Idle
		}
		return
	}
	m.countdown.clear()
}

func (m *Machine) tickThankYou(now time.Time, clip bool) {
	if clip || now.Sub(m.enteredAt) >= m.cfg.ThankYouTimeout {
		m.current = Idle
	}
}

// Reset forces the machine back to Idle and drops every timer and
// latch. Used after an unrecoverable collaborator failure.
func (m *Machine) Reset() {
	now := m.now()
	m.previous = m.current
	m.current = Idle
	m.enteredAt = now
	m.lastInteraction = now
	m.farAway.clear()
	m.leave.clear()
	m.veryNear.clear()
	m.countdown.clear()

	m.sigMu.Lock()
	m.buttonClicked = false
	m.webCompleted = false
	m.clipFinished = false
	m.sigMu.Unlock()
}

// Stage returns the currently active stage.
func (m *Machine) Stage() Stage {
	return m.current
}

// Previous returns the stage active before the last transition.
func (m *Machine) Previous() Stage {
	return m.previous
}

// CountdownRemaining reports the time left on the active close-out
// countdown (leave countdown in PersonDetected, web countdown in
// WebInterface). Display only; never drives transitions.
func (m *Machine) CountdownRemaining() (time.Duration, bool) {
	now := m.now()
	switch m.current {
	case PersonDetected:
		if m.leave.active {
			return maxDuration(0, m.cfg.LeaveCountdown-m.leave.elapsed(now)), true
		}
	case WebInterface:
		if m.countdown.active {
			return maxDuration(0, m.cfg.WebCountdown-m.countdown.elapsed(now)), true
		}
	}
	return 0, false
}

// VeryNearDuration reports how long the visitor has held VeryNear in
// AudioPrompt. Zero when the window is inactive.
func (m *Machine) VeryNearDuration() time.Duration {
	return m.veryNear.elapsed(m.now())
}

// FarDuration reports how long the visitor has held Far in the current
// stage. Zero when the window is inactive.
func (m *Machine) FarDuration() time.Duration {
	return m.farAway.elapsed(m.now())
}

// StateDuration reports how long the current stage has been active.
func (m *Machine) StateDuration() time.Duration {
	return m.now().Sub(m.enteredAt)
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
