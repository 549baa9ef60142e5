package gesture

import "time"

// Config holds the recognizer timing constants. The exact window and
// threshold durations are tunable, not fixed by protocol.
type Config struct {
	InterPressWindow time.Duration // Max gap between consecutive presses of one interaction
	HoldThreshold    time.Duration // Press duration at which a hold finalizes
	Debounce         time.Duration // Edges closer together than this are contact bounce
}

// DefaultConfig returns the stock timing constants.
func DefaultConfig() Config {
	return Config{
		InterPressWindow: 400 * time.Millisecond,
		HoldThreshold:    600 * time.Millisecond,
		Debounce:         20 * time.Millisecond,
	}
}

// Recognizer accumulates button edges into exactly one finalized gesture per
// interaction. Both edge arrival and deadline expiry are transitions of the
// same state machine, driven by the explicit "now" passed into every call:
// Tick must be called periodically even when no edges arrive, because window
// and hold deadlines are the system's only purely time-driven transitions.
//
// The recognizer is a pure function of the edge-timestamp sequence and the
// two threshold constants; it performs no I/O and reads no clocks.
type Recognizer struct {
	cfg Config

	taps       int  // Completed short presses in the current interaction
	down       bool // Button currently pressed
	holdFired  bool // Current press already finalized as a hold
	pressedAt  time.Time
	releasedAt time.Time
	lastEdgeAt time.Time
	hasEdge    bool
}

// NewRecognizer creates a recognizer with the given timing constants.
// Non-positive fields fall back to the defaults.
func NewRecognizer(cfg Config) *Recognizer {
	def := DefaultConfig()
	if cfg.InterPressWindow <= 0 {
		cfg.InterPressWindow = def.InterPressWindow
	}
	if cfg.HoldThreshold <= 0 {
		cfg.HoldThreshold = def.HoldThreshold
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = def.Debounce
	}
	return &Recognizer{cfg: cfg}
}

// Press records a button-down edge. A press never finalizes anything by
// itself; it either extends the current interaction or starts a new one.
func (r *Recognizer) Press(now time.Time) {
	if r.bounced(now) || r.down {
		return
	}
	r.noteEdge(now)
	r.down = true
	r.holdFired = false
	r.pressedAt = now
}

// Release records a button-up edge. A press held past the hold threshold
// finalizes immediately as the hold variant (normally Tick has already done
// so); a shorter press counts as one more tap and arms the inter-press
// window. A pulse narrower than the debounce interval is contact chatter:
// the whole press is cancelled rather than left dangling as held-down.
func (r *Recognizer) Release(now time.Time) Kind {
	if !r.down {
		return None
	}
	r.noteEdge(now)
	r.down = false

	if now.Sub(r.pressedAt) < r.cfg.Debounce {
		r.holdFired = false
		return None
	}
	if r.holdFired {
		// The hold already finalized this interaction; absorb the release.
		r.holdFired = false
		return None
	}
	if now.Sub(r.pressedAt) >= r.cfg.HoldThreshold {
		g := classify(r.taps, true)
		r.taps = 0
		return g
	}
	r.taps++
	r.releasedAt = now
	return None
}

// Tick evaluates the window and hold deadlines against the given time and
// returns the finalized gesture, if any.
func (r *Recognizer) Tick(now time.Time) Kind {
	if r.down {
		if !r.holdFired && now.Sub(r.pressedAt) >= r.cfg.HoldThreshold {
			r.holdFired = true
			g := classify(r.taps, true)
			r.taps = 0
			return g
		}
		return None
	}
	if r.taps > 0 && now.Sub(r.releasedAt) >= r.cfg.InterPressWindow {
		g := classify(r.taps, false)
		r.taps = 0
		return g
	}
	return None
}

// Reset discards any gesture in progress. Called on power-off: an in-flight
// interaction is never finalized across a power cycle.
func (r *Recognizer) Reset() {
	r.taps = 0
	r.down = false
	r.holdFired = false
	r.hasEdge = false
}

// Pending reports whether an interaction is in progress.
func (r *Recognizer) Pending() bool {
	return r.down || r.taps > 0
}

func (r *Recognizer) bounced(now time.Time) bool {
	return r.hasEdge && now.Sub(r.lastEdgeAt) < r.cfg.Debounce
}

func (r *Recognizer) noteEdge(now time.Time) {
	r.lastEdgeAt = now
	r.hasEdge = true
}
