// Package radio computes the always-broadcasting radio schedule as a pure
// function of elapsed real time and dial position.
package radio

import (
	"math"
	"time"

	"github.com/hweir/bakelite/internal/domain/station"
)

// ResumePolicy selects what a listener hears when re-tuning to a previously
// visited station.
type ResumePolicy int

const (
	// ResumeBroadcast resumes at the station's own virtual position: the
	// station kept broadcasting while the listener was away.
	ResumeBroadcast ResumePolicy = iota
	// ResumeListener resumes at the listener's last local position. Kept as
	// a named policy because the reference behavior handled this
	// inconsistently across revisions; the engine itself only implements
	// ResumeBroadcast and callers wanting ResumeListener must track local
	// positions themselves.
	ResumeListener
)

// Policy is the adopted re-tune behavior.
const Policy = ResumeBroadcast

// Position is the engine's answer to "what is on the air right now".
type Position struct {
	Station int           // Station index, -1 when Static
	Track   int           // 1-based track index within the station, 0 when Static
	Offset  time.Duration // Offset within the track
	Static  bool          // Dial is in a boundary deadband: no station, play the overlay
}

// Engine derives radio positions from a timeline, an origin timestamp and a
// dial value. All computations are deterministic and side-effect-free: the
// same (timeline, origin, dial, now) always yields the same Position, and
// calling them never changes the state they depend on.
type Engine struct {
	timeline station.Timeline
	origin   time.Time
	deadband float64 // Full deadband width at each internal bucket boundary, in dial units
}

// NewEngine creates an engine over the given timeline. origin is the real
// timestamp at which radio mode was first (or last) established; deadband is
// the full width, in dial percent, of the static band at each internal
// station boundary.
func NewEngine(tl station.Timeline, origin time.Time, deadband float64) *Engine {
	if deadband < 0 {
		deadband = 0
	}
	return &Engine{timeline: tl, origin: origin, deadband: deadband}
}

// Origin returns the timestamp the virtual clock counts from.
func (e *Engine) Origin() time.Time {
	return e.origin
}

// SetOrigin re-establishes the virtual clock. Used when a persisted origin is
// restored at power-on, so the broadcast continues across power cycles.
func (e *Engine) SetOrigin(origin time.Time) {
	e.origin = origin
}

// Stations returns the number of stations on the timeline.
func (e *Engine) Stations() int {
	return len(e.timeline.Stations)
}

// Station returns the station at the given index.
func (e *Engine) Station(idx int) (station.Station, bool) {
	if idx < 0 || idx >= len(e.timeline.Stations) {
		return station.Station{}, false
	}
	return e.timeline.Stations[idx], true
}

// VirtualElapsed returns elapsed virtual time folded onto the timeline loop.
func (e *Engine) VirtualElapsed(now time.Time) time.Duration {
	if e.timeline.Total <= 0 {
		return 0
	}
	elapsed := now.Sub(e.origin) % e.timeline.Total
	if elapsed < 0 {
		elapsed += e.timeline.Total
	}
	return elapsed
}

// StationIndex maps a dial value in [0,100] to a station index. The second
// return is false when the dial sits inside a boundary deadband ("static").
func (e *Engine) StationIndex(dial float64) (int, bool) {
	n := len(e.timeline.Stations)
	if n == 0 {
		return -1, false
	}
	dial = clampDial(dial)
	if n > 1 && e.deadband > 0 {
		width := 100.0 / float64(n)
		half := e.deadband / 2
		for b := 1; b < n; b++ {
			if math.Abs(dial-width*float64(b)) <= half {
				return -1, false
			}
		}
	}
	idx := int(dial / (100.0 / float64(n)))
	if idx >= n {
		idx = n - 1
	}
	return idx, true
}

// PositionAt computes the track and offset the given station is broadcasting
// at the given instant. The station's local elapsed time is the global
// virtual elapsed time shifted by the station's interval start and folded
// onto the station's own duration, so re-tuning always lands where the global
// clock says the station naturally is.
func (e *Engine) PositionAt(stationIdx int, now time.Time) (trackIndex int, offset time.Duration) {
	if stationIdx < 0 || stationIdx >= len(e.timeline.Stations) {
		return 0, 0
	}
	st := &e.timeline.Stations[stationIdx]
	if st.Duration <= 0 {
		return 0, 0
	}
	local := (e.VirtualElapsed(now) - st.Start) % st.Duration
	if local < 0 {
		local += st.Duration
	}
	return st.Locate(local)
}

// Tune resolves a dial value to the full on-air position at the given
// instant.
func (e *Engine) Tune(dial float64, now time.Time) Position {
	idx, ok := e.StationIndex(dial)
	if !ok {
		return Position{Station: -1, Static: true}
	}
	trk, off := e.PositionAt(idx, now)
	return Position{Station: idx, Track: trk, Offset: off}
}

func clampDial(dial float64) float64 {
	if dial < 0 {
		return 0
	}
	if dial > 100 {
		return 100
	}
	return dial
}
