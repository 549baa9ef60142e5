package player

import (
	"time"

	"github.com/hweir/bakelite/internal/domain/track"
)

// Status is a point-in-time snapshot of the controller for display and
// diagnostics. It carries copies only; holding one never pins controller
// state.
type Status struct {
	Power   bool
	Mode    Mode
	Playing bool
	Volume  int

	// Linear and shuffle modes.
	CollectionName string
	TrackIndex     int // 1-based within the active scope/order
	TrackCount     int
	Track          track.Track

	// Radio mode.
	Dial        float64
	StationName string
	Static      bool
	Offset      time.Duration

	PersistErr error
}

// Status reports the current state.
func (c *Controller) Status() Status {
	s := Status{
		Power:      c.power,
		Mode:       c.mode,
		Playing:    c.playing,
		Volume:     c.volume,
		Dial:       c.dial,
		PersistErr: c.persistErr,
	}
	switch c.mode {
	case ModeAlbum, ModePlaylist:
		if col, ok := c.currentCollection(); ok {
			s.CollectionName = col.Name
			s.TrackCount = col.TrackCount()
			s.TrackIndex = c.trackIndex()
			if t, ok := col.TrackAt(s.TrackIndex); ok {
				s.Track = t
			}
		}
	case ModeShuffle:
		if sh := c.shuffle; sh != nil {
			s.CollectionName = sh.scope.Name
			s.TrackCount = sh.length()
			s.TrackIndex = sh.pos
			if scopePos := sh.current(); scopePos >= 0 {
				s.Track = sh.scope.Tracks[scopePos]
			}
		}
	case ModeRadio:
		s.Static = c.radioPos.Static
		s.Offset = c.radioPos.Offset
		if st, ok := c.engine.Station(c.radioPos.Station); ok && !c.radioPos.Static {
			s.StationName = st.Name
			s.TrackCount = len(st.Tracks)
			s.TrackIndex = c.radioPos.Track
			if c.radioPos.Track >= 1 && c.radioPos.Track <= len(st.Tracks) {
				s.Track = st.Tracks[c.radioPos.Track-1]
			}
		}
	}
	return s
}
