// Package station provides the radio Station entity and the continuous
// broadcast timeline the stations occupy.
package station

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/hweir/bakelite/internal/domain/track"
)

// Station is an ordered track list occupying a fixed interval on the radio's
// continuous virtual timeline.
type Station struct {
	Name     string
	Tracks   []track.Track
	Duration time.Duration // Sum of effective track durations
	Start    time.Duration // Offset of this station's interval on the timeline
}

// Timeline lays stations out on one continuous loop. Station intervals are
// disjoint, contiguous, and cover the total duration with no gaps.
type Timeline struct {
	Stations []Station
	Total    time.Duration
}

// BuildTimeline assigns each station its interval in order and computes the
// total loop duration. Stations with no tracks are rejected.
func BuildTimeline(stations []Station) (Timeline, error) {
	if len(stations) == 0 {
		return Timeline{}, errors.New("no stations")
	}

	tl := Timeline{Stations: make([]Station, len(stations))}
	var cursor time.Duration
	for i, s := range stations {
		if len(s.Tracks) == 0 {
			return Timeline{}, errors.Newf("station %q has no tracks", s.Name)
		}
		s.Duration = track.TotalDuration(s.Tracks)
		s.Start = cursor
		cursor += s.Duration
		tl.Stations[i] = s
	}
	tl.Total = cursor
	return tl, nil
}

// Locate finds the track playing at the given station-local elapsed time and
// the offset within it. Elapsed values at an exact track boundary resolve to
// the earlier track.
func (s *Station) Locate(elapsed time.Duration) (trackIndex int, offset time.Duration) {
	if len(s.Tracks) == 0 {
		return 0, 0
	}
	var cumulative time.Duration
	for i := range s.Tracks {
		end := cumulative + s.Tracks[i].EffectiveDuration()
		if elapsed <= end {
			return i + 1, elapsed - cumulative
		}
		cumulative = end
	}
	// Past the summed duration; wrap to the first track.
	return 1, 0
}
