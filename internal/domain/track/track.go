// Package track provides the Track domain entity.
package track

import "time"

// Track represents a single playable recording.
type Track struct {
	ID       string        // Stable track ID (assigned by the library sync step)
	Title    string        // Track title
	Artist   string        // Artist name
	Duration time.Duration // Track duration
	Physical *Physical     // Physical address on the playback hardware (nil until resolved)
}

// Physical is a hardware storage address. Constrained playback hardware
// addresses content only by these two small integers.
type Physical struct {
	Folder int // 1-99
	Track  int // 1-999
}

// Physical address space bounds.
const (
	MinFolder = 1
	MaxFolder = 99
	MinTrack  = 1
	MaxTrack  = 999
)

// Valid reports whether the address is inside the hardware's address space.
func (p Physical) Valid() bool {
	return p.Folder >= MinFolder && p.Folder <= MaxFolder &&
		p.Track >= MinTrack && p.Track <= MaxTrack
}

// DefaultDuration is assumed for tracks with missing or zero duration metadata.
const DefaultDuration = 3 * time.Minute

// EffectiveDuration returns the track duration, substituting a default for
// tracks whose metadata carries no usable duration.
func (t *Track) EffectiveDuration() time.Duration {
	if t.Duration <= 0 {
		return DefaultDuration
	}
	return t.Duration
}

// TotalDuration sums the effective durations of the given tracks.
func TotalDuration(tracks []Track) time.Duration {
	var total time.Duration
	for i := range tracks {
		total += tracks[i].EffectiveDuration()
	}
	return total
}
