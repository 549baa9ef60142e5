// Package collection provides the Collection domain entity: an album, a
// playlist, or the whole library used as a shuffle scope.
package collection

import (
	"time"

	"github.com/hweir/bakelite/internal/domain/track"
)

// Type discriminates the kinds of collection.
type Type int

const (
	TypeAlbum Type = iota
	TypePlaylist
	TypeLibrary
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeAlbum:
		return "album"
	case TypePlaylist:
		return "playlist"
	case TypeLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// ParseType parses a type from its string form.
func ParseType(s string) (Type, bool) {
	switch s {
	case "album":
		return TypeAlbum, true
	case "playlist":
		return TypePlaylist, true
	case "library":
		return TypeLibrary, true
	default:
		return TypeAlbum, false
	}
}

// Collection is an ordered sequence of tracks. Order is significant for
// albums and playlists; a shuffle scope imposes its own order on top.
type Collection struct {
	Type   Type
	ID     int    // Stable ID (assigned by the library sync step)
	Name   string // Display name
	Tracks []track.Track
}

// TrackCount returns the number of tracks.
func (c *Collection) TrackCount() int {
	return len(c.Tracks)
}

// TrackAt returns the track at the given 1-based index.
func (c *Collection) TrackAt(index int) (track.Track, bool) {
	if index < 1 || index > len(c.Tracks) {
		return track.Track{}, false
	}
	return c.Tracks[index-1], true
}

// TotalDuration returns the summed effective duration of all tracks.
func (c *Collection) TotalDuration() time.Duration {
	return track.TotalDuration(c.Tracks)
}

// Library builds the synthetic whole-library collection from a set of
// collections, preserving library order.
func Library(name string, sources []Collection) Collection {
	lib := Collection{Type: TypeLibrary, ID: 0, Name: name}
	for i := range sources {
		lib.Tracks = append(lib.Tracks, sources[i].Tracks...)
	}
	return lib
}
