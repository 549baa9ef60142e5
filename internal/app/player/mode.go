// Package player provides the playback mode state machine: it consumes
// gestures, dial changes and track-finished signals, owns the current
// position, and drives the hardware capability interface.
package player

// Mode represents the playback mode.
type Mode int

const (
	ModeOff Mode = iota // Powered down; only power-on exits
	ModeAlbum
	ModePlaylist
	ModeShuffle
	ModeRadio
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeAlbum:
		return "album"
	case ModePlaylist:
		return "playlist"
	case ModeShuffle:
		return "shuffle"
	case ModeRadio:
		return "radio"
	default:
		return "unknown"
	}
}

// ParseMode parses a persisted mode string. Off is never persisted.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "album":
		return ModeAlbum, true
	case "playlist":
		return ModePlaylist, true
	case "shuffle":
		return ModeShuffle, true
	case "radio":
		return ModeRadio, true
	default:
		return ModeOff, false
	}
}
