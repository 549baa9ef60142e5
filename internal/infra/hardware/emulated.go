package hardware

import (
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/hweir/bakelite/internal/domain/track"
)

// Emulated is the desktop backend: a virtual decoder that tracks what would
// be playing and emits busy-to-idle edges when the virtual track runs out,
// plus file-based persistence. Audio output is limited to the synthesized
// static overlay; real track audio is out of scope for the emulator.
type Emulated struct {
	settings EmulatedSettings

	// The duration table is replaced by the metadata reload goroutine while
	// the tick loop keeps playing; everything else is single-caller.
	mu        sync.RWMutex
	durations map[track.Physical]time.Duration

	busy    bool
	current track.Physical
	endsAt  time.Time
	volume  int
}

// NewEmulated creates the emulated backend.
func NewEmulated(settings EmulatedSettings) *Emulated {
	return &Emulated{
		settings:  settings,
		durations: make(map[track.Physical]time.Duration),
		volume:    100,
	}
}

// SetDurations installs the physical-address duration table built from the
// metadata feed, so the virtual decoder knows when tracks end. Safe to call
// while playback commands are running on another goroutine.
func (e *Emulated) SetDurations(durations map[track.Physical]time.Duration) {
	e.mu.Lock()
	e.durations = durations
	e.mu.Unlock()
}

// Play starts the virtual decoder on the given address.
func (e *Emulated) Play(addr track.Physical, startOffset time.Duration) error {
	if !addr.Valid() {
		return errors.Wrapf(ErrCommand, "address %d/%d out of range", addr.Folder, addr.Track)
	}
	e.mu.RLock()
	duration, ok := e.durations[addr]
	e.mu.RUnlock()
	if !ok {
		duration = track.DefaultDuration
	}
	remaining := duration - startOffset
	if remaining < 0 {
		remaining = 0
	}
	e.busy = true
	e.current = addr
	e.endsAt = time.Now().Add(remaining)
	zlog.Debug().Msgf("emulated: play %d/%d offset=%v remaining=%v",
		addr.Folder, addr.Track, startOffset, remaining)
	return nil
}

// Stop halts the virtual decoder without emitting a finished edge.
func (e *Emulated) Stop() error {
	e.busy = false
	return nil
}

// SetVolume records the output level.
func (e *Emulated) SetVolume(level int) error {
	if level < 0 || level > 100 {
		return errors.Wrapf(ErrCommand, "volume %d out of range", level)
	}
	e.volume = level
	return nil
}

// Volume returns the last applied level. Used by the emulator UI.
func (e *Emulated) Volume() int {
	return e.volume
}

// Current returns the address the virtual decoder is on and whether it is
// busy. Used by the emulator UI.
func (e *Emulated) Current() (track.Physical, bool) {
	return e.current, e.busy
}

// TrackFinished reports the busy-to-idle edge once when the virtual track
// runs out.
func (e *Emulated) TrackFinished(now time.Time) bool {
	if e.busy && !now.Before(e.endsAt) {
		e.busy = false
		return true
	}
	return false
}

// PlayOverlay plays the synthesized static burst, if audio is available in
// this build and enabled in the settings.
func (e *Emulated) PlayOverlay() error {
	if e.settings.DisableOverlay {
		return nil
	}
	return playStaticOverlay()
}

// Persist writes the state record to the configured file.
func (e *Emulated) Persist(data []byte) error {
	tmp := e.settings.StateFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write state file")
	}
	if err := os.Rename(tmp, e.settings.StateFile); err != nil {
		return errors.Wrap(err, "failed to replace state file")
	}
	return nil
}

// Load reads the persisted state record. A missing file is not an error.
func (e *Emulated) Load() ([]byte, error) {
	data, err := os.ReadFile(e.settings.StateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read state file")
	}
	return data, nil
}
