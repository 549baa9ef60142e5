package player

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/hweir/bakelite/internal/app/gesture"
	"github.com/hweir/bakelite/internal/app/radio"
	"github.com/hweir/bakelite/internal/app/translate"
	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/domain/station"
	"github.com/hweir/bakelite/internal/domain/track"
	"github.com/hweir/bakelite/internal/infra/hardware"
)

// ErrEmptyCollection is reported when the active scope has no tracks; the
// controller goes idle instead of issuing a command.
var ErrEmptyCollection = errors.New("collection has no tracks")

// Config holds controller configuration.
type Config struct {
	Gesture       gesture.Config
	DeadbandPct   float64 // Radio dial deadband width at station boundaries
	InitialVolume int     // Volume before any persisted value is restored
}

// Library is everything the core consumes from one sync build.
type Library struct {
	Generation uuid.UUID
	Albums     []collection.Collection
	Playlists  []collection.Collection
	Timeline   station.Timeline
	Translator *translate.Translator
}

// Controller is the playback mode state machine. It is strictly
// single-threaded: every entry point takes the caller's "now" and must be
// externally serialized. It advances via the cooperative Tick interleaved
// with discrete event calls; no entry point blocks beyond the bounded
// persistence write, and no internal fault halts the tick loop.
type Controller struct {
	hw  hardware.Interface
	cfg Config

	lib    Library
	engine *radio.Engine

	rec *gesture.Recognizer
	rng *rand.Rand

	power bool
	mode  Mode

	// Remembered positions per base mode, so toggling resumes exactly.
	albumIdx      int
	albumTrack    int // 1-based
	playlistIdx   int
	playlistTrack int // 1-based

	shuffle *shuffleOrder

	playing bool
	volume  int

	dial           float64
	radioPos       radio.Position
	lastRadioCheck time.Time

	resumeMode Mode  // Mode to return to at power-on
	persistErr error // Last persistence failure, surfaced in Status
}

// New creates a controller over the given hardware backend. The controller
// starts powered off with defaults; call Start to restore persisted state
// and begin playback.
func New(hw hardware.Interface, cfg Config, lib Library) *Controller {
	c := &Controller{
		hw:         hw,
		cfg:        cfg,
		rec:        gesture.NewRecognizer(cfg.Gesture),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		mode:       ModeOff,
		resumeMode: ModeAlbum,
		albumTrack: 1, playlistTrack: 1,
		volume: clampVolume(cfg.InitialVolume),
	}
	c.installLibrary(lib)
	return c
}

// Start restores persisted state and powers the controller on. A missing or
// corrupt record falls back to safe defaults; startup never aborts on bad
// state.
func (c *Controller) Start(now time.Time) {
	record := c.loadRecord()
	c.applyRecord(record, now)
	c.power = true
	if err := c.hw.SetVolume(c.volume); err != nil {
		zlog.Warn().Err(err).Msg("player: set volume failed")
	}
	c.startCurrent(now)
	zlog.Info().Msgf("player: started mode=%s collection=%d track=%d volume=%d",
		c.mode, c.collectionIndex(), c.trackIndex(), c.volume)
}

// SetLibrary swaps in a freshly synced library. The previous translator
// mapping is invalid from this point on; the controller re-anchors by
// clamping indices and discarding any stale shuffle order.
func (c *Controller) SetLibrary(lib Library, now time.Time) {
	changed := lib.Generation != c.lib.Generation
	c.installLibrary(lib)
	if !changed {
		return
	}
	zlog.Info().Msgf("player: library changed, re-anchoring (generation=%s)", lib.Generation)
	c.clampPositions()
	if c.shuffle != nil {
		// The old permutation indexes a scope that may no longer exist.
		c.shuffle = nil
		if c.mode == ModeShuffle {
			c.mode = ModeAlbum
		}
	}
	if c.power && c.mode != ModeOff {
		c.persist()
		c.startCurrent(now)
	}
}

func (c *Controller) installLibrary(lib Library) {
	origin := time.Time{}
	if c.engine != nil {
		origin = c.engine.Origin()
	}
	c.lib = lib
	c.engine = radio.NewEngine(lib.Timeline, origin, c.cfg.DeadbandPct)
}

// ButtonDown records a button-down edge.
func (c *Controller) ButtonDown(now time.Time) {
	if !c.power {
		return
	}
	c.rec.Press(now)
}

// ButtonUp records a button-up edge, applying any gesture it finalizes.
func (c *Controller) ButtonUp(now time.Time) {
	if !c.power {
		return
	}
	c.apply(c.rec.Release(now), now)
}

// Tick advances time-driven state: gesture deadlines, the virtual decoder's
// track-finished edge, and the radio schedule. Call it every 20-50 ms.
func (c *Controller) Tick(now time.Time) {
	if !c.power {
		return
	}
	c.apply(c.rec.Tick(now), now)

	if c.hw.TrackFinished(now) {
		c.TrackFinished(now)
	}

	// The radio schedule only needs re-checking about once a second.
	if c.mode == ModeRadio && now.Sub(c.lastRadioCheck) >= time.Second {
		c.lastRadioCheck = now
		c.syncRadio(now, false)
	}
}

// TrackFinished handles the decoder's busy-to-idle edge: an implicit tap for
// Album/Playlist/Shuffle. Radio ignores it; there the position is
// time-derived, not decoder-derived, and the periodic schedule check moves
// playback on.
func (c *Controller) TrackFinished(now time.Time) {
	if !c.power {
		return
	}
	switch c.mode {
	case ModeAlbum, ModePlaylist, ModeShuffle:
		zlog.Debug().Msg("player: track finished, auto-advancing")
		c.advance(1, now)
	case ModeRadio:
		c.syncRadio(now, false)
	}
}

// DialChanged handles a radio dial movement. Any dial change enters (or
// stays in) radio mode and supersedes an in-flight gesture.
func (c *Controller) DialChanged(value float64, now time.Time) {
	c.dial = value
	if !c.power {
		return
	}
	c.rec.Reset()
	if c.engine.Stations() == 0 {
		zlog.Warn().Msg("player: no radio stations available")
		return
	}
	if c.mode != ModeRadio {
		c.enterRadio(now)
		return
	}
	c.syncRadio(now, true)
}

// SetPower turns the device on or off. Power-off stops audio, persists and
// discards any gesture in progress; power-on restores the persisted mode and
// position, except that radio recomputes its position from elapsed real
// time.
func (c *Controller) SetPower(on bool, now time.Time) {
	if on == c.power {
		return
	}
	if !on {
		c.rec.Reset()
		c.resumeMode = c.mode
		if c.resumeMode == ModeOff {
			c.resumeMode = ModeAlbum
		}
		c.persist()
		c.stopHardware()
		c.mode = ModeOff
		c.power = false
		zlog.Info().Msg("player: power off")
		return
	}
	c.power = true
	c.mode = c.resumeMode
	if err := c.hw.SetVolume(c.volume); err != nil {
		zlog.Warn().Err(err).Msg("player: set volume failed")
	}
	zlog.Info().Msgf("player: power on, resuming mode=%s", c.mode)
	c.startCurrent(now)
}

// SetVolume sets the output level (0-100) and persists it.
func (c *Controller) SetVolume(level int) {
	c.volume = clampVolume(level)
	if err := c.hw.SetVolume(c.volume); err != nil {
		zlog.Warn().Err(err).Msg("player: set volume failed")
		return
	}
	c.persist()
}

// Volume returns the current output level.
func (c *Controller) Volume() int {
	return c.volume
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// ---------------------------------------------------------------------------
// Gesture dispatch

func (c *Controller) apply(g gesture.Kind, now time.Time) {
	if g == gesture.None {
		return
	}
	zlog.Debug().Msgf("player: gesture %s in mode %s", g, c.mode)

	switch g {
	case gesture.Tap:
		c.advance(1, now)
	case gesture.DoubleTap:
		c.advance(-1, now)
	case gesture.TripleTap:
		c.restart(now)
	case gesture.TapHold:
		c.toggleBaseMode(now)
	case gesture.DoubleTapHold:
		c.shuffleCurrentScope(now)
	case gesture.TripleTapHold:
		c.shuffleLibrary(now)
	case gesture.Hold:
		c.nextCollection(now)
	}
}

// advance moves the position by delta tracks within the current scope.
// Radio position is read-only; taps have no meaning there.
func (c *Controller) advance(delta int, now time.Time) {
	switch c.mode {
	case ModeAlbum, ModePlaylist:
		col, ok := c.currentCollection()
		if !ok || col.TrackCount() == 0 {
			c.reportEmpty()
			return
		}
		next := wrapIndex(c.trackIndex()+delta, col.TrackCount())
		if c.playCollectionTrack(col, next, 0) == nil {
			c.setTrackIndex(next)
			c.persist()
		}
	case ModeShuffle:
		c.advanceShuffle(delta, now)
	case ModeRadio:
		// Dial changes drive position; tap does nothing.
	}
}

func (c *Controller) advanceShuffle(delta int, now time.Time) {
	s := c.shuffle
	if s == nil || s.length() == 0 {
		c.reportEmpty()
		return
	}
	pos := s.pos + delta
	switch {
	case pos > s.length():
		// Wrapping reshuffles the same scope. The fresh order must not
		// open with the track that just played, so the listener never
		// hears an immediate repeat.
		avoid := s.last()
		c.shuffle = newShuffleOrder(s.scope, s.scopeType, s.sourceIdx, avoid, c.rng)
		zlog.Debug().Msgf("player: shuffle wrapped, reshuffled %d tracks", c.shuffle.length())
	case pos < 1:
		s.pos = s.length()
	default:
		s.pos = pos
	}
	if c.playShuffleCurrent() == nil {
		c.persist()
	}
}

// restart returns to the first track of the current scope without changing
// order.
func (c *Controller) restart(now time.Time) {
	switch c.mode {
	case ModeAlbum, ModePlaylist:
		col, ok := c.currentCollection()
		if !ok || col.TrackCount() == 0 {
			c.reportEmpty()
			return
		}
		if c.playCollectionTrack(col, 1, 0) == nil {
			c.setTrackIndex(1)
			c.persist()
		}
	case ModeShuffle:
		if c.shuffle == nil || c.shuffle.length() == 0 {
			c.reportEmpty()
			return
		}
		c.shuffle.pos = 1
		if c.playShuffleCurrent() == nil {
			c.persist()
		}
	}
}

// toggleBaseMode switches Album<->Playlist, resuming each mode's remembered
// position. From Shuffle or Radio it returns to Album.
func (c *Controller) toggleBaseMode(now time.Time) {
	target := ModeAlbum
	if c.mode == ModeAlbum {
		target = ModePlaylist
	}
	c.mode = target
	c.clampPositions()
	c.persist()
	c.startCurrent(now)
}

// nextCollection moves to the next album or playlist in library order and
// resets its track index to 1. In Shuffle it advances the source collection
// and reshuffles it; in Radio it has no effect.
func (c *Controller) nextCollection(now time.Time) {
	switch c.mode {
	case ModeAlbum:
		if len(c.lib.Albums) == 0 {
			c.reportEmpty()
			return
		}
		c.albumIdx = (c.albumIdx + 1) % len(c.lib.Albums)
		c.albumTrack = 1
	case ModePlaylist:
		if len(c.lib.Playlists) == 0 {
			c.reportEmpty()
			return
		}
		c.playlistIdx = (c.playlistIdx + 1) % len(c.lib.Playlists)
		c.playlistTrack = 1
	case ModeShuffle:
		s := c.shuffle
		if s == nil || s.scopeType == collection.TypeLibrary {
			return
		}
		cols := c.collectionsOf(s.scopeType)
		if len(cols) == 0 {
			c.reportEmpty()
			return
		}
		idx := (s.sourceIdx + 1) % len(cols)
		c.shuffle = newShuffleOrder(cols[idx], s.scopeType, idx, -1, c.rng)
	case ModeRadio:
		return
	}
	c.persist()
	c.startCurrent(now)
}

// shuffleCurrentScope enters (or continues) Shuffle scoped to the current
// album or playlist, reshuffling that scope.
func (c *Controller) shuffleCurrentScope(now time.Time) {
	var (
		scope     collection.Collection
		scopeType collection.Type
		sourceIdx int
	)
	switch {
	case c.mode == ModeShuffle && c.shuffle != nil && c.shuffle.scopeType != collection.TypeLibrary:
		scopeType = c.shuffle.scopeType
		sourceIdx = c.shuffle.sourceIdx
		cols := c.collectionsOf(scopeType)
		if sourceIdx >= len(cols) {
			c.reportEmpty()
			return
		}
		scope = cols[sourceIdx]
	case c.mode == ModePlaylist:
		if len(c.lib.Playlists) == 0 {
			c.reportEmpty()
			return
		}
		scopeType, sourceIdx = collection.TypePlaylist, c.playlistIdx
		scope = c.lib.Playlists[sourceIdx]
	default:
		if len(c.lib.Albums) == 0 {
			c.shuffleLibrary(now)
			return
		}
		scopeType, sourceIdx = collection.TypeAlbum, c.albumIdx
		scope = c.lib.Albums[sourceIdx]
	}
	if len(scope.Tracks) == 0 {
		c.reportEmpty()
		return
	}
	c.shuffle = newShuffleOrder(scope, scopeType, sourceIdx, -1, c.rng)
	c.mode = ModeShuffle
	zlog.Info().Msgf("player: shuffle %s %q (%d tracks)", scopeType, scope.Name, len(scope.Tracks))
	c.persist()
	c.startCurrent(now)
}

// shuffleLibrary enters Shuffle scoped to the entire library.
func (c *Controller) shuffleLibrary(now time.Time) {
	scope := c.libraryScope()
	if len(scope.Tracks) == 0 {
		c.reportEmpty()
		return
	}
	c.shuffle = newShuffleOrder(scope, collection.TypeLibrary, 0, -1, c.rng)
	c.mode = ModeShuffle
	zlog.Info().Msgf("player: shuffle library (%d tracks)", len(scope.Tracks))
	c.persist()
	c.startCurrent(now)
}

// ---------------------------------------------------------------------------
// Radio

func (c *Controller) enterRadio(now time.Time) {
	if c.engine.Origin().IsZero() {
		// First establishment anchors the broadcast clock.
		c.engine.SetOrigin(now)
	}
	c.mode = ModeRadio
	c.radioPos = radio.Position{Station: -1}
	c.lastRadioCheck = now
	zlog.Info().Msg("player: radio mode")
	c.persist()
	c.syncRadio(now, true)
}

// syncRadio aligns playback with what the engine says is on the air.
// viaTune marks an explicit dial movement, which is when the overlay plays
// on a station change.
func (c *Controller) syncRadio(now time.Time, viaTune bool) {
	pos := c.engine.Tune(c.dial, now)
	prev := c.radioPos

	if pos.Static {
		if !prev.Static {
			zlog.Debug().Msgf("player: static at dial %.1f", c.dial)
			c.playOverlay()
			c.stopHardware()
		}
		c.radioPos = pos
		return
	}

	stationChanged := prev.Static || prev.Station != pos.Station
	trackChanged := stationChanged || prev.Track != pos.Track
	if !trackChanged && c.playing {
		c.radioPos = pos
		return
	}

	if stationChanged && viaTune {
		c.playOverlay()
	}

	st, _ := c.engine.Station(pos.Station)
	t := st.Tracks[pos.Track-1]
	if c.playResolved(t, nil, pos.Offset) == nil {
		c.radioPos = pos
		if stationChanged {
			c.persist()
		}
	}
}

// ---------------------------------------------------------------------------
// Playback plumbing

// playCollectionTrack resolves track index of the given collection through
// the translator and starts it. Position is not mutated here; callers commit
// only on success.
func (c *Controller) playCollectionTrack(col collection.Collection, index int, offset time.Duration) error {
	t, ok := col.TrackAt(index)
	if !ok {
		c.reportEmpty()
		return ErrEmptyCollection
	}
	logical := &translate.Logical{
		Collection:   col.Type,
		CollectionID: col.ID,
		TrackIndex:   index,
	}
	return c.playResolved(t, logical, offset)
}

func (c *Controller) playShuffleCurrent() error {
	s := c.shuffle
	scopePos := s.current()
	if scopePos < 0 {
		c.reportEmpty()
		return ErrEmptyCollection
	}
	t := s.scope.Tracks[scopePos]
	var logical *translate.Logical
	if s.scopeType != collection.TypeLibrary {
		logical = &translate.Logical{
			Collection:   s.scopeType,
			CollectionID: s.scope.ID,
			TrackIndex:   scopePos + 1,
		}
	}
	return c.playResolved(t, logical, 0)
}

// playResolved finds the physical address for a track and issues the play
// command. On a translation miss or a hardware failure the controller goes
// idle and reports; it never crashes the tick loop and never mutates
// position optimistically.
func (c *Controller) playResolved(t track.Track, logical *translate.Logical, offset time.Duration) error {
	addr, err := c.resolveAddress(t, logical)
	if err != nil {
		zlog.Warn().Err(err).Msgf("player: cannot resolve track %q, staying idle", t.ID)
		c.stopHardware()
		return err
	}
	if err := c.hw.Play(addr, offset); err != nil {
		zlog.Error().Err(err).Msgf("player: play %d/%d failed", addr.Folder, addr.Track)
		c.stopHardware()
		return errors.Wrap(hardware.ErrCommand, err.Error())
	}
	c.playing = true
	return nil
}

// resolveAddress prefers the translator for logically-addressed tracks and
// falls back to the track's own resolved physical address (shuffle library
// scope, radio stations).
func (c *Controller) resolveAddress(t track.Track, logical *translate.Logical) (track.Physical, error) {
	if logical != nil {
		return c.lib.Translator.Lookup(*logical)
	}
	if t.Physical != nil {
		return *t.Physical, nil
	}
	return track.Physical{}, errors.Wrapf(translate.ErrMiss, "track %s", t.ID)
}

// startCurrent starts playback for the current position of the current
// mode.
func (c *Controller) startCurrent(now time.Time) {
	switch c.mode {
	case ModeAlbum, ModePlaylist:
		col, ok := c.currentCollection()
		if !ok || col.TrackCount() == 0 {
			c.reportEmpty()
			return
		}
		c.setTrackIndex(clampIndex(c.trackIndex(), col.TrackCount()))
		_ = c.playCollectionTrack(col, c.trackIndex(), 0)
	case ModeShuffle:
		if c.shuffle == nil || c.shuffle.length() == 0 {
			c.shuffleLibrary(now)
			return
		}
		_ = c.playShuffleCurrent()
	case ModeRadio:
		c.radioPos = radio.Position{Station: -1}
		c.lastRadioCheck = now
		c.syncRadio(now, true)
	}
}

func (c *Controller) playOverlay() {
	if err := c.hw.PlayOverlay(); err != nil {
		zlog.Warn().Err(err).Msg("player: overlay failed")
	}
}

func (c *Controller) stopHardware() {
	if err := c.hw.Stop(); err != nil {
		zlog.Warn().Err(err).Msg("player: stop failed")
	}
	c.playing = false
}

func (c *Controller) reportEmpty() {
	zlog.Warn().Msg("player: no tracks in scope, idling")
	c.stopHardware()
}

// ---------------------------------------------------------------------------
// Position helpers

func (c *Controller) currentCollection() (collection.Collection, bool) {
	switch c.mode {
	case ModeAlbum:
		if len(c.lib.Albums) == 0 {
			return collection.Collection{}, false
		}
		return c.lib.Albums[clampIndex(c.albumIdx+1, len(c.lib.Albums))-1], true
	case ModePlaylist:
		if len(c.lib.Playlists) == 0 {
			return collection.Collection{}, false
		}
		return c.lib.Playlists[clampIndex(c.playlistIdx+1, len(c.lib.Playlists))-1], true
	}
	return collection.Collection{}, false
}

func (c *Controller) collectionsOf(t collection.Type) []collection.Collection {
	if t == collection.TypePlaylist {
		return c.lib.Playlists
	}
	return c.lib.Albums
}

func (c *Controller) libraryScope() collection.Collection {
	all := make([]collection.Collection, 0, len(c.lib.Albums)+len(c.lib.Playlists))
	all = append(all, c.lib.Albums...)
	all = append(all, c.lib.Playlists...)
	return collection.Library("Library", all)
}

func (c *Controller) collectionIndex() int {
	switch c.mode {
	case ModePlaylist:
		return c.playlistIdx
	case ModeShuffle:
		if c.shuffle != nil {
			return c.shuffle.sourceIdx
		}
	}
	return c.albumIdx
}

func (c *Controller) trackIndex() int {
	switch c.mode {
	case ModePlaylist:
		return c.playlistTrack
	case ModeShuffle:
		if c.shuffle != nil {
			return c.shuffle.pos
		}
	case ModeRadio:
		if c.radioPos.Track > 0 {
			return c.radioPos.Track
		}
		return 1
	}
	return c.albumTrack
}

func (c *Controller) setTrackIndex(index int) {
	switch c.mode {
	case ModePlaylist:
		c.playlistTrack = index
	case ModeAlbum:
		c.albumTrack = index
	}
}

// clampPositions forces all remembered positions back inside the current
// library.
func (c *Controller) clampPositions() {
	if len(c.lib.Albums) > 0 {
		c.albumIdx = clampIndex(c.albumIdx+1, len(c.lib.Albums)) - 1
		c.albumTrack = clampIndex(c.albumTrack, c.lib.Albums[c.albumIdx].TrackCount())
	} else {
		c.albumIdx, c.albumTrack = 0, 1
	}
	if len(c.lib.Playlists) > 0 {
		c.playlistIdx = clampIndex(c.playlistIdx+1, len(c.lib.Playlists)) - 1
		c.playlistTrack = clampIndex(c.playlistTrack, c.lib.Playlists[c.playlistIdx].TrackCount())
	} else {
		c.playlistIdx, c.playlistTrack = 0, 1
	}
}

// wrapIndex wraps a 1-based index into [1, count].
func wrapIndex(index, count int) int {
	if count <= 0 {
		return 1
	}
	index = (index - 1) % count
	if index < 0 {
		index += count
	}
	return index + 1
}

// clampIndex clamps a 1-based index into [1, count].
func clampIndex(index, count int) int {
	if count <= 0 || index < 1 {
		return 1
	}
	if index > count {
		return count
	}
	return index
}

func clampVolume(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
