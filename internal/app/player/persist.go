package player

import (
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/hweir/bakelite/internal/app/radio"
	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/infra/statefile"
)

// persist writes the current state through the hardware's persistence
// channel. Failures are recorded and surfaced in Status but never interrupt
// playback.
func (c *Controller) persist() {
	data := statefile.Encode(c.buildRecord())
	if err := c.hw.Persist(data); err != nil {
		zlog.Warn().Err(err).Msg("player: persist failed")
		c.persistErr = err
		return
	}
	c.persistErr = nil
}

func (c *Controller) buildRecord() statefile.Record {
	r := statefile.Record{
		Mode:            c.mode.String(),
		CollectionIndex: c.collectionIndex(),
		TrackIndex:      c.trackIndex(),
		TrackCounts:     c.trackCounts(),
		Volume:          &c.volume,
	}
	if c.mode == ModeOff {
		r.Mode = c.resumeMode.String()
	}
	if c.mode == ModeShuffle && c.shuffle != nil {
		r.ShuffleScope = c.shuffle.scopeType.String()
		seed := c.shuffle.seed
		r.ShuffleSeed = &seed
	}
	if origin := c.engine.Origin(); !origin.IsZero() {
		o := origin
		r.RadioOrigin = &o
	}
	return r
}

// trackCounts snapshots per-collection track counts. A restored record
// whose counts disagree with the live library marks that collection as
// changed, so indices into it cannot be trusted.
func (c *Controller) trackCounts() map[int]int {
	counts := make(map[int]int, len(c.lib.Albums)+len(c.lib.Playlists))
	for i := range c.lib.Albums {
		counts[c.lib.Albums[i].ID] = c.lib.Albums[i].TrackCount()
	}
	for i := range c.lib.Playlists {
		counts[c.lib.Playlists[i].ID] = c.lib.Playlists[i].TrackCount()
	}
	return counts
}

func (c *Controller) loadRecord() statefile.Record {
	data, err := c.hw.Load()
	if err != nil {
		zlog.Warn().Err(err).Msg("player: state load failed, using defaults")
		return statefile.Defaults()
	}
	if data == nil {
		return statefile.Defaults()
	}
	record, err := statefile.Decode(data)
	if err != nil {
		zlog.Warn().Err(err).Msg("player: state record unusable, using defaults")
	}
	return record
}

// applyRecord restores persisted state against the live library. Any part
// of the record that no longer fits the library degrades on its own: a
// changed collection resets its track index, a stale shuffle scope drops
// back to album mode, volume and the radio origin carry over regardless.
func (c *Controller) applyRecord(r statefile.Record, now time.Time) {
	if r.Volume != nil {
		c.volume = clampVolume(*r.Volume)
	}
	if r.RadioOrigin != nil {
		c.engine.SetOrigin(*r.RadioOrigin)
	}

	mode, ok := ParseMode(r.Mode)
	if !ok {
		mode = ModeAlbum
	}
	c.mode = mode
	c.resumeMode = mode

	switch mode {
	case ModeAlbum:
		c.restoreLinear(r, c.lib.Albums, &c.albumIdx, &c.albumTrack)
	case ModePlaylist:
		c.restoreLinear(r, c.lib.Playlists, &c.playlistIdx, &c.playlistTrack)
	case ModeShuffle:
		c.restoreShuffle(r)
	case ModeRadio:
		if c.engine.Origin().IsZero() {
			c.engine.SetOrigin(now)
		}
		c.radioPos = radio.Position{Station: -1}
	}
	c.clampPositions()
}

func (c *Controller) restoreLinear(r statefile.Record, cols []collection.Collection, idx, trackIdx *int) {
	if len(cols) == 0 {
		*idx, *trackIdx = 0, 1
		return
	}
	i := clampIndex(r.CollectionIndex+1, len(cols)) - 1
	*idx = i
	col := cols[i]
	ti := r.TrackIndex
	if persisted, known := r.TrackCounts[col.ID]; known && persisted != col.TrackCount() {
		// The collection changed underneath the record; its track index is
		// meaningless now.
		zlog.Info().Msgf("player: %s %q changed (%d -> %d tracks), restarting at 1",
			col.Type, col.Name, persisted, col.TrackCount())
		ti = 1
	}
	*trackIdx = clampIndex(ti, col.TrackCount())
}

func (c *Controller) restoreShuffle(r statefile.Record) {
	scopeType, ok := collection.ParseType(r.ShuffleScope)
	if !ok || r.ShuffleSeed == nil {
		c.mode, c.resumeMode = ModeAlbum, ModeAlbum
		return
	}

	var (
		scope     collection.Collection
		sourceIdx int
	)
	if scopeType == collection.TypeLibrary {
		scope = c.libraryScope()
	} else {
		cols := c.collectionsOf(scopeType)
		if len(cols) == 0 {
			c.mode, c.resumeMode = ModeAlbum, ModeAlbum
			return
		}
		sourceIdx = clampIndex(r.CollectionIndex+1, len(cols)) - 1
		scope = cols[sourceIdx]
	}

	stale := false
	if scopeType == collection.TypeLibrary {
		// A library-wide permutation is indexed by the combined track list,
		// so a size change anywhere invalidates it.
		if persisted := sumCounts(r.TrackCounts); len(r.TrackCounts) > 0 && persisted != scope.TrackCount() {
			stale = true
		}
	} else {
		if persisted, known := r.TrackCounts[scope.ID]; known && persisted != scope.TrackCount() {
			stale = true
		}
	}
	if len(scope.Tracks) == 0 {
		stale = true
	}
	if stale {
		// A changed scope invalidates the permutation; reshuffle rather
		// than replay a wrong order.
		zlog.Info().Msg("player: shuffle scope changed, reshuffling")
		c.shuffle = newShuffleOrder(scope, scopeType, sourceIdx, -1, c.rng)
		return
	}
	c.shuffle = restoreShuffleOrder(scope, scopeType, sourceIdx, *r.ShuffleSeed, r.TrackIndex)
}

func sumCounts(counts map[int]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
