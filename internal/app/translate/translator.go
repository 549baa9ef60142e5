// Package translate maps logical track addresses to the physical
// folder/track addresses used by storage-constrained playback hardware.
package translate

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/domain/track"
)

// ErrMiss is returned when a logical track has no physical mapping, e.g.
// because the library changed since the last sync. Callers skip the playback
// operation and stay in place; a miss is never fatal.
var ErrMiss = errors.New("no physical mapping for logical track")

// Logical identifies a track by collection and 1-based position.
type Logical struct {
	Collection   collection.Type
	CollectionID int
	TrackIndex   int
}

// Translator is the bijection between logical and physical addresses,
// rebuilt wholesale by the external sync step. A table is valid only until
// the next sync invalidates it; Generation identifies the sync build it came
// from.
type Translator struct {
	generation uuid.UUID
	byLogical  map[Logical]track.Physical
	byPhysical map[track.Physical]Logical
}

// New creates an empty translator for the given sync generation.
func New(generation uuid.UUID) *Translator {
	return &Translator{
		generation: generation,
		byLogical:  make(map[Logical]track.Physical),
		byPhysical: make(map[track.Physical]Logical),
	}
}

// Generation returns the sync generation this table was built from.
func (t *Translator) Generation() uuid.UUID {
	return t.generation
}

// Len returns the number of mapped tracks.
func (t *Translator) Len() int {
	return len(t.byLogical)
}

// Add inserts one mapping. Out-of-range physical addresses and duplicates on
// either side are rejected, which keeps the table a bijection by
// construction.
func (t *Translator) Add(l Logical, p track.Physical) error {
	if l.TrackIndex < 1 {
		return errors.Newf("track index %d is not 1-based", l.TrackIndex)
	}
	if !p.Valid() {
		return errors.Newf("physical address %d/%d outside folder [%d,%d] track [%d,%d]",
			p.Folder, p.Track, track.MinFolder, track.MaxFolder, track.MinTrack, track.MaxTrack)
	}
	if existing, ok := t.byLogical[l]; ok {
		return errors.Newf("logical %v already mapped to %d/%d", l, existing.Folder, existing.Track)
	}
	if existing, ok := t.byPhysical[p]; ok {
		return errors.Newf("physical %d/%d already mapped to %v", p.Folder, p.Track, existing)
	}
	t.byLogical[l] = p
	t.byPhysical[p] = l
	return nil
}

// Lookup resolves a logical address. A missing entry returns ErrMiss.
func (t *Translator) Lookup(l Logical) (track.Physical, error) {
	p, ok := t.byLogical[l]
	if !ok {
		return track.Physical{}, errors.Wrapf(ErrMiss, "%s %d track %d",
			l.Collection, l.CollectionID, l.TrackIndex)
	}
	return p, nil
}

// Reverse resolves a physical address back to its logical one.
func (t *Translator) Reverse(p track.Physical) (Logical, bool) {
	l, ok := t.byPhysical[p]
	return l, ok
}

// Validate proves the table is a bijection: both directions have the same
// size and every round-trip is the identity.
func (t *Translator) Validate() error {
	if len(t.byLogical) != len(t.byPhysical) {
		return errors.Newf("mapping is not a bijection: %d logical vs %d physical entries",
			len(t.byLogical), len(t.byPhysical))
	}
	for l, p := range t.byLogical {
		back, ok := t.byPhysical[p]
		if !ok || back != l {
			return errors.Newf("round trip broken for logical %v via %d/%d", l, p.Folder, p.Track)
		}
	}
	return nil
}
