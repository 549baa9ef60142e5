package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hweir/bakelite/internal/domain/track"
)

func TestTrackAt(t *testing.T) {
	c := Collection{
		Type:   TypeAlbum,
		Name:   "Test",
		Tracks: []track.Track{{ID: "a"}, {ID: "b"}},
	}

	got, ok := c.TrackAt(2)
	assert.True(t, ok)
	assert.Equal(t, "b", got.ID)

	_, ok = c.TrackAt(0)
	assert.False(t, ok)
	_, ok = c.TrackAt(3)
	assert.False(t, ok)
}

func TestLibraryConcatenatesInOrder(t *testing.T) {
	lib := Library("Everything", []Collection{
		{Tracks: []track.Track{{ID: "a"}, {ID: "b"}}},
		{Tracks: []track.Track{{ID: "c"}}},
	})

	assert.Equal(t, TypeLibrary, lib.Type)
	assert.Equal(t, 3, lib.TrackCount())
	assert.Equal(t, "c", lib.Tracks[2].ID)
}

func TestTotalDurationUsesEffectiveLengths(t *testing.T) {
	c := Collection{Tracks: []track.Track{
		{ID: "a", Duration: time.Minute},
		{ID: "b"}, // unknown length counts as the default
	}}
	assert.Equal(t, time.Minute+track.DefaultDuration, c.TotalDuration())
}

func TestParseTypeRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeAlbum, TypePlaylist, TypeLibrary} {
		parsed, ok := ParseType(typ.String())
		assert.True(t, ok)
		assert.Equal(t, typ, parsed)
	}
	_, ok := ParseType("mixtape")
	assert.False(t, ok)
}
