package translate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/domain/track"
)

func TestTranslator_Bijection(t *testing.T) {
	tr := New(uuid.New())

	// 3 albums x 4 tracks, one folder per album.
	for album := 1; album <= 3; album++ {
		for idx := 1; idx <= 4; idx++ {
			l := Logical{Collection: collection.TypeAlbum, CollectionID: album, TrackIndex: idx}
			require.NoError(t, tr.Add(l, track.Physical{Folder: album, Track: idx}))
		}
	}

	require.NoError(t, tr.Validate())
	assert.Equal(t, 12, tr.Len())

	// logical -> physical -> logical is the identity.
	for album := 1; album <= 3; album++ {
		for idx := 1; idx <= 4; idx++ {
			l := Logical{Collection: collection.TypeAlbum, CollectionID: album, TrackIndex: idx}
			p, err := tr.Lookup(l)
			require.NoError(t, err)
			back, ok := tr.Reverse(p)
			require.True(t, ok)
			assert.Equal(t, l, back)
		}
	}
}

func TestTranslator_RejectsDuplicates(t *testing.T) {
	tr := New(uuid.New())
	l1 := Logical{Collection: collection.TypeAlbum, CollectionID: 1, TrackIndex: 1}
	l2 := Logical{Collection: collection.TypePlaylist, CollectionID: 7, TrackIndex: 2}
	p := track.Physical{Folder: 1, Track: 1}

	require.NoError(t, tr.Add(l1, p))

	// Same physical address for a second logical track.
	assert.Error(t, tr.Add(l2, p))
	// Same logical track twice.
	assert.Error(t, tr.Add(l1, track.Physical{Folder: 2, Track: 1}))

	require.NoError(t, tr.Validate())
}

func TestTranslator_RejectsOutOfRange(t *testing.T) {
	tr := New(uuid.New())
	l := Logical{Collection: collection.TypeAlbum, CollectionID: 1, TrackIndex: 1}

	tests := []track.Physical{
		{Folder: 0, Track: 1},
		{Folder: 100, Track: 1},
		{Folder: 1, Track: 0},
		{Folder: 1, Track: 1000},
	}
	for _, p := range tests {
		assert.Error(t, tr.Add(l, p), "physical %+v", p)
	}

	assert.Error(t, tr.Add(Logical{Collection: collection.TypeAlbum, CollectionID: 1, TrackIndex: 0},
		track.Physical{Folder: 1, Track: 1}))
}

func TestTranslator_LookupMiss(t *testing.T) {
	tr := New(uuid.New())

	_, err := tr.Lookup(Logical{Collection: collection.TypeAlbum, CollectionID: 9, TrackIndex: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMiss)
}
