package player

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/domain/track"
)

func scopeOf(n int) collection.Collection {
	tracks := make([]track.Track, n)
	for i := range tracks {
		tracks[i] = track.Track{ID: string(rune('a' + i))}
	}
	return collection.Collection{Type: collection.TypePlaylist, ID: 1, Name: "Scope", Tracks: tracks}
}

func TestPermFromSeedIsDeterministic(t *testing.T) {
	a := permFromSeed(10, 42)
	b := permFromSeed(10, 42)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, permFromSeed(10, 43))
}

func TestPermFromSeedIsBijection(t *testing.T) {
	perm := permFromSeed(20, 7)
	seen := make(map[int]bool, len(perm))
	for _, p := range perm {
		require.False(t, seen[p])
		seen[p] = true
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, 20)
	}
}

func TestDrawOrderNeverLeadsWithAvoided(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 1000; trial++ {
		avoid := rng.Intn(5)
		_, perm := drawOrder(5, avoid, rng)
		assert.NotEqual(t, avoid, perm[0], "trial %d", trial)
	}
}

func TestDrawOrderSingleTrackScope(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	// With one track the constraint cannot hold and is waived.
	_, perm := drawOrder(1, 0, rng)
	assert.Equal(t, []int{0}, perm)
}

func TestRestoreReproducesOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	scope := scopeOf(8)

	orig := newShuffleOrder(scope, collection.TypePlaylist, 0, -1, rng)
	orig.pos = 5

	restored := restoreShuffleOrder(scope, collection.TypePlaylist, 0, orig.seed, 5)
	assert.Equal(t, orig.perm, restored.perm)
	assert.Equal(t, orig.current(), restored.current())
}

func TestRestoreClampsBadPosition(t *testing.T) {
	scope := scopeOf(3)
	restored := restoreShuffleOrder(scope, collection.TypePlaylist, 0, 7, 99)
	assert.Equal(t, 1, restored.pos)
}
