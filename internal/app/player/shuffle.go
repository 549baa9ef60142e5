package player

import (
	"math/rand"

	"github.com/hweir/bakelite/internal/domain/collection"
)

// shuffleOrder is the active shuffle permutation over a scope. The
// permutation is a bijection over the scope's tracks, fully determined by
// the seed, so persisting the seed reproduces the exact order.
type shuffleOrder struct {
	scope     collection.Collection // Snapshot of the shuffled scope
	scopeType collection.Type       // Album, playlist, or library
	sourceIdx int                   // Source collection index (album/playlist scopes)
	seed      int64
	perm      []int // Permutation of [0, len(scope.Tracks))
	pos       int   // 1-based position within perm
}

// permFromSeed reproduces the permutation for a seed.
func permFromSeed(n int, seed int64) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return perm
}

// drawOrder draws seeds until the resulting permutation does not start with
// the avoided track position. avoid < 0 disables the constraint; it is only
// meaningful for scopes of two or more tracks, where a compliant permutation
// always exists.
func drawOrder(n int, avoid int, rng *rand.Rand) (int64, []int) {
	for {
		seed := rng.Int63()
		perm := permFromSeed(n, seed)
		if n <= 1 || avoid < 0 || perm[0] != avoid {
			return seed, perm
		}
	}
}

// newShuffleOrder shuffles the given scope. avoid is the scope-track
// position that must not come first (the previous order's last element on a
// wraparound reshuffle), or -1.
func newShuffleOrder(scope collection.Collection, scopeType collection.Type, sourceIdx int, avoid int, rng *rand.Rand) *shuffleOrder {
	seed, perm := drawOrder(len(scope.Tracks), avoid, rng)
	return &shuffleOrder{
		scope:     scope,
		scopeType: scopeType,
		sourceIdx: sourceIdx,
		seed:      seed,
		perm:      perm,
		pos:       1,
	}
}

// restoreShuffleOrder rebuilds a persisted order from its seed.
func restoreShuffleOrder(scope collection.Collection, scopeType collection.Type, sourceIdx int, seed int64, pos int) *shuffleOrder {
	perm := permFromSeed(len(scope.Tracks), seed)
	if pos < 1 || pos > len(perm) {
		pos = 1
	}
	return &shuffleOrder{
		scope:     scope,
		scopeType: scopeType,
		sourceIdx: sourceIdx,
		seed:      seed,
		perm:      perm,
		pos:       pos,
	}
}

// length returns the scope size.
func (s *shuffleOrder) length() int {
	return len(s.perm)
}

// current returns the scope-track position (0-based) at the order's current
// position.
func (s *shuffleOrder) current() int {
	if s.pos < 1 || s.pos > len(s.perm) {
		return -1
	}
	return s.perm[s.pos-1]
}

// last returns the scope-track position (0-based) of the order's final
// element.
func (s *shuffleOrder) last() int {
	if len(s.perm) == 0 {
		return -1
	}
	return s.perm[len(s.perm)-1]
}
