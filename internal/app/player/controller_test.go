package player

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hweir/bakelite/internal/app/gesture"
	"github.com/hweir/bakelite/internal/app/translate"
	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/domain/station"
	"github.com/hweir/bakelite/internal/domain/track"
)

// fakeHardware records every command for assertion and backs persistence
// with an in-memory buffer, so a "power cycle" is just a second controller
// over the same fake.
type fakeHardware struct {
	plays    []playCmd
	stops    int
	overlays int
	volume   int
	store    []byte

	failNextPlay bool
	finished     bool
}

type playCmd struct {
	addr   track.Physical
	offset time.Duration
}

func (f *fakeHardware) Play(addr track.Physical, startOffset time.Duration) error {
	if f.failNextPlay {
		f.failNextPlay = false
		return errors.New("decoder rejected command")
	}
	f.plays = append(f.plays, playCmd{addr: addr, offset: startOffset})
	return nil
}

func (f *fakeHardware) Stop() error {
	f.stops++
	return nil
}

func (f *fakeHardware) SetVolume(level int) error {
	f.volume = level
	return nil
}

func (f *fakeHardware) PlayOverlay() error {
	f.overlays++
	return nil
}

func (f *fakeHardware) TrackFinished(time.Time) bool {
	fin := f.finished
	f.finished = false
	return fin
}

func (f *fakeHardware) Persist(data []byte) error {
	f.store = append([]byte(nil), data...)
	return nil
}

func (f *fakeHardware) Load() ([]byte, error) {
	if f.store == nil {
		return nil, nil
	}
	return f.store, nil
}

func (f *fakeHardware) lastPlay(t *testing.T) playCmd {
	t.Helper()
	require.NotEmpty(t, f.plays)
	return f.plays[len(f.plays)-1]
}

func makeTracks(folder, n int) []track.Track {
	tracks := make([]track.Track, n)
	for i := range tracks {
		p := track.Physical{Folder: folder, Track: i + 1}
		tracks[i] = track.Track{
			ID:       uuid.NewString(),
			Title:    fmt.Sprintf("Track %02d-%03d", p.Folder, p.Track),
			Duration: 2 * time.Minute,
			Physical: &p,
		}
	}
	return tracks
}

// testLibrary builds three albums (2, 3 and 2 tracks), one 5-track
// playlist, and a single radio station over the first album, with a full
// translator mapping.
func testLibrary(t *testing.T) Library {
	t.Helper()

	albums := []collection.Collection{
		{Type: collection.TypeAlbum, ID: 1, Name: "First", Tracks: makeTracks(1, 2)},
		{Type: collection.TypeAlbum, ID: 2, Name: "Second", Tracks: makeTracks(2, 3)},
		{Type: collection.TypeAlbum, ID: 3, Name: "Third", Tracks: makeTracks(3, 2)},
	}
	playlists := []collection.Collection{
		{Type: collection.TypePlaylist, ID: 4, Name: "Mix", Tracks: makeTracks(10, 5)},
	}

	tr := translate.New(uuid.New())
	add := func(cols []collection.Collection) {
		for ci := range cols {
			for ti := range cols[ci].Tracks {
				logical := translate.Logical{
					Collection:   cols[ci].Type,
					CollectionID: cols[ci].ID,
					TrackIndex:   ti + 1,
				}
				require.NoError(t, tr.Add(logical, *cols[ci].Tracks[ti].Physical))
			}
		}
	}
	add(albums)
	add(playlists)

	tl, err := station.BuildTimeline([]station.Station{
		{Name: "First FM", Tracks: albums[0].Tracks, Duration: albums[0].TotalDuration()},
	})
	require.NoError(t, err)

	return Library{
		Generation: uuid.New(),
		Albums:     albums,
		Playlists:  playlists,
		Timeline:   tl,
		Translator: tr,
	}
}

func testConfig() Config {
	return Config{
		Gesture:       gesture.DefaultConfig(),
		DeadbandPct:   2,
		InitialVolume: 80,
	}
}

func startController(t *testing.T) (*Controller, *fakeHardware, time.Time) {
	t.Helper()
	hw := &fakeHardware{}
	c := New(hw, testConfig(), testLibrary(t))
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.Start(now)
	return c, hw, now
}

// tap performs n presses and advances time past the inter-press window so
// the gesture finalizes.
func tap(c *Controller, now time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		c.ButtonDown(now)
		now = now.Add(50 * time.Millisecond)
		c.ButtonUp(now)
		now = now.Add(50 * time.Millisecond)
	}
	now = now.Add(500 * time.Millisecond)
	c.Tick(now)
	return now
}

// tapHold performs n taps followed by a press held past the hold threshold.
func tapHold(c *Controller, now time.Time, n int) time.Time {
	for i := 0; i < n; i++ {
		c.ButtonDown(now)
		now = now.Add(50 * time.Millisecond)
		c.ButtonUp(now)
		now = now.Add(50 * time.Millisecond)
	}
	c.ButtonDown(now)
	now = now.Add(700 * time.Millisecond)
	c.Tick(now)
	c.ButtonUp(now)
	now = now.Add(50 * time.Millisecond)
	return now
}

func TestStartPlaysPersistedDefault(t *testing.T) {
	c, hw, _ := startController(t)

	require.Len(t, hw.plays, 1)
	assert.Equal(t, track.Physical{Folder: 1, Track: 1}, hw.plays[0].addr)
	assert.Equal(t, ModeAlbum, c.Mode())
	assert.Equal(t, 80, hw.volume)
}

func TestTapAdvancesAndWraps(t *testing.T) {
	c, hw, now := startController(t)

	// First album has two tracks; five taps land back on track 2.
	for i := 0; i < 5; i++ {
		now = tap(c, now, 1)
	}

	var got []int
	for _, p := range hw.plays[1:] {
		require.Equal(t, 1, p.addr.Folder)
		got = append(got, p.addr.Track)
	}
	assert.Equal(t, []int{2, 1, 2, 1, 2}, got)
	assert.Equal(t, 2, c.Status().TrackIndex)
}

func TestDoubleTapGoesBack(t *testing.T) {
	c, hw, now := startController(t)

	now = tap(c, now, 1) // -> track 2
	tap(c, now, 2)       // back -> track 1

	assert.Equal(t, track.Physical{Folder: 1, Track: 1}, hw.lastPlay(t).addr)
	assert.Equal(t, 1, c.Status().TrackIndex)
}

func TestTripleTapRestarts(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 1) // into the playlist (5 tracks)
	now = tap(c, now, 1)
	now = tap(c, now, 1)
	require.Equal(t, 3, c.Status().TrackIndex)

	tap(c, now, 3)
	assert.Equal(t, 1, c.Status().TrackIndex)
	assert.Equal(t, track.Physical{Folder: 10, Track: 1}, hw.lastPlay(t).addr)
}

func TestTapHoldTogglesAndRemembersPositions(t *testing.T) {
	c, hw, now := startController(t)

	now = tap(c, now, 1) // album track 2
	now = tapHold(c, now, 1)
	require.Equal(t, ModePlaylist, c.Mode())
	assert.Equal(t, track.Physical{Folder: 10, Track: 1}, hw.lastPlay(t).addr)

	now = tap(c, now, 1) // playlist track 2
	now = tapHold(c, now, 1)
	require.Equal(t, ModeAlbum, c.Mode())
	assert.Equal(t, track.Physical{Folder: 1, Track: 2}, hw.lastPlay(t).addr)

	tapHold(c, now, 1)
	require.Equal(t, ModePlaylist, c.Mode())
	assert.Equal(t, track.Physical{Folder: 10, Track: 2}, hw.lastPlay(t).addr)
}

func TestHoldAdvancesCollection(t *testing.T) {
	c, hw, now := startController(t)

	now = tap(c, now, 1) // album 1 track 2
	now = tapHold(c, now, 0)
	assert.Equal(t, track.Physical{Folder: 2, Track: 1}, hw.lastPlay(t).addr)

	// Going back to album 1 starts at track 1, not the remembered 2.
	now = tapHold(c, now, 0)
	now = tapHold(c, now, 0)
	assert.Equal(t, track.Physical{Folder: 1, Track: 1}, hw.lastPlay(t).addr)
}

func TestShuffleScopeIsBijection(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 1) // playlist
	now = tapHold(c, now, 2) // shuffle the playlist
	require.Equal(t, ModeShuffle, c.Mode())

	seen := map[track.Physical]bool{hw.lastPlay(t).addr: true}
	for i := 0; i < 4; i++ {
		now = tap(c, now, 1)
		seen[hw.lastPlay(t).addr] = true
	}

	// Five advances through a five-track scope hit every track once.
	assert.Len(t, seen, 5)
	for p := range seen {
		assert.Equal(t, 10, p.Folder)
	}
}

func TestShuffleWrapNeverRepeatsLast(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 1) // playlist
	now = tapHold(c, now, 2) // shuffle it

	for trial := 0; trial < 200; trial++ {
		for i := 0; i < 4; i++ {
			now = tap(c, now, 1)
		}
		last := hw.lastPlay(t).addr
		now = tap(c, now, 1) // wrap, reshuffle
		assert.NotEqual(t, last, hw.lastPlay(t).addr, "trial %d", trial)
	}
}

func TestShuffleBackwardWrapKeepsOrder(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 2) // shuffle current album (2 tracks)
	require.Equal(t, 1, c.Status().TrackIndex)

	first := hw.lastPlay(t).addr
	tap(c, now, 2) // backwards from position 1 wraps to the end
	assert.Equal(t, 2, c.Status().TrackIndex)
	assert.NotEqual(t, first, hw.lastPlay(t).addr)
}

func TestLibraryShuffleCoversEverything(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 3)
	require.Equal(t, ModeShuffle, c.Mode())
	require.Equal(t, 12, c.Status().TrackCount) // 2+3+2 album + 5 playlist tracks

	seen := map[track.Physical]bool{hw.lastPlay(t).addr: true}
	for i := 0; i < 11; i++ {
		now = tap(c, now, 1)
		seen[hw.lastPlay(t).addr] = true
	}
	assert.Len(t, seen, 12)
}

func TestTrackFinishedAutoAdvances(t *testing.T) {
	c, hw, now := startController(t)

	hw.finished = true
	c.Tick(now.Add(time.Second))

	assert.Equal(t, track.Physical{Folder: 1, Track: 2}, hw.lastPlay(t).addr)
	assert.Equal(t, 2, c.Status().TrackIndex)
}

func TestHardwareFailureKeepsPosition(t *testing.T) {
	c, hw, now := startController(t)

	hw.failNextPlay = true
	tap(c, now, 1)

	// The advance did not commit and playback reports stopped.
	assert.Equal(t, 1, c.Status().TrackIndex)
	assert.False(t, c.Status().Playing)
	assert.Equal(t, 1, hw.stops)
}

func TestTranslationMissGoesIdle(t *testing.T) {
	hw := &fakeHardware{}
	lib := testLibrary(t)
	// Drop one mapping so advancing to album 1 track 2 misses.
	lib.Translator = translate.New(lib.Generation)
	require.NoError(t, lib.Translator.Add(
		translate.Logical{Collection: collection.TypeAlbum, CollectionID: 1, TrackIndex: 1},
		track.Physical{Folder: 1, Track: 1},
	))

	c := New(hw, testConfig(), lib)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.Start(now)
	require.Len(t, hw.plays, 1)

	tap(c, now, 1)
	assert.Len(t, hw.plays, 1)
	assert.False(t, c.Status().Playing)
	assert.Equal(t, 1, c.Status().TrackIndex)
}

func TestEmptyCollectionIdles(t *testing.T) {
	hw := &fakeHardware{}
	lib := testLibrary(t)
	lib.Albums[0].Tracks = nil

	c := New(hw, testConfig(), lib)
	c.Start(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	assert.Empty(t, hw.plays)
	assert.False(t, c.Status().Playing)
}

func TestPowerCycleRestoresPosition(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 0) // album 2
	now = tap(c, now, 1)     // track 2
	require.Equal(t, track.Physical{Folder: 2, Track: 2}, hw.lastPlay(t).addr)

	c.SetPower(false, now)
	assert.False(t, c.Status().Power)

	c2 := New(hw, testConfig(), testLibrary(t))
	c2.Start(now.Add(time.Hour))

	assert.Equal(t, ModeAlbum, c2.Mode())
	assert.Equal(t, track.Physical{Folder: 2, Track: 2}, hw.lastPlay(t).addr)
	assert.Equal(t, 2, c2.Status().TrackIndex)
}

func TestPowerCycleRestoresShuffleOrder(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 1) // playlist
	now = tapHold(c, now, 2) // shuffle it
	now = tap(c, now, 1)
	now = tap(c, now, 1)
	want := hw.lastPlay(t).addr
	require.Equal(t, 3, c.Status().TrackIndex)

	c.SetPower(false, now)

	c2 := New(hw, testConfig(), testLibrary(t))
	c2.Start(now.Add(time.Hour))

	require.Equal(t, ModeShuffle, c2.Mode())
	assert.Equal(t, 3, c2.Status().TrackIndex)
	assert.Equal(t, want, hw.lastPlay(t).addr)
}

func TestChangedCollectionRestartsAtOne(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 0) // album 2 (3 tracks)
	now = tap(c, now, 1)
	now = tap(c, now, 1) // track 3
	c.SetPower(false, now)

	// Album 2 grew a track since the record was written.
	lib := testLibrary(t)
	lib.Albums[1].Tracks = makeTracks(2, 4)
	require.NoError(t, lib.Translator.Add(
		translate.Logical{Collection: collection.TypeAlbum, CollectionID: 2, TrackIndex: 4},
		track.Physical{Folder: 2, Track: 4},
	))

	c2 := New(hw, testConfig(), lib)
	c2.Start(now.Add(time.Hour))

	assert.Equal(t, 1, c2.Status().TrackIndex)
	assert.Equal(t, track.Physical{Folder: 2, Track: 1}, hw.lastPlay(t).addr)
}

func TestChangedLibraryReshufflesLibraryScope(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 3) // library-wide shuffle
	now = tap(c, now, 1)
	now = tap(c, now, 1)
	require.Equal(t, 3, c.Status().TrackIndex)
	c.SetPower(false, now)

	// Album 2 lost a track since the record was written. The permutation
	// indexed the combined track list, so it no longer lines up anywhere;
	// the restore must reshuffle instead of replaying the old seed.
	lib := testLibrary(t)
	lib.Albums[1].Tracks = makeTracks(2, 2)

	c2 := New(hw, testConfig(), lib)
	c2.Start(now.Add(time.Hour))

	require.Equal(t, ModeShuffle, c2.Mode())
	assert.Equal(t, 1, c2.Status().TrackIndex)
	assert.Equal(t, 11, c2.Status().TrackCount)
}

func TestPowerOffDiscardsGesture(t *testing.T) {
	c, hw, now := startController(t)

	c.ButtonDown(now)
	now = now.Add(50 * time.Millisecond)
	c.ButtonUp(now)
	c.SetPower(false, now)
	c.SetPower(true, now.Add(time.Second))
	c.Tick(now.Add(2 * time.Second))

	// The pending tap must not fire after the cycle; only the two
	// power-on plays of track 1 exist.
	require.Len(t, hw.plays, 2)
	assert.Equal(t, 1, c.Status().TrackIndex)
}

func TestDialEntersRadioAtBroadcastPosition(t *testing.T) {
	c, hw, now := startController(t)

	c.DialChanged(50, now)
	require.Equal(t, ModeRadio, c.Mode())

	// Origin was just established, so the station opens at track 1.
	assert.Equal(t, track.Physical{Folder: 1, Track: 1}, hw.lastPlay(t).addr)
	assert.Equal(t, time.Duration(0), hw.lastPlay(t).offset)
	assert.Equal(t, 1, hw.overlays)

	// Both tracks run 2 minutes; after 2m30s the broadcast is 30s into
	// track 2 and the periodic check follows it there.
	c.Tick(now.Add(2*time.Minute + 30*time.Second))
	assert.Equal(t, track.Physical{Folder: 1, Track: 2}, hw.lastPlay(t).addr)
	assert.Equal(t, 30*time.Second, hw.lastPlay(t).offset)
}

func TestRadioSurvivesPowerCycle(t *testing.T) {
	c, hw, now := startController(t)

	c.DialChanged(50, now)
	c.SetPower(false, now.Add(time.Second))

	c2 := New(hw, testConfig(), testLibrary(t))
	c2.dial = 50
	c2.Start(now.Add(3 * time.Minute))

	// The broadcast kept running while the radio was off: 3 minutes into
	// a 4-minute loop is 1 minute into track 2.
	require.Equal(t, ModeRadio, c2.Mode())
	assert.Equal(t, track.Physical{Folder: 1, Track: 2}, hw.lastPlay(t).addr)
	assert.Equal(t, time.Minute, hw.lastPlay(t).offset)
}

func TestTapHoldLeavesRadioForAlbum(t *testing.T) {
	c, hw, now := startController(t)

	now = tap(c, now, 1) // album track 2
	c.DialChanged(50, now)
	require.Equal(t, ModeRadio, c.Mode())

	// Leaving radio resumes album mode at the remembered track.
	tapHold(c, now, 1)
	assert.Equal(t, ModeAlbum, c.Mode())
	assert.Equal(t, track.Physical{Folder: 1, Track: 2}, hw.lastPlay(t).addr)
}

func TestSetVolumeClampsAndPersists(t *testing.T) {
	c, hw, _ := startController(t)

	c.SetVolume(150)
	assert.Equal(t, 100, c.Volume())
	assert.Equal(t, 100, hw.volume)

	c.SetVolume(-3)
	assert.Equal(t, 0, c.Volume())

	c2 := New(hw, testConfig(), testLibrary(t))
	c2.Start(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, c2.Volume())
}

func TestLibraryChangeReanchors(t *testing.T) {
	c, hw, now := startController(t)

	now = tapHold(c, now, 3) // library shuffle
	require.Equal(t, ModeShuffle, c.Mode())

	lib := testLibrary(t)
	c.SetLibrary(lib, now)

	// A new generation invalidates the permutation; playback falls back
	// to album mode at a valid position.
	assert.Equal(t, ModeAlbum, c.Mode())
	assert.Equal(t, 1, hw.lastPlay(t).addr.Folder)
}
