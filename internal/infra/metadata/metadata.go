// Package metadata loads the library feed produced by the external sync
// step: albums, playlists, radio stations and the logical-to-physical track
// mapping.
package metadata

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/hweir/bakelite/internal/app/translate"
	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/domain/station"
	"github.com/hweir/bakelite/internal/domain/track"
)

// Feed is the on-disk document written by the sync tool.
type Feed struct {
	Generation string           `yaml:"generation" validate:"required,uuid4"`
	Albums     []CollectionSpec `yaml:"albums" validate:"dive"`
	Playlists  []CollectionSpec `yaml:"playlists" validate:"dive"`
	Stations   []StationSpec    `yaml:"stations" validate:"dive"`
	Mapping    []MappingSpec    `yaml:"mapping" validate:"dive"`
}

// CollectionSpec describes one album or playlist.
type CollectionSpec struct {
	ID     int         `yaml:"id" validate:"gte=1"`
	Name   string      `yaml:"name" validate:"required"`
	Tracks []TrackSpec `yaml:"tracks" validate:"dive"`
}

// TrackSpec describes one track.
type TrackSpec struct {
	ID         string `yaml:"id" validate:"required"`
	Title      string `yaml:"title"`
	Artist     string `yaml:"artist"`
	DurationMs int    `yaml:"duration_ms" validate:"gte=0"`
}

// StationSpec describes one radio station with its ordered track list.
type StationSpec struct {
	Name   string      `yaml:"name" validate:"required"`
	Tracks []TrackSpec `yaml:"tracks" validate:"min=1,dive"`
}

// MappingSpec is one translator entry.
type MappingSpec struct {
	Collection   string `yaml:"collection" validate:"required,oneof=album playlist"`
	CollectionID int    `yaml:"collection_id" validate:"gte=1"`
	TrackIndex   int    `yaml:"track_index" validate:"gte=1"`
	Folder       int    `yaml:"folder" validate:"gte=1,lte=99"`
	Track        int    `yaml:"track" validate:"gte=1,lte=999"`
}

// Library is the loaded, validated, fully-built library: everything the core
// consumes at load time.
type Library struct {
	Generation uuid.UUID
	Albums     []collection.Collection
	Playlists  []collection.Collection
	Timeline   station.Timeline
	Translator *translate.Translator
	Durations  map[track.Physical]time.Duration
}

// Load reads and builds the library from a feed file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read metadata feed")
	}

	var feed Feed
	if err := yaml.Unmarshal(data, &feed); err != nil {
		return nil, errors.Wrap(err, "failed to parse metadata feed")
	}
	return Build(&feed)
}

// Build validates a feed and assembles the library from it.
func Build(feed *Feed) (*Library, error) {
	if err := validator.New().Struct(feed); err != nil {
		return nil, errors.Wrap(err, "metadata feed validation failed")
	}
	generation, err := uuid.Parse(feed.Generation)
	if err != nil {
		return nil, errors.Wrap(err, "bad feed generation")
	}

	lib := &Library{
		Generation: generation,
		Albums:     buildCollections(collection.TypeAlbum, feed.Albums),
		Playlists:  buildCollections(collection.TypePlaylist, feed.Playlists),
	}

	if len(lib.Albums) == 0 && len(lib.Playlists) == 0 {
		return nil, errors.New("metadata feed has no collections")
	}

	// Mapping resolution runs before station assembly so station tracks
	// carry physical addresses.
	if err := buildTranslator(lib, feed.Mapping); err != nil {
		return nil, err
	}

	stations := lo.Map(feed.Stations, func(s StationSpec, _ int) station.Station {
		return station.Station{Name: s.Name, Tracks: buildTracks(s.Tracks)}
	})
	if len(stations) == 0 {
		stations = deriveStations(lib)
	}
	resolveStationTracks(lib, stations)
	timeline, err := station.BuildTimeline(stations)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build radio timeline")
	}
	lib.Timeline = timeline

	zlog.Info().Msgf("metadata: loaded generation=%s albums=%d playlists=%d stations=%d mapped=%d",
		generation, len(lib.Albums), len(lib.Playlists), len(lib.Timeline.Stations), lib.Translator.Len())
	return lib, nil
}

func buildCollections(ctype collection.Type, specs []CollectionSpec) []collection.Collection {
	return lo.Map(specs, func(s CollectionSpec, _ int) collection.Collection {
		return collection.Collection{
			Type:   ctype,
			ID:     s.ID,
			Name:   s.Name,
			Tracks: buildTracks(s.Tracks),
		}
	})
}

func buildTracks(specs []TrackSpec) []track.Track {
	return lo.Map(specs, func(s TrackSpec, _ int) track.Track {
		return track.Track{
			ID:       s.ID,
			Title:    s.Title,
			Artist:   s.Artist,
			Duration: time.Duration(s.DurationMs) * time.Millisecond,
		}
	})
}

// deriveStations builds the station list when the feed carries none: the
// whole library first, then each non-empty album and playlist.
func deriveStations(lib *Library) []station.Station {
	var stations []station.Station

	all := collection.Library("Full Library", append(append([]collection.Collection{}, lib.Albums...), lib.Playlists...))
	if len(all.Tracks) > 0 {
		stations = append(stations, station.Station{Name: all.Name, Tracks: all.Tracks})
	}
	for _, c := range lib.Albums {
		if len(c.Tracks) > 0 {
			stations = append(stations, station.Station{Name: c.Name, Tracks: c.Tracks})
		}
	}
	for _, c := range lib.Playlists {
		if len(c.Tracks) > 0 {
			stations = append(stations, station.Station{Name: "Playlist: " + c.Name, Tracks: c.Tracks})
		}
	}
	return stations
}

// resolveStationTracks fills in physical addresses and durations for station
// tracks that reference library tracks by ID. Station tracks unknown to the
// library keep a nil address; the translator miss path handles them at play
// time.
func resolveStationTracks(lib *Library, stations []station.Station) {
	index := make(map[string]track.Track)
	for _, cols := range [][]collection.Collection{lib.Albums, lib.Playlists} {
		for _, c := range cols {
			for _, t := range c.Tracks {
				if _, seen := index[t.ID]; !seen {
					index[t.ID] = t
				}
			}
		}
	}
	for si := range stations {
		for ti := range stations[si].Tracks {
			st := &stations[si].Tracks[ti]
			if st.Physical != nil {
				continue
			}
			if known, ok := index[st.ID]; ok {
				st.Physical = known.Physical
				if st.Duration <= 0 {
					st.Duration = known.Duration
				}
			}
		}
	}
}

// buildTranslator fills the translator table, resolves each track's physical
// address in place, and records the per-address durations for the emulated
// decoder.
func buildTranslator(lib *Library, mapping []MappingSpec) error {
	tr := translate.New(lib.Generation)
	durations := make(map[track.Physical]time.Duration)

	byKey := make(map[translate.Logical]track.Physical, len(mapping))
	for _, m := range mapping {
		ctype, _ := collection.ParseType(m.Collection)
		logical := translate.Logical{
			Collection:   ctype,
			CollectionID: m.CollectionID,
			TrackIndex:   m.TrackIndex,
		}
		physical := track.Physical{Folder: m.Folder, Track: m.Track}
		if err := tr.Add(logical, physical); err != nil {
			return errors.Wrap(err, "bad mapping entry")
		}
		byKey[logical] = physical
	}

	resolve := func(ctype collection.Type, cols []collection.Collection) {
		for ci := range cols {
			for ti := range cols[ci].Tracks {
				logical := translate.Logical{
					Collection:   ctype,
					CollectionID: cols[ci].ID,
					TrackIndex:   ti + 1,
				}
				if physical, ok := byKey[logical]; ok {
					p := physical
					cols[ci].Tracks[ti].Physical = &p
					durations[physical] = cols[ci].Tracks[ti].EffectiveDuration()
				}
			}
		}
	}
	resolve(collection.TypeAlbum, lib.Albums)
	resolve(collection.TypePlaylist, lib.Playlists)

	if err := tr.Validate(); err != nil {
		return errors.Wrap(err, "translator validation failed")
	}
	lib.Translator = tr
	lib.Durations = durations
	return nil
}
