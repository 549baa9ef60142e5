// Package main provides the maintenance CLI: inspect persisted state,
// verify a metadata feed, and preview the radio broadcast schedule.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/hweir/bakelite/internal/app/radio"
	"github.com/hweir/bakelite/internal/domain/collection"
	"github.com/hweir/bakelite/internal/infra/metadata"
	"github.com/hweir/bakelite/internal/infra/statefile"
)

var (
	app = kingpin.New("bakelite-radiotool", "Bakelite maintenance tool")

	// state command
	stateCmd  = app.Command("state", "Decode and print a persisted state record")
	stateFile = stateCmd.Arg("file", "Path to the state file").Required().String()

	// verify command
	verifyCmd  = app.Command("verify", "Validate a metadata feed and its track mapping")
	verifyFeed = verifyCmd.Flag("metadata", "Path to the metadata feed").Default("bakelite_metadata.yaml").String()

	// schedule command
	scheduleCmd     = app.Command("schedule", "Print what every station broadcasts at a given elapsed time")
	scheduleFeed    = scheduleCmd.Flag("metadata", "Path to the metadata feed").Default("bakelite_metadata.yaml").String()
	scheduleElapsed = scheduleCmd.Flag("elapsed", "Time since the broadcast origin").Default("0s").Duration()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case stateCmd.FullCommand():
		err = printState(*stateFile)
	case verifyCmd.FullCommand():
		err = verifyMetadata(*verifyFeed)
	case scheduleCmd.FullCommand():
		err = printSchedule(*scheduleFeed, *scheduleElapsed)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	record, decodeErr := statefile.Decode(data)

	fmt.Printf("mode:             %s\n", record.Mode)
	fmt.Printf("collection index: %d\n", record.CollectionIndex)
	fmt.Printf("track index:      %d\n", record.TrackIndex)
	if len(record.TrackCounts) > 0 {
		fmt.Printf("track counts:     %v\n", record.TrackCounts)
	}
	if record.ShuffleScope != "" {
		fmt.Printf("shuffle scope:    %s\n", record.ShuffleScope)
	}
	if record.ShuffleSeed != nil {
		fmt.Printf("shuffle seed:     %x\n", uint64(*record.ShuffleSeed))
	}
	if record.Volume != nil {
		fmt.Printf("volume:           %d\n", *record.Volume)
	}
	if record.RadioOrigin != nil {
		fmt.Printf("radio origin:     %s\n", record.RadioOrigin.Format(time.RFC3339))
	}
	if decodeErr != nil {
		fmt.Printf("\nRecord was not fully usable (defaults shown where garbled): %v\n", decodeErr)
	}
	return nil
}

func verifyMetadata(path string) error {
	lib, err := metadata.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("Feed OK: generation=%s\n", lib.Generation)
	fmt.Printf("  albums:    %d\n", len(lib.Albums))
	fmt.Printf("  playlists: %d\n", len(lib.Playlists))
	fmt.Printf("  stations:  %d (loop %s)\n", len(lib.Timeline.Stations), lib.Timeline.Total)
	fmt.Printf("  mapped:    %d tracks\n", lib.Translator.Len())

	unmapped := 0
	for _, cols := range [][]collection.Collection{lib.Albums, lib.Playlists} {
		for _, c := range cols {
			for _, t := range c.Tracks {
				if t.Physical == nil {
					unmapped++
					fmt.Printf("  UNMAPPED: %s %q track %q\n", c.Type, c.Name, t.Title)
				}
			}
		}
	}
	if unmapped > 0 {
		return errors.Newf("%d tracks have no physical mapping", unmapped)
	}
	return nil
}

func printSchedule(path string, elapsed time.Duration) error {
	lib, err := metadata.Load(path)
	if err != nil {
		return err
	}
	now := time.Now()
	engine := radio.NewEngine(lib.Timeline, now.Add(-elapsed), 0)

	fmt.Printf("Broadcast at origin+%s (loop %s):\n", elapsed, lib.Timeline.Total)
	for i := 0; i < engine.Stations(); i++ {
		st, _ := engine.Station(i)
		trackIdx, offset := engine.PositionAt(i, now)
		line := fmt.Sprintf("  %-24s track %d/%d +%s", st.Name, trackIdx, len(st.Tracks), offset.Round(time.Second))
		if trackIdx >= 1 && trackIdx <= len(st.Tracks) && st.Tracks[trackIdx-1].Title != "" {
			line += "  " + st.Tracks[trackIdx-1].Title
		}
		fmt.Println(line)
	}
	return nil
}
