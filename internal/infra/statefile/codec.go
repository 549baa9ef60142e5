// Package statefile encodes playback state as a compact line-oriented record
// that survives power cycles on both the emulator and the firmware.
//
// Wire format, one record per boot:
//
//	mode,collection_index,track_index;tracks=id:count,...;shuffle=<seed>;vol=<level>;radio=<unix ms>
//
// The first three fields are fixed. Everything after is a key=value field;
// new fields are appended, never reordered or removed, so records stay
// readable by older readers and old records by newer ones.
package statefile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Record is the persisted slice of playback state.
type Record struct {
	Mode            string      // "album", "playlist", "shuffle", "radio"
	CollectionIndex int         // Active collection index (0-based, library order)
	TrackIndex      int         // 1-based track index (shuffle: position in the order)
	TrackCounts     map[int]int // Known track count per collection ID, for change detection
	ShuffleScope    string      // "album", "playlist" or "library" (shuffle mode only)
	ShuffleSeed     *int64      // Seed reproducing the shuffle permutation
	Volume          *int        // 0-100
	RadioOrigin     *time.Time  // Instant radio mode was last established
}

// Defaults returns the record used when nothing usable was persisted.
func Defaults() Record {
	return Record{Mode: "album", CollectionIndex: 0, TrackIndex: 1}
}

// Encode serializes the record. Output is deterministic: track counts are
// emitted in ascending collection-ID order.
func Encode(r Record) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s,%d,%d", r.Mode, r.CollectionIndex, r.TrackIndex)

	ids := make([]int, 0, len(r.TrackCounts))
	for id := range r.TrackCounts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	pairs := make([]string, len(ids))
	for i, id := range ids {
		pairs[i] = fmt.Sprintf("%d:%d", id, r.TrackCounts[id])
	}
	fmt.Fprintf(&sb, ";tracks=%s", strings.Join(pairs, ","))

	if r.ShuffleScope != "" {
		fmt.Fprintf(&sb, ";sscope=%s", r.ShuffleScope)
	}
	if r.ShuffleSeed != nil {
		fmt.Fprintf(&sb, ";shuffle=%x", uint64(*r.ShuffleSeed))
	}
	if r.Volume != nil {
		fmt.Fprintf(&sb, ";vol=%d", *r.Volume)
	}
	if r.RadioOrigin != nil {
		fmt.Fprintf(&sb, ";radio=%d", r.RadioOrigin.UnixMilli())
	}
	return []byte(sb.String())
}

// Decode parses a persisted record. A missing, truncated or garbled record
// yields safe defaults together with the parse error; startup must never
// abort on bad state. Unknown trailing fields are skipped so newer writers
// remain readable.
func Decode(data []byte) (Record, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Defaults(), errors.New("empty state record")
	}

	fields := strings.Split(raw, ";")
	head := strings.Split(fields[0], ",")
	if len(head) < 3 {
		return Defaults(), errors.Newf("malformed state head %q", fields[0])
	}

	r := Defaults()
	mode := strings.TrimSpace(head[0])
	switch mode {
	case "album", "playlist", "shuffle", "radio":
		r.Mode = mode
	default:
		return Defaults(), errors.Newf("unknown mode %q", mode)
	}

	ci, err := strconv.Atoi(strings.TrimSpace(head[1]))
	if err != nil || ci < 0 {
		return Defaults(), errors.Newf("bad collection index %q", head[1])
	}
	ti, err := strconv.Atoi(strings.TrimSpace(head[2]))
	if err != nil || ti < 1 {
		return Defaults(), errors.Newf("bad track index %q", head[2])
	}
	r.CollectionIndex = ci
	r.TrackIndex = ti

	// Trailing fields degrade per-field: a bad one is skipped, the rest of
	// the record still counts.
	for _, f := range fields[1:] {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch key {
		case "tracks":
			r.TrackCounts = parseTrackCounts(value)
		case "sscope":
			switch value {
			case "album", "playlist", "library":
				r.ShuffleScope = value
			}
		case "shuffle":
			if seed, err := strconv.ParseUint(value, 16, 64); err == nil {
				s := int64(seed)
				r.ShuffleSeed = &s
			}
		case "vol":
			if v, err := strconv.Atoi(value); err == nil && v >= 0 && v <= 100 {
				r.Volume = &v
			}
		case "radio":
			if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
				t := time.UnixMilli(ms)
				r.RadioOrigin = &t
			}
		}
	}
	return r, nil
}

func parseTrackCounts(value string) map[int]int {
	counts := make(map[int]int)
	if value == "" {
		return counts
	}
	for _, pair := range strings.Split(value, ",") {
		idStr, countStr, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		id, err1 := strconv.Atoi(idStr)
		count, err2 := strconv.Atoi(countStr)
		if err1 != nil || err2 != nil || count < 0 {
			continue
		}
		counts[id] = count
	}
	return counts
}
