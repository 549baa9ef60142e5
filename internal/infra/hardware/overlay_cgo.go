//go:build (linux && cgo) || windows || darwin

package hardware

import (
	"math/rand"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// OverlayAudioAvailable indicates whether the static overlay produces real
// audio in this build.
const OverlayAudioAvailable = true

const (
	overlaySampleRate = 44100
	overlayDuration   = 900 * time.Millisecond
)

var overlaySpeakerReady = false

// playStaticOverlay plays a short burst of band-limited noise, the "between
// stations" sound. It returns as soon as playback is queued.
func playStaticOverlay() error {
	if !overlaySpeakerReady {
		sr := beep.SampleRate(overlaySampleRate)
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			return err
		}
		overlaySpeakerReady = true
	}

	samples := int(float64(overlaySampleRate) * overlayDuration.Seconds())
	speaker.Play(&staticStreamer{
		samples: samples,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	return nil
}

// staticStreamer generates filtered noise with a fade envelope to avoid
// clicks at the edges.
type staticStreamer struct {
	samples  int
	position int
	last     float64
	rng      *rand.Rand
}

func (s *staticStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.position >= s.samples {
			return i, false
		}

		// One-pole lowpass over white noise approximates AM static.
		noise := s.rng.Float64()*2 - 1
		s.last += 0.25 * (noise - s.last)
		value := s.last

		envelope := 1.0
		fadeLen := s.samples / 10
		if fadeLen < 10 {
			fadeLen = 10
		}
		if s.position < fadeLen {
			envelope = float64(s.position) / float64(fadeLen)
		} else if s.position > s.samples-fadeLen {
			envelope = float64(s.samples-s.position) / float64(fadeLen)
		}

		value *= envelope * 0.4
		samples[i][0] = value
		samples[i][1] = value
		s.position++
	}
	return len(samples), true
}

func (s *staticStreamer) Err() error {
	return nil
}
