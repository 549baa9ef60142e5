//go:build !((linux && cgo) || windows || darwin)

package hardware

// OverlayAudioAvailable indicates whether the static overlay produces real
// audio in this build.
const OverlayAudioAvailable = false

// playStaticOverlay is a no-op in builds without audio support.
func playStaticOverlay() error {
	return nil
}
