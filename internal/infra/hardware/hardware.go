// Package hardware defines the narrow capability interface the playback core
// drives, and the backends implementing it. The core never type-inspects a
// backend; one variant is selected at startup and used through the interface
// for the life of the process.
package hardware

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/hweir/bakelite/internal/domain/track"
)

// ErrCommand is the base error for failed hardware commands. When a command
// fails the caller must assume playback did not start and must not mutate
// position optimistically.
var ErrCommand = errors.New("hardware command failed")

// Interface is the capability surface implemented once for emulation and
// once for firmware.
type Interface interface {
	// Play starts the track at the given physical address. The start offset
	// is best-effort; some backends cannot honor it.
	Play(addr track.Physical, startOffset time.Duration) error
	// Stop halts main playback.
	Stop() error
	// SetVolume sets the output level (0-100).
	SetVolume(level int) error
	// TrackFinished reports a busy-to-idle edge since the last call. Each
	// edge is reported exactly once.
	TrackFinished(now time.Time) bool
	// PlayOverlay plays the short tuning/static sound, independent of main
	// playback.
	PlayOverlay() error
	// Persist stores the state record. Best-effort and bounded; failure is
	// recorded by the caller but never fatal to playback.
	Persist(data []byte) error
	// Load returns the persisted state record, or (nil, nil) when there is
	// none.
	Load() ([]byte, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend  string         `yaml:"backend" default:"emulated" validate:"required,oneof=emulated"`
	Settings map[string]any `yaml:"settings"`
}

// EmulatedSettings configures the emulated backend.
type EmulatedSettings struct {
	StateFile      string `mapstructure:"state_file" default:"bakelite_state.txt"`
	DisableOverlay bool   `mapstructure:"disable_overlay"`
}

// NewFromConfig creates the backend named by the configuration.
func NewFromConfig(cfg Config) (Interface, error) {
	switch cfg.Backend {
	case "emulated":
		var settings EmulatedSettings
		if err := mapstructure.Decode(cfg.Settings, &settings); err != nil {
			return nil, errors.Wrap(err, "failed to decode emulated backend settings")
		}
		if err := defaults.Set(&settings); err != nil {
			return nil, errors.Wrap(err, "failed to set defaults")
		}
		if err := validator.New().Struct(settings); err != nil {
			return nil, errors.Wrap(err, "backend settings validation failed")
		}
		zlog.Info().Msgf("hardware: emulated backend, state_file=%s disable_overlay=%v",
			settings.StateFile, settings.DisableOverlay)
		return NewEmulated(settings), nil
	default:
		return nil, errors.Newf("unsupported hardware backend: %s", cfg.Backend)
	}
}
