// Package main provides the desktop emulator: the playback core wired to a
// virtual decoder and a keyboard front panel.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/hweir/bakelite/internal/app/gesture"
	"github.com/hweir/bakelite/internal/app/player"
	"github.com/hweir/bakelite/internal/infra/config"
	"github.com/hweir/bakelite/internal/infra/hardware"
	"github.com/hweir/bakelite/internal/infra/logger"
	"github.com/hweir/bakelite/internal/infra/metadata"
	"github.com/hweir/bakelite/internal/tui"
)

var (
	app        = kingpin.New("bakelite-emulator", "Vintage radio playback core, emulated")
	configPath = app.Flag("config", "Path to config file").Default("config/emulator.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file").Default("bakelite.log").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// The terminal belongs to the UI, so logs always go to a file here.
	loggerConfig := logger.Config{Output: *logfile, Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Warn().Err(err).Msg("Config not loaded, using defaults")
		if cfg, err = config.Default(); err != nil {
			zlog.Fatal().Err(err).Msg("Failed to build default config")
		}
	}

	lib, err := metadata.Load(cfg.Library.MetadataFile)
	if err != nil {
		zlog.Fatal().Err(err).Msgf("Failed to load metadata from %s", cfg.Library.MetadataFile)
	}

	hw, err := hardware.NewFromConfig(cfg.Hardware)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to create hardware backend")
	}
	if emu, ok := hw.(*hardware.Emulated); ok {
		emu.SetDurations(lib.Durations)
	}

	ctrl := player.New(hw, playerConfig(cfg), toPlayerLibrary(lib))
	ctrl.Start(time.Now())

	program := tea.NewProgram(
		tui.NewModel(ctrl, cfg.Emulator.Tick()),
		tea.WithAltScreen(),
	)

	stopWatch, err := watchMetadata(cfg, hw, program)
	if err != nil {
		zlog.Warn().Err(err).Msg("Metadata watcher unavailable, live reload disabled")
	} else {
		defer stopWatch()
	}

	if _, err := program.Run(); err != nil {
		zlog.Fatal().Err(err).Msg("UI failed")
	}
	ctrl.SetPower(false, time.Now())
}

func playerConfig(cfg *config.Config) player.Config {
	return player.Config{
		Gesture: gesture.Config{
			InterPressWindow: cfg.Gesture.InterPressWindow(),
			HoldThreshold:    cfg.Gesture.HoldThreshold(),
			Debounce:         cfg.Gesture.Debounce(),
		},
		DeadbandPct:   cfg.Radio.DeadbandPct,
		InitialVolume: cfg.Emulator.InitialVolume,
	}
}

func toPlayerLibrary(lib *metadata.Library) player.Library {
	return player.Library{
		Generation: lib.Generation,
		Albums:     lib.Albums,
		Playlists:  lib.Playlists,
		Timeline:   lib.Timeline,
		Translator: lib.Translator,
	}
}

// watchMetadata reloads the library when the sync tool rewrites the feed
// file, pushing the result into the running UI.
func watchMetadata(cfg *config.Config, hw hardware.Interface, program *tea.Program) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(cfg.Library.MetadataFile); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		var lastReload time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Sync tools write in bursts; one reload per burst is enough.
				if time.Since(lastReload) < 500*time.Millisecond {
					continue
				}
				lastReload = time.Now()

				lib, err := metadata.Load(cfg.Library.MetadataFile)
				if err != nil {
					zlog.Warn().Err(err).Msg("Metadata reload failed, keeping current library")
					continue
				}
				if emu, ok := hw.(*hardware.Emulated); ok {
					emu.SetDurations(lib.Durations)
				}
				program.Send(tui.LibraryMsg{Library: toPlayerLibrary(lib)})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zlog.Warn().Err(err).Msg("Metadata watcher error")
			}
		}
	}()
	return func() { watcher.Close() }, nil
}
