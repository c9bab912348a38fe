package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"audiometry/cmd"
	"audiometry/internal/analysis"
	"audiometry/internal/audio"
	"audiometry/internal/config"
	"audiometry/internal/log"
	"audiometry/internal/session"
	"audiometry/internal/store"
	"audiometry/internal/stimulus"
	"audiometry/internal/transport"
	"audiometry/internal/transport/udp"
	"audiometry/internal/tui"
	"audiometry/pkg/build"
	"audiometry/pkg/utils"
)

// main is the entry point for the hearing-test application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Configure logging
//   - Execute one-off commands if requested
//
// 2. Session Phase:
//   - Initialize PortAudio and the output sink
//   - Wire storage, monitoring and priming collaborators
//   - Run the full condition x test battery
//
// 3. Shutdown Phase:
//   - Handle termination signals as a session abort
//   - Flush collected data and close transports
func main() {
	build.Initialize()

	options, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg := options.Config

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
	}
	if cfg.LogFile != "" {
		if err := log.TeeToFile(cfg.LogFile); err != nil {
			log.Fatalf("%v", err)
		}
		defer log.CloseFile()
	}

	switch options.Command {
	case "list":
		if err := runList(); err != nil {
			log.Fatalf("%v", err)
		}
	case "calibrate":
		if err := runCalibrate(cfg); err != nil {
			log.Fatalf("%v", err)
		}
	case "simulate":
		if err := runSimulate(cfg); err != nil {
			log.Fatalf("%v", err)
		}
	default:
		if err := runSession(cfg); err != nil {
			log.Fatalf("%v", err)
		}
	}
}

func runList() error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()
	return audio.ListDevices()
}

// runCalibrate synthesizes both stimulus types with the loaded configuration
// and reports their spectral quality, so a configuration can be vetted
// without audio hardware.
func runCalibrate(cfg *config.Config) error {
	rng := rand.New(rand.NewSource(1))
	builder := stimulus.NewBuilder(cfg.Stimulus, cfg.Audio.SampleRate, rng)

	gap, err := builder.GapTrial(cfg.Adaptive.Gap.InitialValue)
	if err != nil {
		return err
	}
	confinement, err := analysis.BandConfinement(
		gap.Interval1, cfg.Audio.SampleRate, cfg.Stimulus.NoiseLowHz, cfg.Stimulus.NoiseHighHz)
	if err != nil {
		return err
	}
	fmt.Printf("noise band [%.0f, %.0f] Hz: %.1f%% of energy in band\n",
		cfg.Stimulus.NoiseLowHz, cfg.Stimulus.NoiseHighHz, confinement*100)

	pitch, err := builder.PitchTrial(cfg.Adaptive.Pitch.InitialValue)
	if err != nil {
		return err
	}
	for i, buf := range [][]float64{pitch.Interval1, pitch.Interval2} {
		spec, err := analysis.NewSpectrum(buf, cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
		fmt.Printf("tone interval %d: peak at %.1f Hz\n", i+1, spec.PeakFrequency())
	}
	return nil
}

// runSimulate runs the full battery with a simulated participant and no
// audio hardware, writing CSV output like a real session.
func runSimulate(cfg *config.Config) error {
	if cfg.Session.Participant == "" {
		cfg.Session.Participant = "SIM001"
	}
	seed := cfg.Session.Seed
	if seed == 0 {
		seed = 1
	}

	csvStore, err := store.NewCSVStore(cfg.Session.DataDir)
	if err != nil {
		return err
	}

	ctrl := &session.Controller{
		Cfg:  cfg,
		Sink: utils.NullSink{},
		Responses: utils.NewBatteryResponder(
			cfg.Adaptive.Gap, cfg.Adaptive.Pitch, rand.New(rand.NewSource(seed))),
		Store:  csvStore,
		Player: session.NopPlayer{},
	}
	return ctrl.Run(context.Background())
}

func runSession(cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	sink, err := audio.NewSink(cfg.Audio)
	if err != nil {
		return err
	}
	defer sink.Close()

	csvStore, err := store.NewCSVStore(cfg.Session.DataDir)
	if err != nil {
		return err
	}

	ctrl := &session.Controller{
		Cfg:       cfg,
		Sink:      sink,
		Responses: tui.NewResponsePrompt(),
		Store:     csvStore,
		Player:    session.NopPlayer{},
	}

	if cfg.Session.PrimingDir != "" {
		player, err := audio.NewPrimingPlayer(cfg.Session.PrimingDir, sink)
		if err != nil {
			return err
		}
		ctrl.Player = player
	}

	if cfg.Monitor.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Monitor.WebSocketAddr)
		defer ws.Close()
		ctrl.Progress = ws
	} else {
		ctrl.Progress = transport.NewLoggingTransport()
	}
	if cfg.Monitor.UDPEnabled {
		sender, err := udp.NewSender(cfg.Monitor.UDPTarget)
		if err != nil {
			return err
		}
		markers := udp.NewMarkerPublisher(sender)
		defer markers.Close()
		ctrl.Markers = markers
	}
	if cfg.Export.Enabled {
		exporter, err := audio.NewWAVExporter(cfg.Export, cfg.Audio.SampleRate)
		if err != nil {
			return err
		}
		ctrl.Archive = exporter
	}

	// SIGINT/SIGTERM abort the session; collected data is still flushed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ctrl.Run(ctx)
}
