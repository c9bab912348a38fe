// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the main application configuration, loaded from YAML.
type Config struct {
	Debug    bool            `yaml:"debug"`              // Enable debug mode (verbose logging).
	LogLevel string          `yaml:"log_level"`          // Logging level ("debug", "info", "warn", "error").
	LogFile  string          `yaml:"log_file,omitempty"` // Optional session log file, teed with stderr.
	Audio    AudioConfig     `yaml:"audio"`              // Output device settings.
	Stimulus StimulusConfig  `yaml:"stimulus"`           // Stimulus synthesis parameters.
	Adaptive StaircaseConfig `yaml:"staircase"`          // Adaptive procedure parameters.
	Response ResponseConfig  `yaml:"response"`           // Response collection policy.
	Session  SessionConfig   `yaml:"session"`            // Participant/session settings.
	Monitor  MonitorConfig   `yaml:"monitor"`            // Live progress + event marker transports.
	Export   ExportConfig    `yaml:"export"`             // Stimulus WAV export settings.
}

// AudioConfig holds settings for the audio output sink.
type AudioConfig struct {
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per playback write.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device.
}

// StimulusConfig holds the synthesis parameters shared by both tests.
type StimulusConfig struct {
	NoiseLowHz    float64  `yaml:"noise_low_hz"`   // Bandpass lower corner.
	NoiseHighHz   float64  `yaml:"noise_high_hz"`  // Bandpass upper corner.
	FilterOrder   int      `yaml:"filter_order"`   // Butterworth order per edge.
	NoiseDuration Duration `yaml:"noise_duration"` // Duration of each noise burst.
	ToneDuration  Duration `yaml:"tone_duration"`  // Duration of each tone.
	ReferenceHz   float64  `yaml:"reference_hz"`   // Pitch reference frequency.
	Amplitude     float64  `yaml:"amplitude"`      // Peak amplitude, 0-1.
	FadeDuration  Duration `yaml:"fade_duration"`  // Half-cosine fade at both ends.
	ISI           Duration `yaml:"isi"`            // Silence between interval 1 and 2.
}

// TrackConfig holds per-test staircase parameters.
type TrackConfig struct {
	InitialValue float64 `yaml:"initial_value"`          // Starting stimulus value.
	Mode         string  `yaml:"mode"`                   // "multiplicative" or "additive".
	StepFactor   float64 `yaml:"step_factor,omitempty"`  // Multiplicative adjustment factor.
	Step         float64 `yaml:"step,omitempty"`         // Additive step size.
	ShrinkRatio  float64 `yaml:"shrink_ratio,omitempty"` // Step shrink per reversal (additive mode).
	StepFloor    float64 `yaml:"step_floor,omitempty"`   // Smallest step after shrinking.
	Min          float64 `yaml:"min"`                    // Lower clamp on the tracked value.
	Max          float64 `yaml:"max"`                    // Upper clamp on the tracked value.
}

// StaircaseConfig holds the adaptive-rule parameters and both tracks.
type StaircaseConfig struct {
	RunLength             int         `yaml:"run_length"`              // Consecutive correct needed for a decrease.
	ReversalTarget        int         `yaml:"reversal_target"`         // Reversals that end a block.
	ReversalsForThreshold int         `yaml:"reversals_for_threshold"` // Final reversals averaged for the estimate.
	MaxTrials             int         `yaml:"max_trials"`              // Safety cap on trials per block.
	Gap                   TrackConfig `yaml:"gap"`
	Pitch                 TrackConfig `yaml:"pitch"`
}

// ResponseConfig holds the response collection policy.
type ResponseConfig struct {
	RetryLimit int      `yaml:"retry_limit"` // Invalid-response retries before the block fails.
	Timeout    Duration `yaml:"timeout"`     // Per-response timeout, 0 for untimed.
}

// SessionConfig holds participant and persistence settings.
type SessionConfig struct {
	Participant string `yaml:"participant"` // Participant identifier, e.g. "P001".
	DataDir     string `yaml:"data_dir"`    // Root for raw/ and processed/ CSV output.
	Seed        int64  `yaml:"seed"`        // Random seed override, 0 for time-based.
	PrimingDir  string `yaml:"priming_dir"` // Directory with language priming audio, empty to skip.
}

// MonitorConfig holds settings for the experimenter-facing transports.
type MonitorConfig struct {
	WebSocketEnabled bool   `yaml:"ws_enabled"`  // Broadcast trial progress over WebSocket.
	WebSocketAddr    string `yaml:"ws_addr"`     // Listen address, e.g. ":8080".
	UDPEnabled       bool   `yaml:"udp_enabled"` // Send binary event markers over UDP.
	UDPTarget        string `yaml:"udp_target"`  // Marker target, e.g. "127.0.0.1:9090".
}

// ExportConfig holds stimulus WAV archiving settings.
type ExportConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Write presented stimuli to WAV files.
	OutputDir string `yaml:"output_dir"` // Directory for exported WAVs.
	BitDepth  int    `yaml:"bit_depth"`  // 16 or 24.
}

// Load reads configuration from a YAML file. If path is empty it searches
// default locations ("audiometry.yaml", "config.yaml"); with no file found
// it uses built-in defaults. Environment overrides are applied after
// loading, then the result is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		for _, candidate := range []string{"audiometry.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			OutputDevice:    DefaultOutputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Stimulus: StimulusConfig{
			NoiseLowHz:    DefaultNoiseLowHz,
			NoiseHighHz:   DefaultNoiseHighHz,
			FilterOrder:   DefaultFilterOrder,
			NoiseDuration: Duration(DefaultNoiseDuration),
			ToneDuration:  Duration(DefaultToneDuration),
			ReferenceHz:   DefaultReferenceHz,
			Amplitude:     DefaultAmplitude,
			FadeDuration:  Duration(DefaultFadeDuration),
			ISI:           Duration(DefaultISI),
		},
		Adaptive: StaircaseConfig{
			RunLength:             DefaultRunLength,
			ReversalTarget:        DefaultReversalTarget,
			ReversalsForThreshold: DefaultReversalsForThreshold,
			MaxTrials:             DefaultMaxTrials,
			Gap: TrackConfig{
				InitialValue: DefaultGapInitial,
				Mode:         "multiplicative",
				StepFactor:   DefaultStepFactor,
				Min:          DefaultGapMin,
				Max:          DefaultGapMax,
			},
			Pitch: TrackConfig{
				InitialValue: DefaultPitchInitial,
				Mode:         "multiplicative",
				StepFactor:   DefaultStepFactor,
				Min:          DefaultPitchMin,
				Max:          DefaultPitchMax,
			},
		},
		Response: ResponseConfig{
			RetryLimit: DefaultRetryLimit,
			Timeout:    DefaultResponseTimeout,
		},
		Session: SessionConfig{
			DataDir: DefaultDataDir,
		},
		Monitor: MonitorConfig{
			WebSocketAddr: ":8080",
			UDPTarget:     "127.0.0.1:9090",
		},
		Export: ExportConfig{
			OutputDir: "./stimuli",
			BitDepth:  16,
		},
	}
}

// Validate checks the configuration for physically or procedurally
// impossible values. Synthesis parameters are checked here, at block start,
// rather than per trial.
func (c *Config) Validate() error {
	a := c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %v outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive")
	}

	s := c.Stimulus
	nyquist := a.SampleRate / 2
	if s.NoiseLowHz <= 0 || s.NoiseHighHz <= s.NoiseLowHz || s.NoiseHighHz >= nyquist {
		return fmt.Errorf("stimulus noise band [%v, %v] invalid for sample rate %v",
			s.NoiseLowHz, s.NoiseHighHz, a.SampleRate)
	}
	if s.FilterOrder <= 0 {
		return fmt.Errorf("stimulus.filter_order must be positive")
	}
	if s.ReferenceHz <= 0 || s.ReferenceHz >= nyquist {
		return fmt.Errorf("stimulus.reference_hz %v outside (0, %v)", s.ReferenceHz, nyquist)
	}
	if s.Amplitude <= 0 || s.Amplitude > 1 {
		return fmt.Errorf("stimulus.amplitude %v outside (0, 1]", s.Amplitude)
	}
	if s.NoiseDuration <= 0 || s.ToneDuration <= 0 {
		return fmt.Errorf("stimulus durations must be positive")
	}
	if s.FadeDuration < 0 || 2*s.FadeDuration >= s.NoiseDuration {
		return fmt.Errorf("stimulus.fade_duration %v too long for noise burst %v", s.FadeDuration, s.NoiseDuration)
	}

	st := c.Adaptive
	if st.RunLength <= 0 {
		return fmt.Errorf("staircase.run_length must be positive")
	}
	if st.ReversalTarget <= 0 {
		return fmt.Errorf("staircase.reversal_target must be positive")
	}
	if st.ReversalsForThreshold <= 0 || st.ReversalsForThreshold > st.ReversalTarget {
		return fmt.Errorf("staircase.reversals_for_threshold %d outside [1, %d]",
			st.ReversalsForThreshold, st.ReversalTarget)
	}
	for name, t := range map[string]TrackConfig{"gap": st.Gap, "pitch": st.Pitch} {
		if err := t.validate(); err != nil {
			return fmt.Errorf("staircase.%s: %w", name, err)
		}
	}

	if c.Response.RetryLimit < 0 {
		return fmt.Errorf("response.retry_limit must not be negative")
	}
	if c.Export.BitDepth != 16 && c.Export.BitDepth != 24 {
		return fmt.Errorf("export.bit_depth must be 16 or 24")
	}
	return nil
}

func (t TrackConfig) validate() error {
	if t.InitialValue <= 0 {
		return fmt.Errorf("initial_value must be positive")
	}
	if t.Min < 0 || (t.Max > 0 && t.Max <= t.Min) {
		return fmt.Errorf("bounds [%v, %v] invalid", t.Min, t.Max)
	}
	switch t.Mode {
	case "multiplicative":
		if t.StepFactor <= 1 {
			return fmt.Errorf("step_factor must be > 1")
		}
	case "additive":
		if t.Step <= 0 {
			return fmt.Errorf("step must be positive")
		}
		if t.ShrinkRatio < 0 || t.ShrinkRatio >= 1 {
			return fmt.Errorf("shrink_ratio must be in [0, 1)")
		}
	default:
		return fmt.Errorf("mode %q unknown", t.Mode)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides after loading
// from file. Only a small operational subset is overridable this way.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("AUDIOMETRY_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("AUDIOMETRY_PARTICIPANT"); ok {
		c.Session.Participant = val
	}
	if val, ok := os.LookupEnv("AUDIOMETRY_DATA_DIR"); ok {
		c.Session.DataDir = val
	}
	if val, ok := os.LookupEnv("AUDIOMETRY_SEED"); ok {
		if iVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Session.Seed = iVal
		}
	}
}
