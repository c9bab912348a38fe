// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, float64(DefaultSampleRate), cfg.Audio.SampleRate)
	assert.Equal(t, DefaultReversalTarget, cfg.Adaptive.ReversalTarget)
	assert.Equal(t, "multiplicative", cfg.Adaptive.Gap.Mode)
	assert.Equal(t, DefaultStepFactor, cfg.Adaptive.Gap.StepFactor)
}

func TestLoadMissingPathFallsBackToDefaults(t *testing.T) {
	// no default config files around
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGapInitial, cfg.Adaptive.Gap.InitialValue)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiometry.yaml")
	yaml := `
audio:
  sample_rate: 48000
stimulus:
  reference_hz: 1000
  isi: 250ms
staircase:
  reversal_target: 8
  reversals_for_threshold: 4
  gap:
    initial_value: 0.030
    mode: additive
    step: 0.004
    min: 0.001
    max: 0.200
session:
  participant: P010
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 48000.0, cfg.Audio.SampleRate)
	assert.Equal(t, 1000.0, cfg.Stimulus.ReferenceHz)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.Stimulus.ISI)
	assert.Equal(t, 8, cfg.Adaptive.ReversalTarget)
	assert.Equal(t, "additive", cfg.Adaptive.Gap.Mode)
	assert.Equal(t, 0.004, cfg.Adaptive.Gap.Step)
	assert.Equal(t, "P010", cfg.Session.Participant)

	// Unmentioned fields keep their defaults.
	assert.Equal(t, DefaultNoiseHighHz, cfg.Stimulus.NoiseHighHz)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	t.Setenv("AUDIOMETRY_PARTICIPANT", "P042")
	t.Setenv("AUDIOMETRY_SEED", "1234")
	t.Setenv("AUDIOMETRY_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "P042", cfg.Session.Participant)
	assert.Equal(t, int64(1234), cfg.Session.Seed)
	assert.True(t, cfg.Debug)
}

func TestValidateCatchesImpossibleValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"band inverted", func(c *Config) { c.Stimulus.NoiseLowHz = 9000 }},
		{"band above nyquist", func(c *Config) { c.Stimulus.NoiseHighHz = 30000 }},
		{"zero filter order", func(c *Config) { c.Stimulus.FilterOrder = 0 }},
		{"amplitude above one", func(c *Config) { c.Stimulus.Amplitude = 1.5 }},
		{"fade swallows burst", func(c *Config) { c.Stimulus.FadeDuration = c.Stimulus.NoiseDuration }},
		{"reference above nyquist", func(c *Config) { c.Stimulus.ReferenceHz = 30000 }},
		{"zero run length", func(c *Config) { c.Adaptive.RunLength = 0 }},
		{"threshold needs more reversals than target", func(c *Config) { c.Adaptive.ReversalsForThreshold = 99 }},
		{"multiplicative factor below one", func(c *Config) { c.Adaptive.Gap.StepFactor = 0.9 }},
		{"unknown track mode", func(c *Config) { c.Adaptive.Pitch.Mode = "geometric" }},
		{"negative retry limit", func(c *Config) { c.Response.RetryLimit = -1 }},
		{"odd bit depth", func(c *Config) { c.Export.BitDepth = 12 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTrackValidateAdditive(t *testing.T) {
	track := TrackConfig{
		InitialValue: 0.05, Mode: "additive", Step: 0.01,
		ShrinkRatio: 0.5, StepFloor: 0.001, Min: 0.001, Max: 0.2,
	}
	assert.NoError(t, track.validate())

	track.Step = 0
	assert.Error(t, track.validate())

	track.Step = 0.01
	track.ShrinkRatio = 1.0
	assert.Error(t, track.validate())
}
