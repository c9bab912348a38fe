// SPDX-License-Identifier: MIT
/*
Package stimulus assembles the two playback intervals of a two-interval
forced-choice trial. One interval carries the standard stimulus, the other
the target (the one holding a gap, or the higher tone); slot order is drawn
uniformly from an injected random source so tests can fix the seed.
*/
package stimulus

import (
	"fmt"
	"math/rand"

	"audiometry/internal/config"
	"audiometry/internal/dsp"
)

// Pair holds the two playback intervals of one trial and which slot holds
// the target.
type Pair struct {
	Interval1 []float64
	Interval2 []float64
	// Target is 1 or 2: the interval the participant should pick.
	Target int
}

// Builder constructs trial pairs from a shared stimulus configuration.
// It is not safe for concurrent use; the trial loop is sequential anyway.
type Builder struct {
	cfg        config.StimulusConfig
	sampleRate float64
	rng        *rand.Rand
}

// NewBuilder returns a Builder drawing randomness from rng. Both slot order
// and the noise samples themselves come from rng, so a fixed seed reproduces
// a session exactly.
func NewBuilder(cfg config.StimulusConfig, sampleRate float64, rng *rand.Rand) *Builder {
	return &Builder{cfg: cfg, sampleRate: sampleRate, rng: rng}
}

// GapTrial builds one gap-detection trial: two bandpass noise bursts, one
// continuous (standard) and one with gapSec of silence in its center
// (target).
func (b *Builder) GapTrial(gapSec float64) (Pair, error) {
	standard, err := b.noise()
	if err != nil {
		return Pair{}, err
	}

	target, err := b.noise()
	if err != nil {
		return Pair{}, err
	}
	if err := dsp.InsertGap(target, gapSec, b.cfg.FadeDuration.Seconds(), b.sampleRate); err != nil {
		return Pair{}, fmt.Errorf("gap trial at %.4fs: %w", gapSec, err)
	}

	return b.order(standard, target), nil
}

// PitchTrial builds one pitch-discrimination trial: a tone at the reference
// frequency (standard) and one deltaHz above it (target, always the higher
// of the two).
func (b *Builder) PitchTrial(deltaHz float64) (Pair, error) {
	standard, err := b.tone(b.cfg.ReferenceHz)
	if err != nil {
		return Pair{}, err
	}

	target, err := b.tone(b.cfg.ReferenceHz + deltaHz)
	if err != nil {
		return Pair{}, fmt.Errorf("pitch trial at +%.2fHz: %w", deltaHz, err)
	}

	return b.order(standard, target), nil
}

func (b *Builder) noise() ([]float64, error) {
	return dsp.BandpassNoise(
		b.rng,
		b.cfg.NoiseLowHz, b.cfg.NoiseHighHz,
		b.cfg.Amplitude,
		b.cfg.NoiseDuration.Seconds(),
		b.cfg.FadeDuration.Seconds(),
		b.cfg.FilterOrder,
		b.sampleRate,
	)
}

func (b *Builder) tone(freq float64) ([]float64, error) {
	return dsp.Tone(
		freq,
		b.cfg.Amplitude,
		b.cfg.ToneDuration.Seconds(),
		b.cfg.FadeDuration.Seconds(),
		b.sampleRate,
	)
}

// order assigns the standard and target buffers to slots 1 and 2 with
// uniform probability.
func (b *Builder) order(standard, target []float64) Pair {
	if b.rng.Intn(2) == 0 {
		return Pair{Interval1: target, Interval2: standard, Target: 1}
	}
	return Pair{Interval1: standard, Interval2: target, Target: 2}
}
