// SPDX-License-Identifier: MIT
package stimulus

import (
	"math/rand"
	"testing"
	"time"

	"audiometry/internal/analysis"
	"audiometry/internal/config"
	"audiometry/internal/dsp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStimulusConfig() config.StimulusConfig {
	return config.StimulusConfig{
		NoiseLowHz:    100,
		NoiseHighHz:   8000,
		FilterOrder:   4,
		NoiseDuration: config.Duration(300 * time.Millisecond),
		ToneDuration:  config.Duration(250 * time.Millisecond),
		ReferenceHz:   500,
		Amplitude:     0.3,
		FadeDuration:  config.Duration(10 * time.Millisecond),
	}
}

func newTestBuilder(seed int64) *Builder {
	return NewBuilder(testStimulusConfig(), 44100, rand.New(rand.NewSource(seed)))
}

func TestGapTrialDeterministicForSeed(t *testing.T) {
	a, err := newTestBuilder(7).GapTrial(0.050)
	require.NoError(t, err)
	b, err := newTestBuilder(7).GapTrial(0.050)
	require.NoError(t, err)

	assert.Equal(t, a.Target, b.Target)
	assert.Equal(t, a.Interval1, b.Interval1)
	assert.Equal(t, a.Interval2, b.Interval2)
}

func TestGapTrialTargetHasSilentCenter(t *testing.T) {
	pair, err := newTestBuilder(3).GapTrial(0.020)
	require.NoError(t, err)
	require.Contains(t, []int{1, 2}, pair.Target)

	target, standard := pair.Interval1, pair.Interval2
	if pair.Target == 2 {
		target, standard = standard, target
	}

	center := len(target) / 2
	assert.Equal(t, 0.0, target[center], "target center must be silent")
	assert.NotZero(t, standard[center], "standard must be continuous noise")
}

func TestGapTrialRejectsOversizedGap(t *testing.T) {
	_, err := newTestBuilder(1).GapTrial(0.400) // longer than the burst
	assert.ErrorIs(t, err, dsp.ErrGapTooLarge)
}

func TestPitchTrialTargetIsHigher(t *testing.T) {
	pair, err := newTestBuilder(5).PitchTrial(50)
	require.NoError(t, err)

	target, standard := pair.Interval1, pair.Interval2
	if pair.Target == 2 {
		target, standard = standard, target
	}

	specTarget, err := analysis.NewSpectrum(target, 44100)
	require.NoError(t, err)
	specStandard, err := analysis.NewSpectrum(standard, 44100)
	require.NoError(t, err)

	assert.InDelta(t, 550, specTarget.PeakFrequency(), 10)
	assert.InDelta(t, 500, specStandard.PeakFrequency(), 10)
}

func TestPitchTrialRejectsBadDelta(t *testing.T) {
	_, err := newTestBuilder(1).PitchTrial(40000) // above Nyquist
	assert.ErrorIs(t, err, dsp.ErrInvalidFrequency)
}

// TestSlotOrderRoughlyUniform draws many trials and checks that the target
// lands in both slots. Not a distribution test, just a guard against a stuck
// assignment.
func TestSlotOrderRoughlyUniform(t *testing.T) {
	b := newTestBuilder(9)
	counts := map[int]int{}
	for i := 0; i < 40; i++ {
		pair, err := b.PitchTrial(50)
		require.NoError(t, err)
		counts[pair.Target]++
	}
	assert.Greater(t, counts[1], 5)
	assert.Greater(t, counts[2], 5)
}

func TestNoiseSpectrumConfinedToBand(t *testing.T) {
	pair, err := newTestBuilder(13).GapTrial(0.020)
	require.NoError(t, err)

	frac, err := analysis.BandConfinement(pair.Interval1, 44100, 100, 8000)
	require.NoError(t, err)
	assert.Greater(t, frac, 0.95, "energy outside the noise band")
}
