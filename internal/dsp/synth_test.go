// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneFadeEndpoints(t *testing.T) {
	buf, err := Tone(500, 0.3, 0.25, 0.010, 44100)
	require.NoError(t, err)
	require.Len(t, buf, 11025)

	assert.InDelta(t, 0, buf[0], 1e-12, "first sample must be silent")
	assert.InDelta(t, 0, buf[len(buf)-1], 1e-12, "last sample must be silent")

	for _, v := range buf {
		assert.LessOrEqual(t, math.Abs(v), 0.3+1e-12)
	}
}

func TestToneFadeMonotonicEnvelope(t *testing.T) {
	const (
		sampleRate = 44100.0
		fadeSec    = 0.010
	)
	faded, err := Tone(500, 0.3, 0.25, fadeSec, sampleRate)
	require.NoError(t, err)
	plain, err := Tone(500, 0.3, 0.25, 0, sampleRate)
	require.NoError(t, err)

	// The ratio faded/plain is the fade weight; it must rise monotonically
	// over the onset ramp.
	fadeN := int(fadeSec * sampleRate)
	prev := -1.0
	for i := 0; i < fadeN; i++ {
		if math.Abs(plain[i]) < 1e-6 {
			continue
		}
		w := faded[i] / plain[i]
		assert.GreaterOrEqual(t, w, prev-1e-9, "fade weight dipped at sample %d", i)
		prev = w
	}
}

func TestToneInvalidParameters(t *testing.T) {
	_, err := Tone(0, 0.3, 0.25, 0.010, 44100)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = Tone(23000, 0.3, 0.25, 0.010, 44100) // above Nyquist
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = Tone(500, 0.3, 0, 0.010, 44100)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestBandpassNoiseShape(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	buf, err := BandpassNoise(rng, 100, 8000, 0.3, 0.3, 0.010, 4, 44100)
	require.NoError(t, err)
	require.Len(t, buf, 13230)

	assert.InDelta(t, 0, buf[0], 1e-9)
	assert.InDelta(t, 0, buf[len(buf)-1], 1e-9)

	peak := 0.0
	for _, v := range buf {
		if av := math.Abs(v); av > peak {
			peak = av
		}
	}
	// Peak normalization happens before the fade, so the overall peak is at
	// or just below the target amplitude.
	assert.LessOrEqual(t, peak, 0.3+1e-9)
	assert.Greater(t, peak, 0.2)
}

func TestBandpassNoiseInvalidBand(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := BandpassNoise(rng, 8000, 100, 0.3, 0.3, 0.010, 4, 44100)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = BandpassNoise(rng, 100, 30000, 0.3, 0.3, 0.010, 4, 44100)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = BandpassNoise(rng, 100, 8000, 0.3, 0.3, 0.010, 0, 44100)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestInsertGapSilencesCenter(t *testing.T) {
	const sampleRate = 44100.0
	rng := rand.New(rand.NewSource(7))
	buf, err := BandpassNoise(rng, 100, 8000, 0.3, 0.3, 0.010, 4, sampleRate)
	require.NoError(t, err)

	const gapSec = 0.020
	require.NoError(t, InsertGap(buf, gapSec, 0.010, sampleRate))

	gapN := int(math.Round(gapSec * sampleRate))
	start := (len(buf) - gapN) / 2
	for i := start; i < start+gapN; i++ {
		require.Equal(t, 0.0, buf[i], "gap sample %d not silent", i)
	}

	// The noise on either side of the gap survives.
	assert.NotZero(t, buf[start-1])
	assert.NotZero(t, buf[start+gapN])
}

func TestInsertGapTooLarge(t *testing.T) {
	buf := make([]float64, 4410) // 100 ms at 44.1 kHz
	for i := range buf {
		buf[i] = 1
	}

	err := InsertGap(buf, 0.090, 0.010, 44100) // gap + fades exceed buffer
	assert.ErrorIs(t, err, ErrGapTooLarge)

	err = InsertGap(nil, 0.010, 0.010, 44100)
	assert.ErrorIs(t, err, ErrEmptyBuffer)

	err = InsertGap(buf, 0, 0.010, 44100)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestNormalizeRMS(t *testing.T) {
	buf := []float64{0.5, -0.5, 0.5, -0.5}
	NormalizeRMS(buf, 0.1)
	assert.InDelta(t, 0.1, RMS(buf), 1e-12)

	silent := make([]float64, 8)
	NormalizeRMS(silent, 0.1)
	assert.Equal(t, 0.0, RMS(silent))
}
