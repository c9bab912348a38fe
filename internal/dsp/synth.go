// SPDX-License-Identifier: MIT
/*
Package dsp generates and shapes the sample buffers used as psychoacoustic
stimuli:
- Pure tones and bandpass-filtered white noise
- Half-cosine onset/offset fades to suppress spectral splatter
- Sample-accurate centered gap insertion for gap-detection trials

All generators are pure functions of their parameters plus an injected random
source, so identical seeds reproduce identical buffers.
*/
package dsp

import (
	"math"
	"math/rand"
)

// Tone synthesizes a sine wave at frequencyHz with the given peak amplitude
// and applies a half-cosine fade of fadeSec at both ends.
func Tone(frequencyHz, amplitude, durationSec, fadeSec, sampleRate float64) ([]float64, error) {
	if durationSec <= 0 {
		return nil, ErrInvalidDuration
	}
	if sampleRate <= 0 || frequencyHz <= 0 || frequencyHz >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	n := int(math.Round(durationSec * sampleRate))
	out := make([]float64, n)
	step := 2 * math.Pi * frequencyHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	applyFade(out, fadeSamples(fadeSec, sampleRate, n))
	return out, nil
}

// BandpassNoise generates white noise of durationSec, applies a zero-phase
// Butterworth bandpass of the given order between lowHz and highHz, peak
// normalizes to amplitude, and fades both ends.
func BandpassNoise(rng *rand.Rand, lowHz, highHz, amplitude, durationSec, fadeSec float64, order int, sampleRate float64) ([]float64, error) {
	if durationSec <= 0 {
		return nil, ErrInvalidDuration
	}
	coeffs, err := ButterworthBandpass(lowHz, highHz, order, sampleRate)
	if err != nil {
		return nil, err
	}

	n := int(math.Round(durationSec * sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64()
	}

	FiltFilt(coeffs, out)
	normalizePeak(out, amplitude)

	applyFade(out, fadeSamples(fadeSec, sampleRate, n))
	return out, nil
}

// InsertGap overwrites a gapSec-long region centered in buf with silence.
// The region must fall strictly inside the buffer once both fade regions are
// excluded; a gap that does not fit is an input-constraint error, never a
// silent truncation.
func InsertGap(buf []float64, gapSec, fadeSec, sampleRate float64) error {
	if len(buf) == 0 {
		return ErrEmptyBuffer
	}
	if gapSec <= 0 {
		return ErrInvalidDuration
	}

	gapN := int(math.Round(gapSec * sampleRate))
	fadeN := int(math.Round(fadeSec * sampleRate))
	if gapN >= len(buf)-2*fadeN {
		return ErrGapTooLarge
	}

	start := (len(buf) - gapN) / 2
	for i := start; i < start+gapN; i++ {
		buf[i] = 0
	}
	return nil
}

// RMS returns the root mean square amplitude of buf.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range buf {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// NormalizeRMS scales buf in-place to the target RMS level. A silent buffer
// is left untouched.
func NormalizeRMS(buf []float64, targetRMS float64) {
	current := RMS(buf)
	if current == 0 {
		return
	}
	scale := targetRMS / current
	for i := range buf {
		buf[i] *= scale
	}
}

// fadeSamples converts a fade duration to a sample count, capped at a quarter
// of the buffer so the two ramps can never overlap.
func fadeSamples(fadeSec, sampleRate float64, bufLen int) int {
	n := int(math.Round(fadeSec * sampleRate))
	if n > bufLen/4 {
		n = bufLen / 4
	}
	return n
}

// applyFade multiplies the first and last n samples by a half-cosine ramp
// (0 to 1 rising, 1 to 0 falling). The first and last samples end up at zero.
func applyFade(buf []float64, n int) {
	if n <= 1 {
		return
	}
	for i := 0; i < n; i++ {
		w := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(n-1)))
		buf[i] *= w
		buf[len(buf)-1-i] *= w
	}
}

func normalizePeak(buf []float64, targetPeak float64) {
	maxAbs := 0.0
	for _, v := range buf {
		if av := math.Abs(v); av > maxAbs {
			maxAbs = av
		}
	}
	if maxAbs == 0 {
		return
	}
	scale := targetPeak / maxAbs
	for i := range buf {
		buf[i] *= scale
	}
}
