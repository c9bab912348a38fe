// SPDX-License-Identifier: MIT
/*
Package analysis verifies stimulus quality offline: spectral confinement of
the bandpass noise and peak frequency of tones. The calibrate command uses it
to check a configuration against the hardware-independent synthesis chain
before a participant sits down; the tests use it to pin the filter behavior.
*/
package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"audiometry/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrBufferTooShort means the buffer has too few samples for a meaningful
// spectrum.
var ErrBufferTooShort = errors.New("analysis: buffer too short for spectrum")

// Spectrum is the single-sided magnitude spectrum of one buffer.
type Spectrum struct {
	Magnitudes []float64
	binWidth   float64
}

// NewSpectrum computes the Hann-windowed magnitude spectrum of samples. The
// buffer is zero-padded to the next power of two.
func NewSpectrum(samples []float64, sampleRate float64) (*Spectrum, error) {
	if len(samples) < 16 {
		return nil, ErrBufferTooShort
	}

	n := bitint.NextPowerOfTwo(len(samples))
	input := make([]float64, n)
	for i, v := range samples {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(samples)-1)))
		input[i] = v * w
	}

	fftObj := fourier.NewFFT(n)
	coeffs := fftObj.Coefficients(nil, input)

	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
	}

	return &Spectrum{
		Magnitudes: mags,
		binWidth:   sampleRate / float64(n),
	}, nil
}

// FrequencyForBin returns the center frequency of bin i.
func (s *Spectrum) FrequencyForBin(i int) float64 {
	return float64(i) * s.binWidth
}

// BandEnergy sums magnitude-squared energy over [lowHz, highHz).
func (s *Spectrum) BandEnergy(lowHz, highHz float64) float64 {
	total := 0.0
	for i, m := range s.Magnitudes {
		freq := s.FrequencyForBin(i)
		if freq >= lowHz && freq < highHz {
			total += m * m
		}
	}
	return total
}

// TotalEnergy sums magnitude-squared energy over the whole spectrum.
func (s *Spectrum) TotalEnergy() float64 {
	total := 0.0
	for _, m := range s.Magnitudes {
		total += m * m
	}
	return total
}

// PeakFrequency returns the frequency of the largest-magnitude bin.
func (s *Spectrum) PeakFrequency() float64 {
	peak := 0
	for i, m := range s.Magnitudes {
		if m > s.Magnitudes[peak] {
			peak = i
		}
	}
	return s.FrequencyForBin(peak)
}

// BandConfinement returns the fraction of total energy inside [lowHz,
// highHz). A well-behaved bandpass noise burst scores close to 1.
func BandConfinement(samples []float64, sampleRate, lowHz, highHz float64) (float64, error) {
	spec, err := NewSpectrum(samples, sampleRate)
	if err != nil {
		return 0, err
	}
	total := spec.TotalEnergy()
	if total == 0 {
		return 0, nil
	}
	return spec.BandEnergy(lowHz, highHz) / total, nil
}
