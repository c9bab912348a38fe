// SPDX-License-Identifier: MIT
package dsp

import "math"

// butterworthQ returns the quality factor for one second-order section of a
// Butterworth cascade. index ranges from 0 to (order/2 - 1).
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))

	s := math.Sin(theta)
	if s == 0 {
		return 1 / math.Sqrt2
	}

	return 1 / (2 * s)
}

// lowpassSection designs a single RBJ lowpass biquad at freq with quality q.
func lowpassSection(freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return Coefficients{
		B0: (1 - cosw0) / 2 / a0,
		B1: (1 - cosw0) / a0,
		B2: (1 - cosw0) / 2 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}
}

// highpassSection designs a single RBJ highpass biquad at freq with quality q.
func highpassSection(freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	a0 := 1 + alpha
	return Coefficients{
		B0: (1 + cosw0) / 2 / a0,
		B1: -(1 + cosw0) / a0,
		B2: (1 + cosw0) / 2 / a0,
		A1: -2 * cosw0 / a0,
		A2: (1 - alpha) / a0,
	}
}

// firstOrderLP designs a first-order lowpass section via bilinear transform.
// Used for odd-order cascades.
func firstOrderLP(freq, sampleRate float64) Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return Coefficients{
		B0: k * norm,
		B1: k * norm,
		A1: (k - 1) * norm,
	}
}

// firstOrderHP designs a first-order highpass section via bilinear transform.
func firstOrderHP(freq, sampleRate float64) Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return Coefficients{
		B0: norm,
		B1: -norm,
		A1: (k - 1) * norm,
	}
}

// ButterworthLP designs a lowpass Butterworth cascade of the given order.
// For odd orders, the final section is first-order.
func ButterworthLP(freq float64, order int, sampleRate float64) ([]Coefficients, error) {
	if order <= 0 {
		return nil, ErrInvalidOrder
	}
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	sections := make([]Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, lowpassSection(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderLP(freq, sampleRate))
	}
	return sections, nil
}

// ButterworthHP designs a highpass Butterworth cascade of the given order.
// For odd orders, the final section is first-order.
func ButterworthHP(freq float64, order int, sampleRate float64) ([]Coefficients, error) {
	if order <= 0 {
		return nil, ErrInvalidOrder
	}
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	sections := make([]Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, highpassSection(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderHP(freq, sampleRate))
	}
	return sections, nil
}

// ButterworthBandpass designs a bandpass cascade between lowHz and highHz by
// chaining an order-N highpass at the lower corner with an order-N lowpass at
// the upper corner. For the wide bands used in noise stimuli this gives the
// same -3 dB corners as a transformed bandpass of the same per-edge order.
func ButterworthBandpass(lowHz, highHz float64, order int, sampleRate float64) ([]Coefficients, error) {
	if lowHz >= highHz {
		return nil, ErrInvalidFrequency
	}

	hp, err := ButterworthHP(lowHz, order, sampleRate)
	if err != nil {
		return nil, err
	}
	lp, err := ButterworthLP(highHz, order, sampleRate)
	if err != nil {
		return nil, err
	}
	return append(hp, lp...), nil
}

// FiltFilt applies the cascade forward and then backward over buf in-place,
// giving a zero-phase response. The effective magnitude response is squared.
// Zero phase matters for gap stimuli: group delay would otherwise smear the
// silence boundary.
func FiltFilt(coeffs []Coefficients, buf []float64) {
	chain := NewChain(coeffs)
	chain.ProcessBlock(buf)

	reverse(buf)
	chain.Reset()
	chain.ProcessBlock(buf)
	reverse(buf)
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
