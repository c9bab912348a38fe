package dsp

import "errors"

var (
	// ErrInvalidFrequency indicates a corner frequency outside (0, sampleRate/2)
	// or an inverted band (low >= high).
	ErrInvalidFrequency = errors.New("dsp: invalid frequency bounds")
	// ErrInvalidDuration indicates a non-positive duration or sample count.
	ErrInvalidDuration = errors.New("dsp: duration must be positive")
	// ErrInvalidOrder indicates a non-positive filter order.
	ErrInvalidOrder = errors.New("dsp: filter order must be positive")
	// ErrGapTooLarge indicates a requested gap that does not fit strictly
	// inside the buffer once both fade regions are excluded.
	ErrGapTooLarge = errors.New("dsp: gap duration exceeds usable buffer length")
	// ErrEmptyBuffer indicates an empty input buffer.
	ErrEmptyBuffer = errors.New("dsp: buffer must not be empty")
)
