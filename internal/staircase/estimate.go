package staircase

import (
	"errors"

	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientReversals indicates a run produced fewer reversals than the
// estimator needs, typically because the trial cap ended the block early.
// The caller decides whether to report a partial estimate or discard the
// block.
var ErrInsufficientReversals = errors.New("staircase: not enough reversals for threshold estimate")

// EstimateThreshold returns the mean of the final k reversal values. Early
// reversals are excluded because they reflect the initial descent rather
// than oscillation around the threshold.
func EstimateThreshold(reversals []float64, k int) (float64, error) {
	if k <= 0 || len(reversals) < k {
		return 0, ErrInsufficientReversals
	}
	return stat.Mean(reversals[len(reversals)-k:], nil), nil
}
