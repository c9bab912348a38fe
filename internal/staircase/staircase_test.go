// SPDX-License-Identifier: MIT
package staircase

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func additiveConfig() Config {
	return Config{
		InitialValue:   0.050,
		Mode:           StepAdditive,
		Step:           0.010,
		Min:            0.001,
		Max:            0.200,
		RunLength:      3,
		ReversalTarget: 2,
		MaxTrials:      150,
	}
}

// TestHandTracedReversals walks the 3-down/1-up rule through a crafted
// correctness sequence and checks every intermediate value against a
// hand-computed table.
func TestHandTracedReversals(t *testing.T) {
	c := New(additiveConfig())

	// trial:    1..3      4..6      7..9      10      11..13
	// answer:   correct   correct   correct   wrong   correct
	// value:    0.050     0.040     0.030     0.020   0.030
	steps := []struct {
		correct      bool
		wantValue    float64 // value presented on this trial
		wantReversal bool
	}{
		{true, 0.050, false}, {true, 0.050, false}, {true, 0.050, false},
		{true, 0.040, false}, {true, 0.040, false}, {true, 0.040, false},
		{true, 0.030, false}, {true, 0.030, false}, {true, 0.030, false},
		{false, 0.020, true}, // first direction flip: decreasing -> increasing
		{true, 0.030, false}, {true, 0.030, false}, {true, 0.030, true},
	}

	for i, s := range steps {
		require.False(t, c.Done(), "terminated early at trial %d", i+1)
		assert.InDelta(t, s.wantValue, c.Value(), 1e-12, "trial %d value", i+1)
		got := c.Update(s.correct)
		assert.Equal(t, s.wantReversal, got, "trial %d reversal flag", i+1)
	}

	assert.True(t, c.Done())
	assert.Equal(t, StopConverged, c.Reason())
	assert.Equal(t, 13, c.TrialCount())

	// Reversal values are the levels at which the flip trials were presented.
	require.Len(t, c.Reversals(), 2)
	assert.InDelta(t, 0.020, c.Reversals()[0], 1e-12)
	assert.InDelta(t, 0.030, c.Reversals()[1], 1e-12)
}

func TestFirstAdjustmentIsNotAReversal(t *testing.T) {
	c := New(additiveConfig())

	// An incorrect first trial establishes the increasing direction but has
	// no previous direction to flip from.
	assert.False(t, c.Update(false))
	assert.Empty(t, c.Reversals())
	assert.InDelta(t, 0.060, c.Value(), 1e-12)
}

func TestClampAtBounds(t *testing.T) {
	cfg := additiveConfig()
	cfg.InitialValue = 0.195
	cfg.ReversalTarget = 100
	c := New(cfg)

	c.Update(false)
	assert.InDelta(t, 0.200, c.Value(), 1e-12, "clamped at max")

	cfg.InitialValue = 0.005
	c = New(cfg)
	for i := 0; i < 12; i++ {
		c.Update(true)
	}
	assert.InDelta(t, 0.001, c.Value(), 1e-12, "clamped at min")
}

func TestMultiplicativeSteps(t *testing.T) {
	c := New(Config{
		InitialValue:   0.050,
		Mode:           StepMultiplicative,
		StepFactor:     1.5,
		Min:            0.001,
		Max:            0.200,
		RunLength:      3,
		ReversalTarget: 12,
	})

	c.Update(true)
	c.Update(true)
	c.Update(true)
	assert.InDelta(t, 0.050/1.5, c.Value(), 1e-12)

	c.Update(false)
	assert.InDelta(t, 0.050, c.Value(), 1e-12)
}

func TestTrialCapStopsRun(t *testing.T) {
	cfg := additiveConfig()
	cfg.MaxTrials = 5
	cfg.ReversalTarget = 100
	c := New(cfg)

	for i := 0; i < 5; i++ {
		require.False(t, c.Done())
		c.Update(true)
	}
	assert.True(t, c.Done())
	assert.Equal(t, StopTrialCap, c.Reason())
	assert.False(t, c.Update(true), "updates after termination are ignored")
	assert.Equal(t, 5, c.TrialCount())
}

// TestConvergenceToP794 drives the staircase with a probabilistic responder
// whose psychometric function is known, and checks that the reversal mean
// lands near the 79.4%-correct point predicted for the 3-down/1-up rule.
func TestConvergenceToP794(t *testing.T) {
	const (
		midpoint = 0.030 // 75%-correct point of the logistic
		slope    = 150.0
	)
	// p(correct) = 0.5 + 0.5/(1+exp(-slope*(v-midpoint))); solving for
	// p = 0.794 gives the expected convergence level.
	expected := midpoint + math.Log(1/0.7007)/slope

	c := New(Config{
		InitialValue:   0.080,
		Mode:           StepAdditive,
		Step:           0.020,
		ShrinkRatio:    0.7,
		StepFloor:      0.002,
		Min:            0.0001,
		Max:            1,
		RunLength:      3,
		ReversalTarget: 60,
		MaxTrials:      2000,
	})

	rng := rand.New(rand.NewSource(42))
	for !c.Done() {
		v := c.Value()
		p := 0.5 + 0.5/(1+math.Exp(-slope*(v-midpoint)))
		c.Update(rng.Float64() < p)
	}

	require.Equal(t, StopConverged, c.Reason())
	require.GreaterOrEqual(t, c.TrialCount(), 200)

	est, err := EstimateThreshold(c.Reversals(), 30)
	require.NoError(t, err)
	assert.InDelta(t, expected, est, 0.010,
		"staircase should oscillate around the 79.4%% point")
}

func TestEstimateThreshold(t *testing.T) {
	reversals := []float64{0.9, 0.8, 0.030, 0.020, 0.030, 0.020, 0.030, 0.020}

	est, err := EstimateThreshold(reversals, 6)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, est, 1e-12, "mean of the last six only")

	est, err = EstimateThreshold(reversals, len(reversals))
	require.NoError(t, err)
	assert.Greater(t, est, 0.2, "early descent reversals included on demand")

	_, err = EstimateThreshold([]float64{0.1, 0.2, 0.3}, 6)
	assert.ErrorIs(t, err, ErrInsufficientReversals)

	_, err = EstimateThreshold(nil, 0)
	assert.ErrorIs(t, err, ErrInsufficientReversals)
}
