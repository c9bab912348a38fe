// SPDX-License-Identifier: MIT
/*
Package staircase implements the transformed up-down adaptive procedure
(Levitt, 1971) used to track a perceptual threshold. With a 3-down/1-up rule
the tracked value converges on the stimulus level yielding 79.4% correct,
because the probability of three consecutive correct responses at that level
equals the probability of one incorrect response.

The procedure is a pure state machine: one Update per trial, driven by a
single correctness bit, with no audio or UI dependency.
*/
package staircase

import "audiometry/internal/log"

// Direction is the most recent adjustment direction of the tracked value.
type Direction int

const (
	// DirectionNone means no adjustment has happened yet.
	DirectionNone Direction = iota
	// DirectionDecreasing means the last adjustment made the task harder.
	DirectionDecreasing
	// DirectionIncreasing means the last adjustment made the task easier.
	DirectionIncreasing
)

func (d Direction) String() string {
	switch d {
	case DirectionDecreasing:
		return "decreasing"
	case DirectionIncreasing:
		return "increasing"
	default:
		return "none"
	}
}

// StopReason records why a staircase terminated.
type StopReason int

const (
	// StopNone means the staircase is still running.
	StopNone StopReason = iota
	// StopConverged means the configured reversal target was reached.
	StopConverged
	// StopTrialCap means the safety trial cap ended the block before the
	// reversal target was met.
	StopTrialCap
)

func (r StopReason) String() string {
	switch r {
	case StopConverged:
		return "converged"
	case StopTrialCap:
		return "trial cap"
	default:
		return "running"
	}
}

// StepMode selects how the tracked value is adjusted per rule trigger.
type StepMode int

const (
	// StepAdditive adds or subtracts Step.
	StepAdditive StepMode = iota
	// StepMultiplicative divides or multiplies by StepFactor, the
	// geometric-track mode common in auditory studies (factor 1.5).
	StepMultiplicative
)

// Config holds the parameters of one staircase run.
type Config struct {
	InitialValue float64
	Mode         StepMode

	// Step is the additive adjustment magnitude (StepAdditive only).
	Step float64
	// ShrinkRatio, when in (0, 1), multiplies Step after every reversal
	// until StepFloor is reached. Zero disables shrinkage.
	ShrinkRatio float64
	StepFloor   float64

	// StepFactor is the multiplicative adjustment (StepMultiplicative only).
	StepFactor float64

	// Min and Max clamp the tracked value. Zero Max means unbounded.
	Min float64
	Max float64

	// RunLength is the consecutive-correct count that triggers a decrease
	// (3 for the 3-down/1-up rule).
	RunLength int

	// ReversalTarget terminates the run once this many reversals are seen.
	ReversalTarget int
	// MaxTrials is a safety cap bounding session length. Zero means no cap.
	MaxTrials int
}

// Controller owns the mutable state of one adaptive track. It is not safe
// for concurrent use; each block gets its own instance.
type Controller struct {
	cfg Config

	value              float64
	step               float64
	consecutiveCorrect int
	lastDirection      Direction
	reversals          []float64
	trialCount         int
	reason             StopReason
}

// New creates a controller positioned at the configured initial value.
func New(cfg Config) *Controller {
	log.Debugf("staircase: start value=%.4f mode=%d", cfg.InitialValue, cfg.Mode)
	return &Controller{
		cfg:   cfg,
		value: clamp(cfg.InitialValue, cfg.Min, cfg.Max),
		step:  cfg.Step,
	}
}

// Value returns the stimulus parameter for the next trial.
func (c *Controller) Value() float64 { return c.value }

// TrialCount returns the number of Update calls so far.
func (c *Controller) TrialCount() int { return c.trialCount }

// Reversals returns the recorded reversal values in order. The slice is
// owned by the controller; callers must not mutate it.
func (c *Controller) Reversals() []float64 { return c.reversals }

// Done reports whether the run has terminated.
func (c *Controller) Done() bool { return c.reason != StopNone }

// Reason returns why the run terminated, or StopNone while running.
func (c *Controller) Reason() StopReason { return c.reason }

// Update consumes one trial outcome and adjusts the tracked value according
// to the 3-down/1-up rule. It returns true if this trial produced a reversal.
//
// A reversal is recorded only when the adjustment direction actually flips;
// the first adjustment of a run establishes a direction without counting as
// one. The value appended to the reversal history is the level at which the
// reversal trial was presented, before the adjustment is applied.
func (c *Controller) Update(correct bool) bool {
	if c.Done() {
		return false
	}
	c.trialCount++

	direction := DirectionNone
	presented := c.value

	if correct {
		c.consecutiveCorrect++
		if c.consecutiveCorrect >= c.cfg.RunLength {
			c.consecutiveCorrect = 0
			c.adjust(-1)
			direction = DirectionDecreasing
		}
	} else {
		c.consecutiveCorrect = 0
		c.adjust(+1)
		direction = DirectionIncreasing
	}

	isReversal := false
	if direction != DirectionNone {
		if c.lastDirection != DirectionNone && direction != c.lastDirection {
			isReversal = true
			c.reversals = append(c.reversals, presented)
			c.shrinkStep()
			log.Debugf("staircase: reversal %d at %.4f", len(c.reversals), presented)
		}
		c.lastDirection = direction
	}

	if c.cfg.ReversalTarget > 0 && len(c.reversals) >= c.cfg.ReversalTarget {
		c.reason = StopConverged
		log.Infof("staircase: converged after %d trials, %d reversals", c.trialCount, len(c.reversals))
	} else if c.cfg.MaxTrials > 0 && c.trialCount >= c.cfg.MaxTrials {
		c.reason = StopTrialCap
		log.Warnf("staircase: trial cap %d reached with %d reversals", c.cfg.MaxTrials, len(c.reversals))
	}

	return isReversal
}

// adjust moves the tracked value one step in the given direction (-1 harder,
// +1 easier), clamped to the configured bounds.
func (c *Controller) adjust(sign int) {
	switch c.cfg.Mode {
	case StepMultiplicative:
		if sign < 0 {
			c.value /= c.cfg.StepFactor
		} else {
			c.value *= c.cfg.StepFactor
		}
	default:
		c.value += float64(sign) * c.step
	}
	c.value = clamp(c.value, c.cfg.Min, c.cfg.Max)
}

func (c *Controller) shrinkStep() {
	if c.cfg.Mode != StepAdditive || c.cfg.ShrinkRatio <= 0 || c.cfg.ShrinkRatio >= 1 {
		return
	}
	c.step *= c.cfg.ShrinkRatio
	if c.step < c.cfg.StepFloor {
		c.step = c.cfg.StepFloor
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
