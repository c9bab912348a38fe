// SPDX-License-Identifier: MIT
//
// Package utils provides test and simulation helpers: scripted responders
// for exercising the trial loop without a participant, and a capturing
// transport for inspecting published progress.
package utils

import (
	"context"
	"math"
	"math/rand"
	"time"

	"audiometry/internal/config"
	"audiometry/internal/session"
)

// PerfectResponder always chooses the target interval. Useful for driving
// the staircase straight down its decreasing branch.
type PerfectResponder struct{}

// Await answers immediately and correctly.
func (PerfectResponder) Await(_ context.Context, st session.Status) (session.Response, error) {
	return session.Response{Interval: st.TargetInterval, ReactionTime: time.Millisecond}, nil
}

// PsychometricResponder answers correctly with a probability that follows a
// logistic psychometric function of the stimulus value:
//
//	p(correct) = 0.5 + 0.5 / (1 + exp(-Slope*(v-Midpoint)))
//
// Chance level is 0.5 (two-interval forced choice); p rises toward 1 as the
// stimulus gets easier. At v = Midpoint the responder is 75% correct.
type PsychometricResponder struct {
	Midpoint float64
	Slope    float64
	Rng      *rand.Rand
}

// Await rolls against the psychometric function and picks the target or the
// other interval accordingly.
func (r *PsychometricResponder) Await(_ context.Context, st session.Status) (session.Response, error) {
	p := 0.5 + 0.5/(1+math.Exp(-r.Slope*(st.StimulusValue-r.Midpoint)))
	interval := st.TargetInterval
	if r.Rng.Float64() >= p {
		interval = 3 - interval
	}
	return session.Response{Interval: interval, ReactionTime: time.Millisecond}, nil
}

// BatteryResponder routes each test type to its own psychometric function.
// Gap and pitch staircases track values in different units (seconds vs Hz),
// so a single midpoint/slope pair cannot serve both.
type BatteryResponder struct {
	Gap   PsychometricResponder
	Pitch PsychometricResponder
}

// NewBatteryResponder derives per-track psychometric parameters from each
// track's starting value: the midpoint sits at half the starting value and
// the slope scales inversely with it, so every staircase converges inside
// its configured range whatever unit it tracks.
func NewBatteryResponder(gap, pitch config.TrackConfig, rng *rand.Rand) *BatteryResponder {
	return &BatteryResponder{
		Gap: PsychometricResponder{
			Midpoint: gap.InitialValue / 2,
			Slope:    10 / gap.InitialValue,
			Rng:      rng,
		},
		Pitch: PsychometricResponder{
			Midpoint: pitch.InitialValue / 2,
			Slope:    10 / pitch.InitialValue,
			Rng:      rng,
		},
	}
}

// Await answers with the psychometric function of the active test's track.
func (r *BatteryResponder) Await(ctx context.Context, st session.Status) (session.Response, error) {
	if st.TestType == session.TestPitch {
		return r.Pitch.Await(ctx, st)
	}
	return r.Gap.Await(ctx, st)
}

// ScriptedResponder replays a fixed correct/incorrect sequence, then keeps
// repeating the final answer. Used to drive hand-traced staircase paths.
type ScriptedResponder struct {
	Correct []bool
	next    int
}

// Await consumes the next scripted answer.
func (r *ScriptedResponder) Await(_ context.Context, st session.Status) (session.Response, error) {
	correct := true
	if len(r.Correct) > 0 {
		i := r.next
		if i >= len(r.Correct) {
			i = len(r.Correct) - 1
		}
		correct = r.Correct[i]
		r.next++
	}
	interval := st.TargetInterval
	if !correct {
		interval = 3 - interval
	}
	return session.Response{Interval: interval, ReactionTime: time.Millisecond}, nil
}

// NullSink discards audio instantly. Simulated sessions have no ears.
type NullSink struct{}

// Play does nothing.
func (NullSink) Play(context.Context, []float64, float64) error { return nil }

// CaptureTransport implements the progress transport for testing.
type CaptureTransport struct {
	Sent []any
}

// Send stores the payload for later inspection instead of transmitting.
func (c *CaptureTransport) Send(data any) error {
	c.Sent = append(c.Sent, data)
	return nil
}

// Close is a no-op.
func (c *CaptureTransport) Close() error { return nil }
