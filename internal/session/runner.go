// SPDX-License-Identifier: MIT
/*
Package session drives the hearing-test battery: the per-block trial loop
coupling the stimulus builder to the adaptive staircase, and the session
controller sequencing blocks across priming conditions.

The trial loop is a single logical thread. Interval 1 must finish playing
before interval 2 starts, and a response must be collected before the next
trial's stimulus is built; both playback and response collection are
blocking calls from the loop's perspective.
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"audiometry/internal/config"
	"audiometry/internal/log"
	"audiometry/internal/staircase"
	"audiometry/internal/stimulus"
	"audiometry/internal/transport"
)

var (
	// ErrResponseInvalid means the participant produced no interpretable
	// response within the configured retry limit; the block ends early with
	// partial data flushed.
	ErrResponseInvalid = errors.New("session: no valid response within retry limit")
	// ErrResponseTimeout is returned by a ResponseSource when the response
	// window elapsed. The runner retries it like an invalid response.
	ErrResponseTimeout = errors.New("session: response timed out")
	// ErrAborted means the participant quit mid-block. Collected records
	// are flushed; no threshold summary is computed.
	ErrAborted = errors.New("session: aborted by participant")
)

// AudioSink plays one sample buffer at the given rate and does not return
// until playback completes. Implementations must not truncate or resample.
type AudioSink interface {
	Play(ctx context.Context, samples []float64, sampleRate float64) error
}

// Response is one participant answer.
type Response struct {
	Interval     int // 1 or 2; anything else is invalid
	ReactionTime time.Duration
}

// Status is shown to the participant while awaiting a response. The target
// interval and stimulus value are carried for simulated responders; the
// interactive prompt never displays them.
type Status struct {
	TestType       TestType
	Trial          int
	Reversals      int
	ReversalTarget int
	StimulusValue  float64
	TargetInterval int
}

// ResponseSource blocks until the participant answers. It returns
// ErrResponseTimeout when the window elapses and ErrAborted when the
// participant quits.
type ResponseSource interface {
	Await(ctx context.Context, st Status) (Response, error)
}

// Marker emits event markers for external recording equipment. Mark must
// never block the trial loop.
type Marker interface {
	Mark(code uint16) error
}

// Exporter archives the exact buffers presented on a trial.
type Exporter interface {
	ExportTrial(testType string, trial int, pair stimulus.Pair) error
}

// Runner executes one block (one condition x one test type) to completion.
type Runner struct {
	Participant string
	Condition   Condition
	TestType    TestType

	Builder   *stimulus.Builder
	Staircase *staircase.Controller
	Sink      AudioSink
	Responses ResponseSource

	ISI            time.Duration
	RetryLimit     int
	Timeout        time.Duration
	SampleRate     float64
	ReversalTarget int

	// Optional collaborators; nil disables the feature.
	Progress transport.Transport
	Markers  Marker
	Archive  Exporter
}

// RunBlock loops trials until the staircase terminates. It always returns
// the records collected so far, even on error, so the caller can persist
// partial data. The terminal staircase controller is returned for threshold
// estimation.
func (r *Runner) RunBlock(ctx context.Context) ([]TrialRecord, *staircase.Controller, error) {
	log.Infof("block start: %s %s %s", r.Participant, r.Condition, r.TestType)
	r.mark(EventBlockStart)

	var records []TrialRecord
	for !r.Staircase.Done() {
		if err := ctx.Err(); err != nil {
			return records, r.Staircase, fmt.Errorf("%w: %w", ErrAborted, err)
		}

		rec, err := r.runTrial(ctx)
		if err != nil {
			return records, r.Staircase, err
		}
		records = append(records, rec)

		r.publish(rec)
	}

	r.mark(EventBlockEnd)
	log.Infof("block done (%s): %d trials, %d reversals",
		r.Staircase.Reason(), r.Staircase.TrialCount(), len(r.Staircase.Reversals()))
	return records, r.Staircase, nil
}

// runTrial presents one two-interval trial and feeds the outcome to the
// staircase. The staircase is not touched when the trial fails before a
// scoreable response.
func (r *Runner) runTrial(ctx context.Context) (TrialRecord, error) {
	value := r.Staircase.Value()

	pair, err := r.buildPair(value)
	if err != nil {
		return TrialRecord{}, err
	}
	trial := r.Staircase.TrialCount() + 1

	if r.Archive != nil {
		if err := r.Archive.ExportTrial(string(r.TestType), trial, pair); err != nil {
			log.Warnf("trial %d: stimulus archive failed: %v", trial, err)
		}
	}

	r.mark(EventTrialStart)

	// Presentation is strictly sequential: each Play returns only once the
	// buffer has fully played.
	r.mark(EventInterval1Onset)
	if err := r.Sink.Play(ctx, pair.Interval1, r.SampleRate); err != nil {
		return TrialRecord{}, fmt.Errorf("interval 1 playback: %w", err)
	}
	if err := sleepCtx(ctx, r.ISI); err != nil {
		return TrialRecord{}, fmt.Errorf("%w: %w", ErrAborted, err)
	}
	r.mark(EventInterval2Onset)
	if err := r.Sink.Play(ctx, pair.Interval2, r.SampleRate); err != nil {
		return TrialRecord{}, fmt.Errorf("interval 2 playback: %w", err)
	}

	resp, err := r.collectResponse(ctx, trial, value, pair.Target)
	if err != nil {
		return TrialRecord{}, err
	}
	r.mark(EventResponse)

	correct := resp.Interval == pair.Target
	isReversal := r.Staircase.Update(correct)
	if isReversal {
		r.mark(EventReversal)
	}

	return TrialRecord{
		ParticipantID:    r.Participant,
		Condition:        r.Condition,
		TestType:         r.TestType,
		TrialNumber:      trial,
		StimulusValue:    value,
		TargetInterval:   pair.Target,
		ResponseInterval: resp.Interval,
		Correct:          correct,
		ReactionTime:     resp.ReactionTime,
		Reversal:         isReversal,
		Timestamp:        time.Now(),
	}, nil
}

func (r *Runner) buildPair(value float64) (stimulus.Pair, error) {
	if r.TestType == TestPitch {
		return r.Builder.PitchTrial(value)
	}
	return r.Builder.GapTrial(value)
}

// collectResponse awaits a response, retrying timeouts and uninterpretable
// answers without mutating the staircase, up to the retry limit.
func (r *Runner) collectResponse(ctx context.Context, trial int, value float64, target int) (Response, error) {
	st := Status{
		TestType:       r.TestType,
		Trial:          trial,
		Reversals:      len(r.Staircase.Reversals()),
		ReversalTarget: r.ReversalTarget,
		StimulusValue:  value,
		TargetInterval: target,
	}

	for attempt := 0; ; attempt++ {
		awaitCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.Timeout > 0 {
			awaitCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}
		resp, err := r.Responses.Await(awaitCtx, st)
		cancel()

		switch {
		case err == nil && (resp.Interval == 1 || resp.Interval == 2):
			return resp, nil
		case errors.Is(err, ErrAborted):
			return Response{}, err
		case ctx.Err() != nil:
			return Response{}, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		case err != nil && !errors.Is(err, ErrResponseTimeout) && !errors.Is(err, context.DeadlineExceeded):
			return Response{}, fmt.Errorf("response collection: %w", err)
		}

		if attempt >= r.RetryLimit {
			return Response{}, ErrResponseInvalid
		}
		log.Warnf("trial %d: uninterpretable response, prompting again (%d/%d)",
			trial, attempt+1, r.RetryLimit)
	}
}

func (r *Runner) publish(rec TrialRecord) {
	if r.Progress == nil {
		return
	}
	_ = r.Progress.Send(Progress{
		Type:           "trial",
		Condition:      string(rec.Condition),
		TestType:       string(rec.TestType),
		Trial:          rec.TrialNumber,
		StimulusValue:  rec.StimulusValue,
		Correct:        rec.Correct,
		Reversals:      len(r.Staircase.Reversals()),
		ReversalTarget: r.ReversalTarget,
	})
}

func (r *Runner) mark(code uint16) {
	if r.Markers == nil {
		return
	}
	_ = r.Markers.Mark(code)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// staircaseConfig maps a config track to the staircase package's config.
func staircaseConfig(shared config.StaircaseConfig, track config.TrackConfig) staircase.Config {
	mode := staircase.StepMultiplicative
	if track.Mode == "additive" {
		mode = staircase.StepAdditive
	}
	return staircase.Config{
		InitialValue:   track.InitialValue,
		Mode:           mode,
		Step:           track.Step,
		ShrinkRatio:    track.ShrinkRatio,
		StepFloor:      track.StepFloor,
		StepFactor:     track.StepFactor,
		Min:            track.Min,
		Max:            track.Max,
		RunLength:      shared.RunLength,
		ReversalTarget: shared.ReversalTarget,
		MaxTrials:      shared.MaxTrials,
	}
}
