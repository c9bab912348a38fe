// SPDX-License-Identifier: MIT
package session_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"audiometry/internal/config"
	"audiometry/internal/session"
	"audiometry/internal/staircase"
	"audiometry/internal/stimulus"
	"audiometry/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStimulusConfig() config.StimulusConfig {
	return config.StimulusConfig{
		NoiseLowHz:    100,
		NoiseHighHz:   8000,
		FilterOrder:   4,
		NoiseDuration: config.Duration(300 * time.Millisecond),
		ToneDuration:  config.Duration(250 * time.Millisecond),
		ReferenceHz:   500,
		Amplitude:     0.3,
		FadeDuration:  config.Duration(10 * time.Millisecond),
	}
}

func newGapRunner(responses session.ResponseSource) *session.Runner {
	return &session.Runner{
		Participant: "P001",
		Condition:   session.ConditionEnglish,
		TestType:    session.TestGap,
		Builder:     stimulus.NewBuilder(testStimulusConfig(), 44100, rand.New(rand.NewSource(1))),
		Staircase: staircase.New(staircase.Config{
			InitialValue:   0.050,
			Mode:           staircase.StepAdditive,
			Step:           0.010,
			Min:            0.001,
			Max:            0.200,
			RunLength:      3,
			ReversalTarget: 2,
			MaxTrials:      150,
		}),
		Sink:           utils.NullSink{},
		Responses:      responses,
		RetryLimit:     2,
		SampleRate:     44100,
		ReversalTarget: 2,
	}
}

// TestRunBlockHandTraced runs a scripted block and compares the presented
// values trial by trial with the same table used for the staircase test:
// three correct triples walk 0.050 down to 0.020, one miss flips up, one
// more triple flips down and terminates.
func TestRunBlockHandTraced(t *testing.T) {
	script := &utils.ScriptedResponder{Correct: []bool{
		true, true, true, true, true, true, true, true, true,
		false,
		true, true, true,
	}}
	r := newGapRunner(script)

	records, stair, err := r.RunBlock(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 13)

	wantValues := []float64{
		0.050, 0.050, 0.050,
		0.040, 0.040, 0.040,
		0.030, 0.030, 0.030,
		0.020,
		0.030, 0.030, 0.030,
	}
	for i, rec := range records {
		assert.InDelta(t, wantValues[i], rec.StimulusValue, 1e-12, "trial %d value", i+1)
		assert.Equal(t, i+1, rec.TrialNumber)
		assert.Equal(t, session.TestGap, rec.TestType)
		assert.Equal(t, rec.TargetInterval == rec.ResponseInterval, rec.Correct)
	}

	assert.False(t, records[8].Reversal)
	assert.True(t, records[9].Reversal, "the miss at 0.020 is the first reversal")
	assert.True(t, records[12].Reversal, "the decrease after it is the second")

	require.Equal(t, staircase.StopConverged, stair.Reason())
	est, err := staircase.EstimateThreshold(stair.Reversals(), 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, est, 1e-12)
}

func TestRunBlockPublishesProgress(t *testing.T) {
	capture := &utils.CaptureTransport{}
	r := newGapRunner(&utils.ScriptedResponder{Correct: []bool{
		true, true, true, false, true, true, true,
	}})
	r.Progress = capture

	records, _, err := r.RunBlock(context.Background())
	require.NoError(t, err)
	assert.Len(t, capture.Sent, len(records), "one progress update per trial")

	first, ok := capture.Sent[0].(session.Progress)
	require.True(t, ok)
	assert.Equal(t, "trial", first.Type)
	assert.Equal(t, "gap", first.TestType)
	assert.Equal(t, 1, first.Trial)
}

type abortingResponder struct{}

func (abortingResponder) Await(context.Context, session.Status) (session.Response, error) {
	return session.Response{}, session.ErrAborted
}

func TestRunBlockAbortFlushesPartialRecords(t *testing.T) {
	// Three correct answers, then the participant hits Escape.
	script := &utils.ScriptedResponder{Correct: []bool{true, true, true}}
	aborting := &switchingResponder{first: script, after: 3}
	r := newGapRunner(aborting)

	records, _, err := r.RunBlock(context.Background())
	require.ErrorIs(t, err, session.ErrAborted)
	assert.Len(t, records, 3, "records before the abort survive")
}

// switchingResponder forwards to first for n answers, then aborts.
type switchingResponder struct {
	first session.ResponseSource
	after int
	seen  int
}

func (s *switchingResponder) Await(ctx context.Context, st session.Status) (session.Response, error) {
	if s.seen >= s.after {
		return abortingResponder{}.Await(ctx, st)
	}
	s.seen++
	return s.first.Await(ctx, st)
}

type timeoutResponder struct{ calls int }

func (r *timeoutResponder) Await(context.Context, session.Status) (session.Response, error) {
	r.calls++
	return session.Response{}, session.ErrResponseTimeout
}

func TestRunBlockRetriesThenFails(t *testing.T) {
	responder := &timeoutResponder{}
	r := newGapRunner(responder)

	records, stair, err := r.RunBlock(context.Background())
	require.ErrorIs(t, err, session.ErrResponseInvalid)
	assert.Empty(t, records)
	assert.Equal(t, 3, responder.calls, "initial attempt plus two retries")
	assert.Equal(t, 0, stair.TrialCount(), "unanswered trials never reach the staircase")
}

func TestRunBlockCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newGapRunner(utils.PerfectResponder{})
	records, _, err := r.RunBlock(ctx)
	require.ErrorIs(t, err, session.ErrAborted)
	assert.Empty(t, records)
}
