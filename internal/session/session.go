package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"audiometry/internal/config"
	"audiometry/internal/log"
	"audiometry/internal/staircase"
	"audiometry/internal/stimulus"
	"audiometry/internal/transport"

	"gonum.org/v1/gonum/stat"
)

// conditionOrders is the Latin square used to counterbalance priming order
// across participants.
var conditionOrders = [][]Condition{
	{ConditionEnglish, ConditionGerman, ConditionBilingual},
	{ConditionGerman, ConditionBilingual, ConditionEnglish},
	{ConditionBilingual, ConditionEnglish, ConditionGerman},
}

// ConditionOrder returns the priming order for a participant number,
// cycling through the Latin square rows.
func ConditionOrder(participantNum int) []Condition {
	row := conditionOrders[((participantNum-1)%3+3)%3]
	out := make([]Condition, len(row))
	copy(out, row)
	return out
}

// TestOrder returns the within-condition test order for condition index i:
// even-indexed conditions run gap first, odd-indexed run pitch first.
func TestOrder(i int) []TestType {
	if i%2 == 0 {
		return []TestType{TestGap, TestPitch}
	}
	return []TestType{TestPitch, TestGap}
}

// Store persists trial records and threshold summaries. Implementations
// must make flushed trial records durable even when the session later fails.
type Store interface {
	SaveTrials(participant string, condition Condition, testType TestType, records []TrialRecord) error
	SaveSummaries(participant string, summaries []ThresholdSummary) error
}

// Player plays the language priming audio for a condition. Implementations
// block until playback finishes.
type Player interface {
	Prime(ctx context.Context, condition Condition) error
}

// NopPlayer skips priming entirely, for headless and simulated sessions.
type NopPlayer struct{}

// Prime does nothing.
func (NopPlayer) Prime(context.Context, Condition) error { return nil }

// Controller runs a full session: priming, both tests per condition, and
// persistence, with save-what-you-have semantics on abort or device failure.
type Controller struct {
	Cfg       *config.Config
	Sink      AudioSink
	Responses ResponseSource
	Store     Store
	Player    Player

	// Optional collaborators; nil disables.
	Progress transport.Transport
	Markers  Marker
	Archive  Exporter
}

// Run executes the whole battery for the configured participant. Completed
// block summaries are persisted even when a later block fails; trial records
// of a failed block are flushed before the error propagates.
func (c *Controller) Run(ctx context.Context) error {
	participant := c.Cfg.Session.Participant
	if participant == "" {
		return errors.New("session: participant identifier is required")
	}

	seed := c.Cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	log.Infof("session start: participant=%s seed=%d", participant, seed)

	order := ConditionOrder(participantNumber(participant))
	var summaries []ThresholdSummary

	runErr := func() error {
		for i, condition := range order {
			log.Infof("condition %d/%d: %s", i+1, len(order), condition)
			if err := c.Player.Prime(ctx, condition); err != nil {
				return fmt.Errorf("priming %s: %w", condition, err)
			}

			for _, testType := range TestOrder(i) {
				summary, err := c.runBlock(ctx, participant, condition, testType, rng)
				if summary != nil {
					summaries = append(summaries, *summary)
				}
				if err != nil {
					return err
				}
			}
		}
		return nil
	}()

	// Summaries from completed blocks are saved regardless of how the
	// session ended.
	if len(summaries) > 0 {
		if err := c.Store.SaveSummaries(participant, summaries); err != nil {
			log.Errorf("saving summaries: %v", err)
			if runErr == nil {
				runErr = err
			}
		}
		printSummaryTable(summaries)
	}

	if runErr != nil {
		return runErr
	}
	log.Infof("session complete: %d blocks", len(summaries))
	return nil
}

// runBlock runs one block and persists its records. Trial records are
// flushed even when the block errors; a summary is returned only for a
// cleanly terminated staircase.
func (c *Controller) runBlock(ctx context.Context, participant string, condition Condition, testType TestType, rng *rand.Rand) (*ThresholdSummary, error) {
	track := c.Cfg.Adaptive.Gap
	if testType == TestPitch {
		track = c.Cfg.Adaptive.Pitch
	}

	runner := &Runner{
		Participant:    participant,
		Condition:      condition,
		TestType:       testType,
		Builder:        stimulus.NewBuilder(c.Cfg.Stimulus, c.Cfg.Audio.SampleRate, rng),
		Staircase:      staircase.New(staircaseConfig(c.Cfg.Adaptive, track)),
		Sink:           c.Sink,
		Responses:      c.Responses,
		ISI:            c.Cfg.Stimulus.ISI.Duration(),
		RetryLimit:     c.Cfg.Response.RetryLimit,
		Timeout:        c.Cfg.Response.Timeout.Duration(),
		SampleRate:     c.Cfg.Audio.SampleRate,
		ReversalTarget: c.Cfg.Adaptive.ReversalTarget,
		Progress:       c.Progress,
		Markers:        c.Markers,
		Archive:        c.Archive,
	}

	records, stair, runErr := runner.RunBlock(ctx)

	if len(records) > 0 {
		if err := c.Store.SaveTrials(participant, condition, testType, records); err != nil {
			log.Errorf("flushing %d trial records: %v", len(records), err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	return c.summarize(participant, condition, testType, stair), nil
}

// summarize derives the block's threshold. A block that hit the trial cap
// with too few reversals gets a partial estimate from whatever reversals
// exist, or no summary at all when there are none.
func (c *Controller) summarize(participant string, condition Condition, testType TestType, stair *staircase.Controller) *ThresholdSummary {
	reversals := stair.Reversals()
	k := c.Cfg.Adaptive.ReversalsForThreshold

	threshold, err := staircase.EstimateThreshold(reversals, k)
	if errors.Is(err, staircase.ErrInsufficientReversals) {
		if len(reversals) == 0 {
			log.Warnf("%s %s: no reversals recorded, discarding block", condition, testType)
			return nil
		}
		log.Warnf("%s %s: only %d reversals (want %d), reporting partial estimate",
			condition, testType, len(reversals), k)
		threshold = stat.Mean(reversals, nil)
	}

	log.Infof("%s %s threshold: %.4f %s", condition, testType, threshold, testType.Unit())
	return &ThresholdSummary{
		ParticipantID: participant,
		Condition:     condition,
		TestType:      testType,
		Threshold:     threshold,
		ThresholdUnit: testType.Unit(),
		NTrials:       stair.TrialCount(),
		NReversals:    len(reversals),
		Timestamp:     time.Now(),
	}
}

// participantNumber extracts the numeric part of an identifier like "P007".
// Identifiers without digits map to 1.
func participantNumber(id string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func printSummaryTable(summaries []ThresholdSummary) {
	log.Infof("%-12s %-8s %12s", "condition", "test", "threshold")
	for _, s := range summaries {
		v := s.Threshold
		unit := s.ThresholdUnit
		if s.TestType == TestGap {
			v *= 1000
			unit = "ms"
		}
		log.Infof("%-12s %-8s %9.2f %s", s.Condition, s.TestType, v, unit)
	}
}
