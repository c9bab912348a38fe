package session

import "time"

// Condition is the language priming condition preceding a test block.
type Condition string

// Priming conditions of the bilingual hearing protocol.
const (
	ConditionEnglish   Condition = "english"
	ConditionGerman    Condition = "german"
	ConditionBilingual Condition = "bilingual"
)

// TestType identifies which psychoacoustic test a block runs.
type TestType string

const (
	// TestGap measures the shortest detectable silent gap in noise.
	TestGap TestType = "gap"
	// TestPitch measures the smallest detectable frequency difference.
	TestPitch TestType = "pitch"
)

// Unit returns the measurement unit of this test's stimulus parameter.
func (t TestType) Unit() string {
	if t == TestPitch {
		return "Hz"
	}
	return "seconds"
}

// TrialRecord is one row of raw trial data. Records are immutable once
// appended; the per-block sequence is append-only.
type TrialRecord struct {
	ParticipantID    string
	Condition        Condition
	TestType         TestType
	TrialNumber      int
	StimulusValue    float64
	TargetInterval   int
	ResponseInterval int
	Correct          bool
	ReactionTime     time.Duration
	Reversal         bool
	Timestamp        time.Time
}

// ThresholdSummary is one row of per-block results, computed once a block
// completes.
type ThresholdSummary struct {
	ParticipantID string
	Condition     Condition
	TestType      TestType
	Threshold     float64
	ThresholdUnit string
	NTrials       int
	NReversals    int
	Timestamp     time.Time
}

// Progress is the per-trial update published to the experimenter monitor.
type Progress struct {
	Type           string  `json:"type"`
	Condition      string  `json:"condition"`
	TestType       string  `json:"test_type"`
	Trial          int     `json:"trial"`
	StimulusValue  float64 `json:"stimulus_value"`
	Correct        bool    `json:"correct"`
	Reversals      int     `json:"reversals"`
	ReversalTarget int     `json:"reversal_target"`
}

// Event marker codes sent to external recording equipment.
const (
	EventBlockStart uint16 = iota + 1
	EventTrialStart
	EventInterval1Onset
	EventInterval2Onset
	EventResponse
	EventReversal
	EventBlockEnd
)
