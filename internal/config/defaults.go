package config

import "time"

// Default parameter values for the hearing-test battery. Stimulus and
// staircase defaults follow the bilingual hearing study protocol this tool
// was built for.
const (
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultFramesPerBuffer = 512   // Balanced latency/performance
	DefaultOutputDevice    = MinDeviceID
	DefaultLowLatency      = false

	// Gap detection stimulus: speech-band noise burst.
	DefaultNoiseLowHz    = 100.0
	DefaultNoiseHighHz   = 8000.0
	DefaultFilterOrder   = 4
	DefaultNoiseDuration = 300 * time.Millisecond
	DefaultAmplitude     = 0.3

	// Pitch discrimination stimulus.
	DefaultReferenceHz  = 500.0
	DefaultToneDuration = 250 * time.Millisecond

	DefaultFadeDuration = 10 * time.Millisecond
	DefaultISI          = 500 * time.Millisecond

	// Staircase: 3-down/1-up, multiplicative factor 1.5, threshold from the
	// last 6 of 12 reversals.
	DefaultRunLength             = 3
	DefaultStepFactor            = 1.5
	DefaultReversalTarget        = 12
	DefaultReversalsForThreshold = 6
	DefaultMaxTrials             = 150

	DefaultGapInitial   = 0.050 // seconds
	DefaultGapMin       = 0.001
	DefaultGapMax       = 0.200
	DefaultPitchInitial = 50.0 // Hz above reference
	DefaultPitchMin     = 0.1
	DefaultPitchMax     = 400.0

	DefaultRetryLimit      = 3
	DefaultResponseTimeout = 0 // untimed, respond when ready

	DefaultDataDir = "./data"

	// Hardware limits.
	MinDeviceID   = -1 // -1 represents system default device
	MinSampleRate = 8000
	MaxSampleRate = 192000
)
