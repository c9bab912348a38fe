// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"audiometry/internal/log"
	"audiometry/internal/session"

	"github.com/go-audio/wav"
)

// PrimingPlayer plays pre-recorded language priming audio before each test
// block. Each condition maps to "<dir>/<condition>.wav"; stereo files are
// downmixed to mono since the sink plays one channel.
type PrimingPlayer struct {
	dir  string
	sink session.AudioSink
}

// NewPrimingPlayer verifies that a priming file exists for every condition
// up front, so a missing file fails the session before the first trial
// rather than between blocks.
func NewPrimingPlayer(dir string, sink session.AudioSink) (*PrimingPlayer, error) {
	for _, c := range []session.Condition{
		session.ConditionEnglish, session.ConditionGerman, session.ConditionBilingual,
	} {
		path := filepath.Join(dir, string(c)+".wav")
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("priming audio for %q: %w", c, err)
		}
	}
	return &PrimingPlayer{dir: dir, sink: sink}, nil
}

// Prime plays the condition's priming audio and blocks until it finishes.
func (p *PrimingPlayer) Prime(ctx context.Context, condition session.Condition) error {
	path := filepath.Join(p.dir, string(condition)+".wav")
	samples, sampleRate, err := loadWAV(path)
	if err != nil {
		return err
	}
	log.Infof("priming: playing %s (%.1fs)", path, float64(len(samples))/sampleRate)
	return p.sink.Play(ctx, samples, sampleRate)
}

// loadWAV decodes a PCM WAV file into mono float64 samples in [-1, 1].
func loadWAV(path string) ([]float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("%s: missing format information", path)
	}

	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	scale := 1.0 / (float64(int(1)<<(buf.SourceBitDepth-1)) - 1)

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) * scale
	}
	return samples, float64(buf.Format.SampleRate), nil
}
