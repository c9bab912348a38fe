// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"audiometry/internal/config"
	"audiometry/internal/stimulus"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVExporter archives presented stimuli as mono PCM WAV files, one file per
// interval, so a block can be reconstructed exactly offline.
type WAVExporter struct {
	dir        string
	bitDepth   int
	sampleRate int
}

// NewWAVExporter creates the output directory if needed.
func NewWAVExporter(cfg config.ExportConfig, sampleRate float64) (*WAVExporter, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &WAVExporter{
		dir:        cfg.OutputDir,
		bitDepth:   cfg.BitDepth,
		sampleRate: int(sampleRate),
	}, nil
}

// ExportTrial writes both intervals of a trial. Files are named
// "<test>_trial003_int1.wav" so a directory listing sorts in
// presentation order.
func (e *WAVExporter) ExportTrial(testType string, trial int, pair stimulus.Pair) error {
	intervals := []struct {
		n       int
		samples []float64
	}{
		{1, pair.Interval1},
		{2, pair.Interval2},
	}
	for _, iv := range intervals {
		name := fmt.Sprintf("%s_trial%03d_int%d.wav", testType, trial, iv.n)
		if err := e.writeWAV(filepath.Join(e.dir, name), iv.samples); err != nil {
			return err
		}
	}
	return nil
}

func (e *WAVExporter) writeWAV(path string, samples []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create WAV file: %w", err)
	}

	enc := wav.NewEncoder(f, e.sampleRate, e.bitDepth, 1, 1)

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  e.sampleRate,
		},
		SourceBitDepth: e.bitDepth,
		Data:           make([]int, len(samples)),
	}

	scale := float64(int(1)<<(e.bitDepth-1)) - 1
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		buf.Data[i] = int(v * scale)
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return f.Close()
}
