// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"time"

	"audiometry/internal/config"
	"audiometry/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Sink plays mono sample buffers on a PortAudio output stream. Play blocks
// until the last frame has been handed to the device, which is what the
// trial procedure needs: interval 2 must not start while interval 1 is
// still sounding.
//
// Not safe for concurrent Play calls; the trial loop is single-threaded.
type Sink struct {
	device          *portaudio.DeviceInfo
	latency         time.Duration
	framesPerBuffer int

	stream     *portaudio.Stream
	sampleRate float64
	out        []float32 // reused write buffer
}

// NewSink selects the output device and prepares a playback sink.
// PortAudio must already be initialized.
func NewSink(cfg config.AudioConfig) (*Sink, error) {
	device, err := OutputDevice(cfg.OutputDevice)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighOutputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowOutputLatency
	}

	log.Infof("audio: output device [%s], latency %v", device.Name, latency)

	return &Sink{
		device:          device,
		latency:         latency,
		framesPerBuffer: cfg.FramesPerBuffer,
		out:             make([]float32, cfg.FramesPerBuffer),
	}, nil
}

// Play writes the buffer to the output stream in framesPerBuffer chunks and
// returns once all frames are written and the stream is drained. A canceled
// context stops playback between chunks.
func (s *Sink) Play(ctx context.Context, samples []float64, sampleRate float64) error {
	if len(samples) == 0 {
		return nil
	}
	if err := s.ensureStream(sampleRate); err != nil {
		return err
	}

	for off := 0; off < len(samples); off += s.framesPerBuffer {
		if err := ctx.Err(); err != nil {
			s.closeStream()
			return err
		}

		end := off + s.framesPerBuffer
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[off:end]

		for i, v := range chunk {
			s.out[i] = float32(v)
		}
		// A short final chunk is zero-padded; the tail is silence.
		for i := len(chunk); i < s.framesPerBuffer; i++ {
			s.out[i] = 0
		}

		if err := s.stream.Write(); err != nil {
			// Output underflow is benign here: the gap it causes falls
			// between our own writes, not inside a stimulus chunk.
			if err != portaudio.OutputUnderflowed {
				s.closeStream()
				return fmt.Errorf("failed to write to output stream: %w", err)
			}
		}
	}

	// The last chunks are still sounding in the device buffer when Write
	// returns. Wait out the output latency so a return from Play means the
	// audio has actually ended and reaction timing can start.
	if err := s.drain(ctx); err != nil {
		s.closeStream()
		return err
	}
	return nil
}

// drain waits out the device's output latency after the final write.
func (s *Sink) drain(ctx context.Context) error {
	if s.latency <= 0 {
		return nil
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the output stream if one is open.
func (s *Sink) Close() error {
	return s.closeStream()
}

// ensureStream opens a blocking output stream at the requested rate, reusing
// the current one when the rate matches.
func (s *Sink) ensureStream(sampleRate float64) error {
	if s.stream != nil && s.sampleRate == sampleRate {
		return nil
	}
	if err := s.closeStream(); err != nil {
		return err
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   s.device,
			Latency:  s.latency,
		},
		FramesPerBuffer: s.framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, &s.out)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	s.stream = stream
	s.sampleRate = sampleRate
	return nil
}

func (s *Sink) closeStream() error {
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop output stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close output stream: %w", err)
	}
	return nil
}
