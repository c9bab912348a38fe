// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainWaitsOutLatency(t *testing.T) {
	s := &Sink{latency: 30 * time.Millisecond}

	start := time.Now()
	require.NoError(t, s.drain(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond,
		"audio in the device buffer is still sounding until the latency has elapsed")
}

func TestDrainZeroLatencyReturnsImmediately(t *testing.T) {
	s := &Sink{}
	require.NoError(t, s.drain(context.Background()))
}

func TestDrainCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Sink{latency: time.Hour}
	start := time.Now()
	require.ErrorIs(t, s.drain(ctx), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
