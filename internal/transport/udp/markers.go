// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	applog "audiometry/internal/log"
)

/*
Event marker packet structure (BigEndian):

+---------------------------------------------------------------------------+
| Field           | Data Type | Size (Bytes) | Description                  |
|-----------------|-----------|--------------|------------------------------|
| Sequence Number | uint32    | 4            | Monotonically increasing     |
| Timestamp       | int64     | 8            | Nanoseconds since epoch      |
| Event Code      | uint16    | 2            | Trial event identifier       |
+---------------------------------------------------------------------------+

Markers let external lab recording equipment (EEG, eye tracking) align its
own clock with trial events. The packet is tiny on purpose: one marker per
event, sent at the moment the event occurs.
*/

// MarkerPublisher packs trial events into binary packets and sends them over
// UDP. Safe for use from a single trial loop; the sequence counter is not
// shared across publishers.
type MarkerPublisher struct {
	sender *Sender

	mu          sync.Mutex
	sequenceNum uint32
	packet      *bytes.Buffer // reused across markers
}

// NewMarkerPublisher wraps a Sender. The caller keeps ownership of the
// sender's lifetime via Close.
func NewMarkerPublisher(sender *Sender) *MarkerPublisher {
	return &MarkerPublisher{
		sender: sender,
		packet: new(bytes.Buffer),
	}
}

// Mark sends one event marker with the current timestamp. Send failures are
// logged and swallowed: a lost marker must never abort a trial.
func (p *MarkerPublisher) Mark(code uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	p.packet.Reset()

	err := binary.Write(p.packet, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packet, binary.BigEndian, code)
	}
	if err != nil {
		applog.Errorf("markers: error packing marker %d: %v", code, err)
		return nil
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		applog.Errorf("markers: error sending marker %d: %v", code, err)
	}
	return nil
}

// Close closes the underlying sender.
func (p *MarkerPublisher) Close() error {
	return p.sender.Close()
}
