package hubble

import (
	"sync"
	"time"
)

// Encoder produces successive advertisements for one device, advancing the
// sequence number after each one. It is safe for concurrent use.
type Encoder struct {
	mu    sync.Mutex
	key   []byte
	clock func() time.Time
	seq   uint16
}

// NewEncoder returns an encoder for the master key. A nil clock uses time.Now.
func NewEncoder(key []byte, clock func() time.Time) (*Encoder, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = time.Now
	}
	return &Encoder{
		key:   append([]byte(nil), key...),
		clock: clock,
	}, nil
}

// Sequence returns the sequence number the next advertisement will carry.
func (e *Encoder) Sequence() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// SetSequence overrides the next sequence number; it is reduced modulo
// MaxSequence.
func (e *Encoder) SetSequence(seq uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq = seq % MaxSequence
}

// Next seals payload into a frame for the current time.
func (e *Encoder) Next(payload []byte) (Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq >= MaxSequence {
		e.seq = 0
	}
	f, err := Seal(e.key, TimeCounter(e.clock()), e.seq, payload)
	if err != nil {
		return Frame{}, err
	}
	e.seq = (e.seq + 1) % MaxSequence
	return f, nil
}

// Advertise returns service data, UUID prefix included, for payload.
func (e *Encoder) Advertise(payload []byte) ([]byte, error) {
	f, err := e.Next(payload)
	if err != nil {
		return nil, err
	}
	return ServiceData(f)
}
