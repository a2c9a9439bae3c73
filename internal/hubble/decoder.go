package hubble

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

// Message is an authenticated, decrypted advertisement.
type Message struct {
	TimeCounter uint32
	Sequence    uint16
	DeviceID    [DeviceIDLen]byte
	Payload     []byte
}

// DeviceIDString renders the device ID as lowercase hex.
func (m Message) DeviceIDString() string {
	return hex.EncodeToString(m.DeviceID[:])
}

// Decoder opens advertisements produced under one master key.
type Decoder struct {
	key []byte
	// Skew is how many time counters either side of the observation time are
	// tried.
	Skew int
}

func NewDecoder(key []byte) (*Decoder, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return &Decoder{key: append([]byte(nil), key...), Skew: 1}, nil
}

// Decode authenticates and decrypts the frame as observed at time at.
//
// Counters are tried in the order c, c-1, c+1, ... A counter is only
// considered if the frame's device ID matches the one derived for it. If no
// counter yields a matching device ID the error is ErrUnknownDevice; if one
// does but its auth tag is wrong the error is ErrAuthFailed.
func (d *Decoder) Decode(f Frame, at time.Time) (Message, error) {
	base := TimeCounter(at)
	matched := false

	for _, c := range candidateCounters(base, d.Skew) {
		id, err := DeviceID(d.key, c)
		if err != nil {
			return Message{}, err
		}
		if id != f.DeviceID {
			continue
		}
		matched = true

		payload, err := Open(d.key, c, f)
		if errors.Is(err, ErrAuthFailed) {
			continue
		}
		if err != nil {
			return Message{}, err
		}
		return Message{
			TimeCounter: c,
			Sequence:    f.Sequence,
			DeviceID:    f.DeviceID,
			Payload:     payload,
		}, nil
	}

	if matched {
		return Message{}, errors.Wrapf(ErrAuthFailed, "device %s seq %d", f.DeviceIDString(), f.Sequence)
	}
	return Message{}, errors.Wrapf(ErrUnknownDevice, "device %s", f.DeviceIDString())
}

// DecodeServiceData parses and decodes service data that begins with the UUID.
func (d *Decoder) DecodeServiceData(data []byte, at time.Time) (Message, error) {
	f, err := ParseServiceData(data)
	if err != nil {
		return Message{}, err
	}
	return d.Decode(f, at)
}

func candidateCounters(base uint32, skew int) []uint32 {
	out := []uint32{base}
	for i := 1; i <= skew; i++ {
		if base >= uint32(i) {
			out = append(out, base-uint32(i))
		}
		out = append(out, base+uint32(i))
	}
	return out
}
