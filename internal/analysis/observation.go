package analysis

import (
	"time"

	"github.com/pkg/errors"

	"hubblescan/internal/hubble"
	"hubblescan/internal/models"
)

// Observation is one packet together with what could be learned from its
// Hubble frame.
type Observation struct {
	Packet models.Packet
	// Frame is set when the packet carried parseable Hubble service data.
	Frame *hubble.Frame
	// Message is set when the frame authenticated under the decoder's key.
	Message *hubble.Message
	// Err is the parse or decode error, if any.
	Err error
}

// Time returns the packet timestamp, or now if it has none.
func (o Observation) Time() time.Time {
	if o.Packet.Timestamp.IsZero() {
		return time.Now()
	}
	return o.Packet.Timestamp
}

// AuthFailed reports whether the frame matched the key's device ID but its
// auth tag did not verify.
func (o Observation) AuthFailed() bool {
	return errors.Is(o.Err, hubble.ErrAuthFailed)
}

// Observe parses the packet's Hubble frame and, with a non-nil decoder,
// authenticates and decrypts it.
func Observe(pkt models.Packet, dec *hubble.Decoder) Observation {
	obs := Observation{Packet: pkt}

	data, ok := pkt.HubbleServiceData()
	if !ok {
		return obs
	}
	frame, err := hubble.ParseFrame(data)
	if err != nil {
		obs.Err = err
		return obs
	}
	obs.Frame = &frame

	if dec == nil {
		return obs
	}
	msg, err := dec.Decode(frame, obs.Time())
	if err != nil {
		obs.Err = err
		return obs
	}
	obs.Message = &msg
	return obs
}
