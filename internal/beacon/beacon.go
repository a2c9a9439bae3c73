// Package beacon broadcasts Hubble advertisements from the host adapter.
package beacon

import (
	"time"

	"github.com/pkg/errors"

	"hubblescan/internal/hubble"
)

// flagsLen is the Flags AD structure BlueZ prepends to every advertisement.
const flagsLen = 3

// MaxPayloadLen is the largest plaintext that fits in one legacy advertisement
// next to the Flags, the UUID list and the service data header. It is smaller
// than hubble.MaxPayloadLen because of the Flags field.
const MaxPayloadLen = hubble.MaxPayloadLen - flagsLen

// Config controls the advertiser.
type Config struct {
	// Rotation is how often a fresh frame (new sequence number) is built.
	// Defaults to 1m if unset or <= 0.
	Rotation time.Duration
	// Interval is the radio advertising interval.
	// Defaults to 100ms if unset or <= 0.
	Interval time.Duration
	// LocalName is optional; Hubble beacons normally omit it.
	LocalName string
}

func applyDefaults(cfg *Config) Config {
	if cfg == nil {
		return Config{Rotation: time.Minute, Interval: 100 * time.Millisecond}
	}
	out := *cfg
	if out.Rotation <= 0 {
		out.Rotation = time.Minute
	}
	if out.Interval <= 0 {
		out.Interval = 100 * time.Millisecond
	}
	return out
}

// MaxPayload is MaxPayloadLen less the room taken by LocalName.
func (c Config) MaxPayload() int {
	if c.LocalName == "" {
		return MaxPayloadLen
	}
	return MaxPayloadLen - 2 - len(c.LocalName)
}

// PayloadFunc returns the plaintext for the next frame.
type PayloadFunc func() []byte

// Static always advertises the same plaintext.
func Static(payload []byte) PayloadFunc {
	return func() []byte { return payload }
}

// nextFrame seals the next frame and returns its service data body (without
// the UUID, which the stack adds).
func nextFrame(enc *hubble.Encoder, payload PayloadFunc, limit int) ([]byte, uint16, error) {
	data := payload()
	if len(data) > limit {
		return nil, 0, errors.Wrapf(hubble.ErrPayloadTooLong, "%d bytes, advertisement has room for %d", len(data), limit)
	}
	f, err := enc.Next(data)
	if err != nil {
		return nil, 0, errors.Wrap(err, "unable to build advertisement")
	}
	body, err := f.MarshalBinary()
	if err != nil {
		return nil, 0, err
	}
	return body, f.Sequence, nil
}
