// Package hubble encodes, authenticates and decrypts Hubble Network BLE
// advertisements.
//
// An advertisement is carried as 16-bit service data under ServiceUUID:
//
//	| UUID (2, LE) | addr (6) | auth tag (4) | ciphertext (0..13) |
//
// The addr field packs the protocol version (upper 6 bits of byte 0), a
// 10-bit sequence number and a 4-byte rotating device ID.
package hubble

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"

	"hubblescan/internal/models"
)

const (
	ServiceUUID = models.HubbleServiceUUID

	ProtocolVersion = 0

	AddrLen       = 6
	AuthTagLen    = 4
	DeviceIDLen   = 4
	HeaderLen     = AddrLen + AuthTagLen
	NonceLen      = 12
	MaxPayloadLen = 13

	SequenceBits = 10
	MaxSequence  = 1 << SequenceBits

	uuidPrefixLen = 2
)

var (
	ErrFrameTooShort  = errors.New("hubble: frame too short")
	ErrPayloadTooLong = errors.New("hubble: payload too long")
	ErrNotHubble      = errors.New("hubble: not a hubble service data element")
	ErrInvalidKey     = errors.New("hubble: invalid key")
	ErrInvalidInput   = errors.New("hubble: invalid input")
	ErrAuthFailed     = errors.New("hubble: authentication failed")
	ErrUnknownDevice  = errors.New("hubble: device id does not match key")
)

// Frame is a parsed Hubble advertisement, still encrypted.
type Frame struct {
	Version    uint8
	Sequence   uint16
	DeviceID   [DeviceIDLen]byte
	AuthTag    [AuthTagLen]byte
	Ciphertext []byte
}

// DeviceIDString renders the device ID as lowercase hex.
func (f Frame) DeviceIDString() string {
	return hex.EncodeToString(f.DeviceID[:])
}

// ParseFrame parses service data with the UUID prefix already removed.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if len(data) < HeaderLen {
		return f, errors.Wrapf(ErrFrameTooShort, "%d bytes, need at least %d", len(data), HeaderLen)
	}
	if len(data)-HeaderLen > MaxPayloadLen {
		return f, errors.Wrapf(ErrPayloadTooLong, "%d payload bytes", len(data)-HeaderLen)
	}

	f.Version = data[0] >> 2
	f.Sequence = uint16(data[0]&0x03)<<8 | uint16(data[1])
	copy(f.DeviceID[:], data[2:AddrLen])
	copy(f.AuthTag[:], data[AddrLen:HeaderLen])
	f.Ciphertext = append([]byte(nil), data[HeaderLen:]...)
	return f, nil
}

// ParseServiceData parses service data that still begins with the
// little-endian 16-bit UUID, as it appears in the AD structure.
func ParseServiceData(data []byte) (Frame, error) {
	if len(data) < uuidPrefixLen {
		return Frame{}, errors.Wrap(ErrFrameTooShort, "missing service uuid")
	}
	if binary.LittleEndian.Uint16(data) != ServiceUUID {
		return Frame{}, errors.Wrapf(ErrNotHubble, "uuid 0x%04X", binary.LittleEndian.Uint16(data))
	}
	return ParseFrame(data[uuidPrefixLen:])
}

// MarshalBinary encodes the frame without the UUID prefix.
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Ciphertext) > MaxPayloadLen {
		return nil, errors.Wrapf(ErrPayloadTooLong, "%d payload bytes", len(f.Ciphertext))
	}
	if f.Sequence >= MaxSequence {
		return nil, errors.Wrapf(ErrInvalidInput, "sequence %d out of range", f.Sequence)
	}
	out := make([]byte, HeaderLen+len(f.Ciphertext))
	out[0] = f.Version<<2 | uint8(f.Sequence>>8)&0x03
	out[1] = uint8(f.Sequence)
	copy(out[2:AddrLen], f.DeviceID[:])
	copy(out[AddrLen:HeaderLen], f.AuthTag[:])
	copy(out[HeaderLen:], f.Ciphertext)
	return out, nil
}

// ServiceData encodes the frame with the UUID prefix, ready to be placed in a
// BT_DATA_SVC_DATA16 AD structure.
func ServiceData(f Frame) ([]byte, error) {
	body, err := f.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, uuidPrefixLen, uuidPrefixLen+len(body))
	binary.LittleEndian.PutUint16(out, ServiceUUID)
	return append(out, body...), nil
}
