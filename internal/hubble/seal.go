package hubble

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"time"

	"github.com/pkg/errors"
)

// TimeCounterPeriod is the key rotation period in milliseconds.
const TimeCounterPeriod = 86400000

// TimeCounter returns the daily key rotation counter for t. Times before the
// Unix epoch map to counter 0.
func TimeCounter(t time.Time) uint32 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint32(uint64(ms) / TimeCounterPeriod)
}

// Seal encrypts payload into a frame for the given time counter and sequence
// number.
func Seal(master []byte, timeCounter uint32, seq uint16, payload []byte) (Frame, error) {
	var f Frame
	if len(payload) > MaxPayloadLen {
		return f, errors.Wrapf(ErrPayloadTooLong, "%d payload bytes", len(payload))
	}
	if seq >= MaxSequence {
		return f, errors.Wrapf(ErrInvalidInput, "sequence %d out of range", seq)
	}

	id, err := DeviceID(master, timeCounter)
	if err != nil {
		return f, err
	}
	ct, err := crypt(master, timeCounter, seq, payload)
	if err != nil {
		return f, err
	}
	tag, err := authTag(master, timeCounter, seq, ct)
	if err != nil {
		return f, err
	}

	f.Version = ProtocolVersion
	f.Sequence = seq
	f.DeviceID = id
	f.AuthTag = tag
	f.Ciphertext = ct
	return f, nil
}

// Verify checks the frame's auth tag for a time counter.
func Verify(master []byte, timeCounter uint32, f Frame) error {
	tag, err := authTag(master, timeCounter, f.Sequence, f.Ciphertext)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(tag[:], f.AuthTag[:]) != 1 {
		return ErrAuthFailed
	}
	return nil
}

// Open verifies and decrypts the frame for a time counter.
func Open(master []byte, timeCounter uint32, f Frame) ([]byte, error) {
	if err := Verify(master, timeCounter, f); err != nil {
		return nil, err
	}
	return crypt(master, timeCounter, f.Sequence, f.Ciphertext)
}

// crypt runs AES-CTR over data; the IV is the derived nonce followed by a
// zero block counter.
func crypt(master []byte, timeCounter uint32, seq uint16, data []byte) ([]byte, error) {
	key, err := EncryptionKey(master, timeCounter, seq)
	if err != nil {
		return nil, err
	}
	nonce, err := Nonce(master, timeCounter, seq)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create payload cipher")
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, nonce)

	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}

func authTag(master []byte, timeCounter uint32, seq uint16, ciphertext []byte) ([AuthTagLen]byte, error) {
	var tag [AuthTagLen]byte
	key, err := EncryptionKey(master, timeCounter, seq)
	if err != nil {
		return tag, err
	}
	mac, err := cmacSum(key, ciphertext)
	if err != nil {
		return tag, err
	}
	copy(tag[:], mac)
	return tag, nil
}
