package hubble

import (
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"
)

const (
	kdfMessageLen = 64

	labelDeviceKey     = "DeviceKey"
	labelNonceKey      = "NonceKey"
	labelEncryptionKey = "EncryptionKey"

	labelDeviceID = "DeviceID"
	labelNonce    = "Nonce"
	labelKey      = "Key"
)

// KBKDF derives outLen bytes from key using the NIST SP 800-108 counter mode
// construction with AES-CMAC as the PRF. Each PRF input is
// counter(4, BE) | label | 0x00 | context | L(4, BE, in bits).
func KBKDF(key []byte, label string, context []byte, outLen int) ([]byte, error) {
	msgLen := 4 + len(label) + 1 + len(context) + 4
	if msgLen >= kdfMessageLen {
		return nil, errors.Wrapf(ErrInvalidInput, "kdf message of %d bytes", msgLen)
	}
	if outLen <= 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "kdf output length %d", outLen)
	}

	msg := make([]byte, msgLen)
	off := 4
	off += copy(msg[off:], label)
	msg[off] = 0x00
	off++
	off += copy(msg[off:], context)
	binary.BigEndian.PutUint32(msg[off:], uint32(outLen*8))

	out := make([]byte, 0, outLen)
	for counter := uint32(1); len(out) < outLen; counter++ {
		binary.BigEndian.PutUint32(msg[:4], counter)
		prf, err := cmacSum(key, msg)
		if err != nil {
			return nil, err
		}
		remaining := outLen - len(out)
		if remaining > len(prf) {
			remaining = len(prf)
		}
		out = append(out, prf[:remaining]...)
	}
	return out, nil
}

func deriveKey(master []byte, label string, timeCounter uint32) ([]byte, error) {
	ctx := strconv.FormatUint(uint64(timeCounter), 10)
	return KBKDF(master, label, []byte(ctx), len(master))
}

func deriveValue(master []byte, keyLabel, valueLabel string, timeCounter uint32, seq uint16, n int) ([]byte, error) {
	k, err := deriveKey(master, keyLabel, timeCounter)
	if err != nil {
		return nil, err
	}
	ctx := strconv.FormatUint(uint64(seq), 10)
	return KBKDF(k, valueLabel, []byte(ctx), n)
}

// DeviceID returns the rotating device identifier for a time counter.
func DeviceID(master []byte, timeCounter uint32) ([DeviceIDLen]byte, error) {
	var id [DeviceIDLen]byte
	if err := checkKey(master); err != nil {
		return id, err
	}
	v, err := deriveValue(master, labelDeviceKey, labelDeviceID, timeCounter, 0, DeviceIDLen)
	if err != nil {
		return id, err
	}
	copy(id[:], v)
	return id, nil
}

// Nonce returns the AES-CTR nonce for a time counter and sequence number.
func Nonce(master []byte, timeCounter uint32, seq uint16) ([]byte, error) {
	if err := checkKey(master); err != nil {
		return nil, err
	}
	return deriveValue(master, labelNonceKey, labelNonce, timeCounter, seq, NonceLen)
}

// EncryptionKey returns the per-advertisement payload key.
func EncryptionKey(master []byte, timeCounter uint32, seq uint16) ([]byte, error) {
	if err := checkKey(master); err != nil {
		return nil, err
	}
	return deriveValue(master, labelEncryptionKey, labelKey, timeCounter, seq, len(master))
}
