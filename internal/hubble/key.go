package hubble

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// Supported master key sizes.
const (
	KeyLen128 = 16
	KeyLen256 = 32
)

// ParseKey accepts a hex or standard base64 encoded master key.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(ErrInvalidKey, "empty key")
	}

	key, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, errors.Wrap(ErrInvalidKey, "key is neither hex nor base64")
		}
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

func checkKey(key []byte) error {
	switch len(key) {
	case KeyLen128, KeyLen256:
		return nil
	case 0:
		return errors.Wrap(ErrInvalidKey, "no key")
	default:
		return errors.Wrapf(ErrInvalidKey, "%d byte key, want %d or %d", len(key), KeyLen128, KeyLen256)
	}
}
