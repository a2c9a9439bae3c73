package hubble

import (
	"crypto/aes"

	"github.com/aead/cmac"
	"github.com/pkg/errors"
)

// cmacSum computes AES-CMAC (RFC 4493) over msg. The key selects AES-128 or
// AES-256 by its length.
func cmacSum(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidKey, "cmac: %v", err)
	}
	tag, err := cmac.Sum(msg, block, aes.BlockSize)
	if err != nil {
		return nil, errors.Wrap(err, "cmac")
	}
	return tag, nil
}
