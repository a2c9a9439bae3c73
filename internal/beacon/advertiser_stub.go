//go:build !(linux || darwin || windows) || nobluetooth

package beacon

import (
	"context"

	"hubblescan/internal/ble"
	"hubblescan/internal/hubble"
)

type Advertiser struct{}

func NewAdvertiser(*hubble.Encoder, *Config) (*Advertiser, error) {
	return nil, ble.ErrUnavailable
}

func (a *Advertiser) Run(context.Context, PayloadFunc) error {
	return ble.ErrUnavailable
}
