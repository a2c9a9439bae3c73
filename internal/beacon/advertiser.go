//go:build (linux || darwin || windows) && !nobluetooth

package beacon

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"hubblescan/internal/ble"
	"hubblescan/internal/hubble"
)

// Advertiser rotates Hubble frames on the default adapter.
type Advertiser struct {
	adapter *bluetooth.Adapter
	encoder *hubble.Encoder
	config  Config
}

func NewAdvertiser(enc *hubble.Encoder, cfg *Config) (*Advertiser, error) {
	if enc == nil {
		return nil, errors.New("nil encoder")
	}
	return &Advertiser{
		adapter: ble.DefaultAdapter(),
		encoder: enc,
		config:  applyDefaults(cfg),
	}, nil
}

// Run advertises until ctx is done, building a new frame every rotation.
func (a *Advertiser) Run(ctx context.Context, payload PayloadFunc) error {
	if err := a.adapter.Enable(); err != nil {
		return errors.Wrap(err, "unable to enable bluetooth adapter")
	}
	adv := a.adapter.DefaultAdvertisement()
	uuid := bluetooth.New16BitUUID(hubble.ServiceUUID)

	ticker := time.NewTicker(a.config.Rotation)
	defer ticker.Stop()

	started := false
	defer func() {
		if started {
			if err := adv.Stop(); err != nil {
				logrus.Debugf("stop advertising: %v", err)
			}
		}
	}()

	for {
		body, seq, err := nextFrame(a.encoder, payload, a.config.MaxPayload())
		if err != nil {
			return err
		}

		if started {
			if err := adv.Stop(); err != nil {
				return errors.Wrap(err, "unable to stop advertising")
			}
			started = false
		}
		err = adv.Configure(bluetooth.AdvertisementOptions{
			LocalName:    a.config.LocalName,
			ServiceUUIDs: []bluetooth.UUID{uuid},
			ServiceData:  []bluetooth.ServiceDataElement{{UUID: uuid, Data: body}},
			Interval:     bluetooth.NewDuration(a.config.Interval),
		})
		if err != nil {
			return errors.Wrap(err, "unable to configure advertisement")
		}
		if err := adv.Start(); err != nil {
			return errors.Wrap(err, "unable to start advertising")
		}
		started = true
		logrus.Infof("advertising seq %d (%d bytes)", seq, len(body))

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
