package cli

import (
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"hubblescan/internal/beacon"
	"hubblescan/internal/hubble"
)

type AdvertiseArgs struct {
	Hex      bool
	Sequence uint16
	Rotation time.Duration
	Interval time.Duration
	Name     string
}

func setupAdvertiseCommand(s *settings) *cobra.Command {
	args := &AdvertiseArgs{}

	command := &cobra.Command{
		Use:   "advertise PAYLOAD",
		Short: "broadcast an encrypted Hubble beacon from this host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, as []string) error {
			key, err := s.key()
			if err != nil {
				return err
			}
			if key == nil {
				return errors.New("advertise requires a key (--key or config)")
			}
			payload, err := parsePayload(as[0], args.Hex)
			if err != nil {
				return err
			}
			enc, err := hubble.NewEncoder(key, nil)
			if err != nil {
				return err
			}
			enc.SetSequence(args.Sequence)

			adv, err := beacon.NewAdvertiser(enc, &beacon.Config{
				Rotation:  args.Rotation,
				Interval:  args.Interval,
				LocalName: args.Name,
			})
			if err != nil {
				return err
			}
			return adv.Run(cmd.Context(), beacon.Static(payload))
		},
	}

	command.Flags().BoolVar(&args.Hex, "hex", false, "PAYLOAD is hex rather than a literal string")
	command.Flags().Uint16Var(&args.Sequence, "seq", 0, "first sequence number")
	command.Flags().DurationVar(&args.Rotation, "rotation", time.Minute, "how often to advance the sequence number")
	command.Flags().DurationVar(&args.Interval, "interval", 100*time.Millisecond, "radio advertising interval")
	command.Flags().StringVar(&args.Name, "name", "", "optional local name")

	return command
}

func parsePayload(s string, isHex bool) ([]byte, error) {
	var payload []byte
	if isHex {
		var err error
		if payload, err = hex.DecodeString(s); err != nil {
			return nil, errors.Wrap(err, "unable to parse payload hex")
		}
	} else {
		payload = []byte(s)
	}
	if len(payload) > beacon.MaxPayloadLen {
		return nil, errors.Wrapf(hubble.ErrPayloadTooLong, "%d bytes, at most %d fit in an advertisement", len(payload), beacon.MaxPayloadLen)
	}
	return payload, nil
}
