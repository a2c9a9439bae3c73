package cli

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"hubblescan/internal/hubble"
)

type DecodeArgs struct {
	At string
}

func setupDecodeCommand(s *settings) *cobra.Command {
	args := &DecodeArgs{}

	command := &cobra.Command{
		Use:   "decode HEX",
		Short: "parse and, with a key, decrypt one Hubble service data blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, as []string) error {
			at := time.Now()
			if args.At != "" {
				var err error
				if at, err = time.Parse(time.RFC3339, args.At); err != nil {
					return errors.Wrapf(err, "unable to parse --at %q", args.At)
				}
			}
			dec, err := s.decoder()
			if err != nil {
				return err
			}
			return RunDecode(cmd.OutOrStdout(), as[0], dec, at)
		},
	}

	command.Flags().StringVar(&args.At, "at", "", "observation time (RFC3339); defaults to now")

	return command
}

var serviceDataPrefix = binary.LittleEndian.AppendUint16(nil, hubble.ServiceUUID)

// RunDecode accepts the frame with or without the little-endian UUID prefix.
func RunDecode(out io.Writer, input string, dec *hubble.Decoder, at time.Time) error {
	input = strings.TrimPrefix(strings.TrimSpace(input), "0x")
	data, err := hex.DecodeString(strings.ReplaceAll(input, ":", ""))
	if err != nil {
		return errors.Wrap(err, "unable to parse hex")
	}

	var frame hubble.Frame
	if bytes.HasPrefix(data, serviceDataPrefix) {
		frame, err = hubble.ParseServiceData(data)
	} else {
		frame, err = hubble.ParseFrame(data)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "version:    %d\n", frame.Version)
	fmt.Fprintf(out, "sequence:   %d\n", frame.Sequence)
	fmt.Fprintf(out, "device id:  %s\n", frame.DeviceIDString())
	fmt.Fprintf(out, "auth tag:   %s\n", hex.EncodeToString(frame.AuthTag[:]))
	fmt.Fprintf(out, "ciphertext: %s\n", hex.EncodeToString(frame.Ciphertext))
	if dec == nil {
		return nil
	}

	msg, err := dec.Decode(frame, at)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "counter:    %d\n", msg.TimeCounter)
	fmt.Fprintf(out, "payload:    %s\n", hex.EncodeToString(msg.Payload))
	return nil
}
