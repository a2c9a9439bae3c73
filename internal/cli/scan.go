package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"hubblescan/internal/analysis"
	"hubblescan/internal/ble"
	"hubblescan/internal/hubble"
)

type ScanArgs struct {
	Timeout time.Duration
	All     bool
}

func setupScanCommand(s *settings) *cobra.Command {
	args := &ScanArgs{}

	command := &cobra.Command{
		Use:   "scan",
		Short: "wait for a single Hubble advertisement and print it",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, as []string) error {
			if !cmd.Flags().Changed("timeout") {
				args.Timeout = s.config.Timeout
			}
			if !cmd.Flags().Changed("all") {
				args.All = s.config.AllowNonHubble
			}
			dec, err := s.decoder()
			if err != nil {
				return err
			}
			scanner, err := ble.NewScanner(&ble.ScanConfig{AllowNonHubble: args.All})
			if err != nil {
				return err
			}
			return RunScan(cmd.Context(), cmd.OutOrStdout(), scanner, dec, args.Timeout)
		},
	}

	command.Flags().DurationVarP(&args.Timeout, "timeout", "t", 5*time.Second, "how long to wait for an advertisement")
	command.Flags().BoolVar(&args.All, "all", false, "accept any advertisement, not only Hubble beacons")

	return command
}

// RunScan performs one scan and prints the packet it found. A nil decoder
// prints the frame without decrypting it.
func RunScan(ctx context.Context, out io.Writer, scanner ble.Scanner, dec *hubble.Decoder, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pkt, err := scanner.Scan(ctx, timeout)
	if err != nil {
		return errors.Wrap(err, "scan failed")
	}
	if pkt == nil {
		return errors.Errorf("no BLE packet found within %.2fs", timeout.Seconds())
	}
	fmt.Fprintln(out, describe(analysis.Observe(*pkt, dec)))
	return nil
}
