package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"hubblescan/internal/analysis"
	"hubblescan/internal/ble"
	"hubblescan/internal/capture"
	"hubblescan/internal/hubble"
)

type ReplayArgs struct {
	ReportDir string
	All       bool
	Quiet     bool
}

func setupReplayCommand(s *settings) *cobra.Command {
	args := &ReplayArgs{}

	command := &cobra.Command{
		Use:   "replay FILE",
		Short: "decode advertisements from a recorded pcap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, as []string) error {
			if !cmd.Flags().Changed("report") {
				args.ReportDir = s.config.ReportDir
			}
			if !cmd.Flags().Changed("all") {
				args.All = s.config.AllowNonHubble
			}
			dec, err := s.decoder()
			if err != nil {
				return err
			}
			scanner, err := capture.OpenFile(as[0], &ble.ScanConfig{AllowNonHubble: args.All})
			if err != nil {
				return err
			}
			defer scanner.Close()
			return RunReplay(cmd.Context(), cmd.OutOrStdout(), scanner, dec, args)
		},
	}

	command.Flags().StringVar(&args.ReportDir, "report", "", "write an HTML session report into this directory")
	command.Flags().BoolVar(&args.All, "all", false, "include advertisements that are not Hubble beacons")
	command.Flags().BoolVarP(&args.Quiet, "quiet", "q", false, "only print the summary")

	return command
}

// RunReplay feeds every packet from the watcher through the decode pipeline
// and prints a summary.
func RunReplay(ctx context.Context, out io.Writer, watcher ble.Watcher, dec *hubble.Decoder, args *ReplayArgs) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p := newPipeline(dec)
	if !args.Quiet {
		p.out = out
	}
	if err := watcher.Watch(ctx, p.handle); err != nil {
		return err
	}

	totals := p.stats.GetTotals()
	fmt.Fprintf(out, "%d packets, %d hubble, %d decoded, %d failed, %d beacons\n",
		totals.Packets, totals.HubblePackets, totals.Decoded, totals.DecodeFailures, totals.Beacons)
	if totals.Beacons > 0 {
		fmt.Fprint(out, beaconTable(p.stats.GetTopBeacons(0)))
	}
	if alerts := p.stats.GetAllAlerts(); len(alerts) > 0 {
		fmt.Fprint(out, alertTable(alerts))
	}
	return writeReport(p, args.ReportDir)
}

func beaconTable(beacons []analysis.BeaconStat) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Address", "Name", "Device ID", "Packets", "Last RSSI"})
	for _, b := range beacons {
		table.Append([]string{b.Address, b.LocalName, b.DeviceID, strconv.FormatInt(b.Packets, 10), strconv.Itoa(int(b.LastRSSI))})
	}
	table.Render()
	return tableString.String()
}

func alertTable(alerts []analysis.Alert) string {
	tableString := &strings.Builder{}
	table := tablewriter.NewWriter(tableString)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Time", "Type", "Source", "Message"})
	for _, a := range alerts {
		table.Append([]string{a.Timestamp.Format("15:04:05"), string(a.Type), a.Source, a.Message})
	}
	table.Render()
	return tableString.String()
}
