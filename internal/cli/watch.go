package cli

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hubblescan/internal/ble"
	"hubblescan/internal/capture"
	"hubblescan/internal/metrics"
	"hubblescan/internal/reporting"
	"hubblescan/internal/tui"
)

type WatchArgs struct {
	Record      string
	MetricsAddr string
	ReportDir   string
	All         bool
}

func setupWatchCommand(s *settings) *cobra.Command {
	args := &WatchArgs{}

	command := &cobra.Command{
		Use:   "watch",
		Short: "live view of nearby Hubble beacons",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, as []string) error {
			if !cmd.Flags().Changed("record") {
				args.Record = s.config.Record
			}
			if !cmd.Flags().Changed("metrics-addr") {
				args.MetricsAddr = s.config.MetricsAddr
			}
			if !cmd.Flags().Changed("report") {
				args.ReportDir = s.config.ReportDir
			}
			if !cmd.Flags().Changed("all") {
				args.All = s.config.AllowNonHubble
			}
			return RunWatch(cmd.Context(), s, args)
		},
	}

	command.Flags().StringVar(&args.Record, "record", "", "write every advertisement to this pcap file")
	command.Flags().StringVar(&args.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	command.Flags().StringVar(&args.ReportDir, "report", "", "write an HTML session report into this directory on exit")
	command.Flags().BoolVar(&args.All, "all", false, "show every advertisement, not only Hubble beacons")

	return command
}

func RunWatch(ctx context.Context, s *settings, args *WatchArgs) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dec, err := s.decoder()
	if err != nil {
		return err
	}
	scanner, err := ble.NewScanner(&ble.ScanConfig{AllowNonHubble: args.All})
	if err != nil {
		return err
	}

	p := newPipeline(dec)
	if args.Record != "" {
		f, err := os.Create(args.Record)
		if err != nil {
			return errors.Wrapf(err, "unable to create %s", args.Record)
		}
		defer f.Close()
		if p.recorder, err = capture.NewWriter(f); err != nil {
			return err
		}
	}

	if args.MetricsAddr != "" {
		server := metrics.Serve(args.MetricsAddr)
		defer server.Close()
	}

	// the TUI owns the terminal from here on
	restore, err := redirectLogs(s.logFile())
	if err != nil {
		return err
	}
	defer restore()

	program := tea.NewProgram(tui.NewBeaconModel(p.stats, "adapter"), tea.WithAltScreen())
	err = runSession(ctx, scanner, p,
		func(context.Context) error {
			_, err := program.Run()
			return errors.Wrap(err, "unable to run TUI")
		},
		func(err error) { program.Send(tui.ScanErrMsg{Err: err}) },
	)
	if err != nil {
		return err
	}

	if p.recorder != nil {
		logrus.Infof("recorded %d packets to %s", p.recorder.Count(), args.Record)
	}
	return writeReport(p, args.ReportDir)
}

// runSession feeds the watcher into p while ui runs. Once ui returns the
// watcher is cancelled and waited for, so no packet reaches the recorder
// afterwards.
func runSession(ctx context.Context, watcher ble.Watcher, p *pipeline, ui func(context.Context) error, onScanErr func(error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		if err := watcher.Watch(ctx, p.handle); err != nil && ctx.Err() == nil {
			logrus.Errorf("scan stopped: %v", err)
			onScanErr(err)
		}
	}()

	err := ui(ctx)
	cancel()
	<-scanDone
	return err
}

func writeReport(p *pipeline, dir string) error {
	if dir == "" {
		return nil
	}
	path, err := reporting.GenerateSessionReport(p.stats, "html", dir)
	if err != nil {
		return err
	}
	logrus.Infof("report written to %s", path)
	return nil
}
