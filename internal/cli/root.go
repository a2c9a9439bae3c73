package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"hubblescan/internal/config"
	"hubblescan/internal/hubble"
)

type RootFlags struct {
	ConfigPath string
	LogLevel   string
	Key        string
	LogFile    string
}

// settings is what every subcommand sees once flags and the config file have
// been merged.
type settings struct {
	flags  *RootFlags
	config config.Config
}

// key returns the master key from --key or the config file, or nil if
// neither is set.
func (s *settings) key() ([]byte, error) {
	raw := s.flags.Key
	if raw == "" {
		raw = s.config.Key
	}
	if raw == "" {
		return nil, nil
	}
	return hubble.ParseKey(raw)
}

// decoder returns a decoder for the configured key, or nil without one.
func (s *settings) decoder() (*hubble.Decoder, error) {
	key, err := s.key()
	if err != nil || key == nil {
		return nil, err
	}
	return hubble.NewDecoder(key)
}

func (s *settings) logFile() string {
	if s.flags.LogFile != "" {
		return s.flags.LogFile
	}
	return s.config.LogFile
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return errors.Wrap(SetupRootCommand().ExecuteContext(ctx), "run root command")
}

func SetupRootCommand() *cobra.Command {
	s := &settings{flags: &RootFlags{}, config: config.Default()}

	command := &cobra.Command{
		Use:           "hubblescan",
		Short:         "scan, decode and record Hubble BLE beacons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := SetUpLogger(s.flags.LogLevel); err != nil {
				return err
			}
			cfg, err := config.Load(s.flags.ConfigPath)
			if err != nil {
				return err
			}
			s.config = cfg
			return nil
		},
	}

	command.PersistentFlags().StringVarP(&s.flags.ConfigPath, "config", "c", "", "path to a YAML config file")
	command.PersistentFlags().StringVarP(&s.flags.LogLevel, "log-level", "v", "info", "log level; one of [trace, debug, info, warn, error, fatal, panic]")
	command.PersistentFlags().StringVarP(&s.flags.Key, "key", "k", "", "device master key, hex or base64 (overrides the config file)")
	command.PersistentFlags().StringVar(&s.flags.LogFile, "log-file", "", "write logs here while the TUI is running")

	command.AddCommand(setupScanCommand(s))
	command.AddCommand(setupWatchCommand(s))
	command.AddCommand(setupReplayCommand(s))
	command.AddCommand(setupDecodeCommand(s))
	command.AddCommand(setupAdvertiseCommand(s))

	return command
}

func SetUpLogger(logLevelStr string) error {
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return errors.Wrapf(err, "unable to parse the specified log level: '%s'", logLevelStr)
	}
	logrus.SetLevel(logLevel)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.Debugf("log level set to %s", logrus.GetLevel())
	return nil
}

// redirectLogs points logrus at path, or discards it when path is empty.
// The returned func restores stderr.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		logrus.SetOutput(io.Discard)
		return func() { logrus.SetOutput(os.Stderr) }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open log file %s", path)
	}
	logrus.SetOutput(f)
	return func() {
		logrus.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
