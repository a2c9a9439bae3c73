package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the hubblescan configuration file.
type Config struct {
	// Key is the device master key, hex or base64.
	Key string `yaml:"key"`
	// Timeout bounds a single scan.
	Timeout time.Duration `yaml:"timeout"`
	// AllowNonHubble reports every advertisement, not only Hubble beacons.
	AllowNonHubble bool `yaml:"allow_non_hubble"`
	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`
	// Record is a pcap path that watch sessions are written to.
	Record string `yaml:"record"`
	// ReportDir, when set, writes an HTML session report there at the end of
	// watch and replay sessions.
	ReportDir string `yaml:"report_dir"`
	// LogFile receives logs while the TUI owns the terminal.
	LogFile string `yaml:"log_file"`
}

const DefaultTimeout = 5 * time.Second

func applyDefaults(cfg Config) Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg
}

// Default returns the configuration used without a file.
func Default() Config {
	return applyDefaults(Config{})
}

// Load reads a YAML configuration file. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unable to parse config")
	}
	return applyDefaults(cfg), nil
}
