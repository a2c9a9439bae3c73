// Package ble is the boundary between hubblescan and the host's Bluetooth LE
// stack.
package ble

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"hubblescan/internal/models"
)

// ErrUnavailable is returned when no BLE backend is compiled into the binary.
var ErrUnavailable = errors.New("ble: no bluetooth backend available")

// Scanner finds a single advertisement.
type Scanner interface {
	// Scan blocks for up to timeout and returns the first matching packet.
	// It returns nil, nil if nothing matched before the timeout elapsed.
	Scan(ctx context.Context, timeout time.Duration) (*models.Packet, error)
}

// Watcher streams every matching advertisement until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, handler func(*models.Packet)) error
}

// ScanConfig controls which advertisements a scanner reports.
type ScanConfig struct {
	// Filter decides whether a packet is reported. Defaults to Hubble packets
	// only, unless AllowNonHubble is set.
	Filter func(*models.Packet) bool
	// AllowNonHubble reports every advertisement when Filter is unset.
	AllowNonHubble bool
}

func applyDefaults(cfg *ScanConfig) ScanConfig {
	if cfg == nil {
		return ScanConfig{Filter: IsHubble}
	}

	out := *cfg
	if out.Filter == nil {
		if out.AllowNonHubble {
			out.Filter = acceptAll
		} else {
			out.Filter = IsHubble
		}
	}
	return out
}

// Matches applies the configured filter, with defaults, to pkt.
func (cfg *ScanConfig) Matches(pkt *models.Packet) bool {
	return applyDefaults(cfg).Filter(pkt)
}

// IsHubble accepts packets that advertise the Hubble service.
func IsHubble(pkt *models.Packet) bool {
	return pkt != nil && pkt.AdvertisesHubble()
}

func acceptAll(pkt *models.Packet) bool {
	return pkt != nil
}

// Available reports whether a BLE backend was compiled in.
func Available() bool {
	return backendAvailable
}

// NewScanner returns a scanner on the default adapter. The adapter is enabled
// lazily on first use, so hardware problems surface from Scan rather than
// here.
func NewScanner(cfg *ScanConfig) (*AdapterScanner, error) {
	if !backendAvailable {
		return nil, ErrUnavailable
	}
	return newAdapterScanner(newRadio(), applyDefaults(cfg)), nil
}
