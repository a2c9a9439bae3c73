// Package bletest gates hardware BLE tests behind capability detection and
// an opt-in environment variable.
//
// A hardware test is a single call:
//
//	func TestBLEScanReturnsPacket(t *testing.T) {
//		bletest.Run(t, bletest.DefaultProbe, os.LookupEnv)
//	}
package bletest

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"hubblescan/internal/ble"
	"hubblescan/internal/models"
)

const (
	EnvEnable  = "HUBBLE_BLE_TEST"
	EnvTimeout = "HUBBLE_BLE_TIMEOUT"

	DefaultTimeoutSeconds = 5.0
)

// T is the subset of testing.TB the gate needs. Skip and Fatalf must not
// return, as with *testing.T.
type T interface {
	Helper()
	Logf(format string, args ...any)
	Skip(args ...any)
	Fatalf(format string, args ...any)
}

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Probe resolves the scan capability. It returns an error wrapping
// ble.ErrUnavailable when no backend is present.
type Probe func() (ble.Scanner, error)

// DefaultProbe resolves the compiled-in adapter backend.
func DefaultProbe() (ble.Scanner, error) {
	s, err := ble.NewScanner(nil)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Config is resolved once per test from the environment.
type Config struct {
	Enabled bool
	// TimeoutSeconds is kept as parsed so failure messages echo the
	// configured value.
	TimeoutSeconds float64
}

// Timeout converts TimeoutSeconds to a duration, saturating values (and
// NaN) that do not fit in a time.Duration.
func (c Config) Timeout() time.Duration {
	ns := c.TimeoutSeconds * float64(time.Second)
	switch {
	case math.IsNaN(ns) || ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(ns)
}

// LoadConfig reads the opt-in flag and timeout. The timeout is only parsed
// when the test is enabled; a malformed value is returned as an error
// alongside the resolved Enabled flag.
func LoadConfig(lookup LookupFunc) (Config, error) {
	cfg := Config{TimeoutSeconds: DefaultTimeoutSeconds}

	v, _ := lookup(EnvEnable)
	cfg.Enabled = v != ""
	if !cfg.Enabled {
		return cfg, nil
	}

	raw, ok := lookup(EnvTimeout)
	if !ok {
		return cfg, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return cfg, errors.Wrapf(err, "invalid %s %q", EnvTimeout, raw)
	}
	cfg.TimeoutSeconds = secs
	return cfg, nil
}

// Run applies the gates in order and performs one scan:
//
//  1. probe fails with ble.ErrUnavailable: skip
//  2. HUBBLE_BLE_TEST unset or empty: skip
//  3. HUBBLE_BLE_TIMEOUT malformed: fail
//  4. scan returns an error: fail
//  5. scan returns no packet: fail with the timeout in the message
//
// The packet is returned so callers can make further assertions.
func Run(t T, probe Probe, lookup LookupFunc) *models.Packet {
	t.Helper()

	scanner := RequireScanner(t, probe)

	cfg, err := LoadConfig(lookup)
	RequireEnabled(t, cfg)
	if err != nil {
		t.Fatalf("precondition failed: %v", err)
	}

	return AssertScan(t, scanner, cfg)
}

// RequireScanner skips the test when the capability is absent.
func RequireScanner(t T, probe Probe) ble.Scanner {
	t.Helper()

	scanner, err := probe()
	if errors.Is(err, ble.ErrUnavailable) {
		t.Skip("BLE backend not available (build on linux, darwin or windows without the nobluetooth tag)")
	}
	if err != nil {
		t.Fatalf("unable to resolve BLE scanner: %v", err)
	}
	return scanner
}

// RequireEnabled skips the test unless it was opted in.
func RequireEnabled(t T, cfg Config) {
	t.Helper()

	if !cfg.Enabled {
		t.Skip("Set " + EnvEnable + "=1 to enable BLE scan integration test")
	}
}

// AssertScan performs a single scan and fails if it produced nothing.
func AssertScan(t T, scanner ble.Scanner, cfg Config) *models.Packet {
	t.Helper()

	pkt, err := scanner.Scan(context.Background(), cfg.Timeout())
	if err != nil {
		t.Fatalf("BLE scan failed: %+v", err)
	}
	if pkt == nil {
		t.Fatalf("No BLE packet found within %.2fs", cfg.TimeoutSeconds)
	}
	t.Logf("found packet from %s (rssi %d)", pkt.Address, pkt.RSSI)
	return pkt
}
