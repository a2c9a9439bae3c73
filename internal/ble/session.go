package ble

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"hubblescan/internal/models"
)

// stopRetry is how often a stop is retried while the backend has not yet
// started scanning.
const stopRetry = 10 * time.Millisecond

// radio is the part of a Bluetooth adapter a scan needs.
type radio interface {
	Enable() error
	// Start scans, calling handler for every advertisement, and blocks until
	// Stop ends the scan or the backend fails.
	Start(handler func(*models.Packet)) error
	// Stop ends a running scan. It fails if no scan is running yet.
	Stop() error
}

// AdapterScanner scans with the host's Bluetooth adapter.
type AdapterScanner struct {
	mu      sync.Mutex
	radio   radio
	config  ScanConfig
	enabled bool
}

func newAdapterScanner(r radio, cfg ScanConfig) *AdapterScanner {
	return &AdapterScanner{radio: r, config: cfg}
}

func (s *AdapterScanner) enable() error {
	if s.enabled {
		return nil
	}
	if err := s.radio.Enable(); err != nil {
		return errors.Wrap(err, "unable to enable bluetooth adapter")
	}
	s.enabled = true
	logrus.Debugf("bluetooth adapter enabled")
	return nil
}

// Scan implements Scanner.
func (s *AdapterScanner) Scan(ctx context.Context, timeout time.Duration) (*models.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enable(); err != nil {
		return nil, err
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := make(chan *models.Packet, 1)
	matched := make(chan struct{})
	var once sync.Once
	done := make(chan error, 1)

	logrus.Debugf("starting BLE scan for %s", timeout)
	go func() {
		done <- s.radio.Start(func(pkt *models.Packet) {
			if scanCtx.Err() != nil || !s.config.Filter(pkt) {
				return
			}
			once.Do(func() {
				found <- pkt
				close(matched)
			})
		})
	}()

	// this goroutine is the only caller of Stop
	var err error
	select {
	case err = <-done:
	case <-matched:
		err = stopScan(s.radio, done)
	case <-scanCtx.Done():
		err = stopScan(s.radio, done)
	}

	if pkt := firstOf(found); pkt != nil {
		return pkt, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "ble scan failed")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, nil
}

// Watch implements Watcher.
func (s *AdapterScanner) Watch(ctx context.Context, handler func(*models.Packet)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enable(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.radio.Start(func(pkt *models.Packet) {
			if ctx.Err() == nil && s.config.Filter(pkt) {
				handler(pkt)
			}
		})
	}()

	select {
	case err := <-done:
		return errors.Wrap(err, "ble watch stopped")
	case <-ctx.Done():
		if err := stopScan(s.radio, done); err != nil {
			logrus.Debugf("scan ended with: %v", err)
		}
		return nil
	}
}

// stopScan stops the radio and waits for Start to return. Stop is retried
// until it succeeds, since the backend may not have begun scanning yet.
func stopScan(r radio, done <-chan error) error {
	for {
		err := r.Stop()
		if err == nil {
			return <-done
		}
		logrus.Tracef("stop scan: %v", err)

		select {
		case err := <-done:
			return err
		case <-time.After(stopRetry):
		}
	}
}

func firstOf(ch <-chan *models.Packet) *models.Packet {
	select {
	case pkt := <-ch:
		return pkt
	default:
		return nil
	}
}
