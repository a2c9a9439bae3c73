package analysis

import (
	"fmt"
	"sync"
	"time"

	"hubblescan/internal/hubble"
)

// AnomalyType represents the type of anomaly detected.
type AnomalyType string

const (
	AnomalyFlood       AnomalyType = "FLOOD"
	AnomalyAuthFailure AnomalyType = "AUTH_FAILURE"
	AnomalyReplay      AnomalyType = "REPLAY"
)

// Config holds configuration for the anomaly detector.
type Config struct {
	FloodThreshold      int           // Packets per second per address
	AuthFailureCooldown time.Duration // Cooldown for auth failure alerts per address
	CleanupInterval     time.Duration // Interval for memory cleanup
	DataRetention       time.Duration // How long to keep tracking data
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		FloodThreshold:      50,
		AuthFailureCooldown: 10 * time.Second,
		CleanupInterval:     1 * time.Minute,
		DataRetention:       5 * time.Minute,
	}
}

// Alert represents a detected anomaly.
type Alert struct {
	Type      AnomalyType
	Source    string // address or device id
	Message   string // Human-readable description
	Timestamp time.Time
}

type sequenceMark struct {
	timeCounter uint32
	sequence    uint16
	seen        time.Time
}

// AnomalyDetector watches advertisements for suspicious patterns.
type AnomalyDetector struct {
	mu sync.Mutex

	config Config

	// Flood detection (per-address packet rate)
	addrPacketCount map[string]int
	addrWindow      map[string]time.Time

	// Auth failure throttling: address -> last alert time
	authAlerts map[string]time.Time

	// Replay detection: device id -> highest sequence seen
	sequences map[string]sequenceMark

	alerts    []Alert
	maxAlerts int

	lastCleanup time.Time
}

// NewAnomalyDetector creates a new anomaly detection engine.
func NewAnomalyDetector(cfg Config) *AnomalyDetector {
	return &AnomalyDetector{
		config:          cfg,
		addrPacketCount: make(map[string]int),
		addrWindow:      make(map[string]time.Time),
		authAlerts:      make(map[string]time.Time),
		sequences:       make(map[string]sequenceMark),
		alerts:          make([]Alert, 0),
		maxAlerts:       20, // Keep last 20 alerts
		lastCleanup:     time.Now(),
	}
}

// ProcessObservation analyzes an observation for anomalies.
func (ad *AnomalyDetector) ProcessObservation(obs Observation) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := obs.Time()

	if now.Sub(ad.lastCleanup) > ad.config.CleanupInterval {
		ad.cleanup(now)
		ad.lastCleanup = now
	}

	ad.detectFlood(obs, now)
	ad.detectAuthFailure(obs, now)
	ad.detectReplay(obs, now)
}

// cleanup removes old entries to prevent memory leaks.
func (ad *AnomalyDetector) cleanup(now time.Time) {
	for addr, lastAlert := range ad.authAlerts {
		if now.Sub(lastAlert) > ad.config.DataRetention {
			delete(ad.authAlerts, addr)
		}
	}

	for addr, windowStart := range ad.addrWindow {
		if now.Sub(windowStart) > ad.config.DataRetention {
			delete(ad.addrWindow, addr)
			delete(ad.addrPacketCount, addr)
		}
	}

	for id, mark := range ad.sequences {
		if now.Sub(mark.seen) > ad.config.DataRetention {
			delete(ad.sequences, id)
		}
	}
}

// detectFlood checks for a single address advertising far above normal rates.
func (ad *AnomalyDetector) detectFlood(obs Observation, now time.Time) {
	addr := obs.Packet.Address
	if addr == "" {
		return
	}

	if _, exists := ad.addrWindow[addr]; !exists {
		ad.addrWindow[addr] = now
		ad.addrPacketCount[addr] = 0
	}

	if now.Sub(ad.addrWindow[addr]) > time.Second {
		ad.addrPacketCount[addr] = 0
		ad.addrWindow[addr] = now
	}

	ad.addrPacketCount[addr]++

	if ad.addrPacketCount[addr] > ad.config.FloodThreshold {
		ad.addAlert(Alert{
			Type:      AnomalyFlood,
			Source:    addr,
			Message:   fmt.Sprintf("High advertising rate from %s: %d pps", addr, ad.addrPacketCount[addr]),
			Timestamp: now,
		})
		// Reset to avoid spam
		ad.addrPacketCount[addr] = 0
		ad.addrWindow[addr] = now
	}
}

// detectAuthFailure reports frames that carry our device ID but fail
// authentication, which indicates tampering or a corrupted relay.
func (ad *AnomalyDetector) detectAuthFailure(obs Observation, now time.Time) {
	if !obs.AuthFailed() {
		return
	}

	addr := obs.Packet.Address
	lastAlert, exists := ad.authAlerts[addr]
	if exists && now.Sub(lastAlert) <= ad.config.AuthFailureCooldown {
		return
	}

	var seq uint16
	if obs.Frame != nil {
		seq = obs.Frame.Sequence
	}
	ad.addAlert(Alert{
		Type:      AnomalyAuthFailure,
		Source:    addr,
		Message:   fmt.Sprintf("Auth tag mismatch from %s (seq %d)", addr, seq),
		Timestamp: now,
	})
	ad.authAlerts[addr] = now
}

// detectReplay flags authenticated frames whose sequence number moves
// backwards within a time counter. Beacons repeat a frame until the payload
// is refreshed, so an equal sequence is normal; a backwards step that is not
// a wrap means an old frame is being re-broadcast.
func (ad *AnomalyDetector) detectReplay(obs Observation, now time.Time) {
	if obs.Message == nil {
		return
	}
	id := obs.Message.DeviceIDString()
	cur := sequenceMark{
		timeCounter: obs.Message.TimeCounter,
		sequence:    obs.Message.Sequence,
		seen:        now,
	}

	prev, exists := ad.sequences[id]
	if !exists || prev.timeCounter != cur.timeCounter {
		ad.sequences[id] = cur
		return
	}

	if cur.sequence < prev.sequence && !isWrap(prev.sequence, cur.sequence) {
		ad.addAlert(Alert{
			Type:      AnomalyReplay,
			Source:    id,
			Message:   fmt.Sprintf("Device %s sequence went back from %d to %d via %s", id, prev.sequence, cur.sequence, obs.Packet.Address),
			Timestamp: now,
		})
		prev.seen = now
		ad.sequences[id] = prev
		return
	}

	ad.sequences[id] = cur
}

// isWrap reports whether stepping from prev to cur is more plausibly a
// sequence wrap than a step backwards.
func isWrap(prev, cur uint16) bool {
	return prev-cur > hubble.MaxSequence/2
}

// addAlert adds an alert to the history (circular buffer).
func (ad *AnomalyDetector) addAlert(alert Alert) {
	ad.alerts = append(ad.alerts, alert)

	if len(ad.alerts) > ad.maxAlerts {
		ad.alerts = ad.alerts[len(ad.alerts)-ad.maxAlerts:]
	}
}

// GetRecentAlerts returns the most recent alerts (thread-safe).
func (ad *AnomalyDetector) GetRecentAlerts(limit int) []Alert {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if len(ad.alerts) == 0 {
		return []Alert{}
	}

	// Return last N alerts (newest last)
	start := 0
	if len(ad.alerts) > limit {
		start = len(ad.alerts) - limit
	}

	result := make([]Alert, len(ad.alerts)-start)
	copy(result, ad.alerts[start:])

	return result
}
