package analysis

import (
	"sort"
	"sync"
	"time"
)

// BeaconStat holds stats for a single advertiser address.
type BeaconStat struct {
	Address   string
	LocalName string
	Packets   int64
	LastRSSI  int16
	LastSeen  time.Time
	// DeviceID is the last Hubble device ID seen from this address.
	DeviceID string
}

// DeviceEntry is one decoded Hubble message.
type DeviceEntry struct {
	DeviceID  string
	Sequence  uint16
	Payload   []byte
	Address   string
	Timestamp time.Time
}

// Totals summarises a session.
type Totals struct {
	Packets        int64
	HubblePackets  int64
	Decoded        int64
	DecodeFailures int64
	Beacons        int
}

// BeaconStats tracks advertisement statistics.
type BeaconStats struct {
	mu              sync.Mutex
	totals          Totals
	windowPackets   int64
	lastTick        time.Time
	beacons         map[string]*BeaconStat
	deviceLog       []DeviceEntry
	maxDeviceLog    int
	anomalyDetector *AnomalyDetector
}

// NewBeaconStats creates a new BeaconStats instance.
func NewBeaconStats() *BeaconStats {
	return &BeaconStats{
		lastTick:        time.Now(),
		beacons:         make(map[string]*BeaconStat),
		deviceLog:       make([]DeviceEntry, 0),
		maxDeviceLog:    50, // Keep last 50 decoded messages
		anomalyDetector: NewAnomalyDetector(DefaultConfig()),
	}
}

// ProcessObservation updates stats with a new observation.
func (s *BeaconStats) ProcessObservation(obs Observation) {
	s.mu.Lock()

	pkt := obs.Packet
	now := obs.Time()

	s.totals.Packets++
	s.windowPackets++

	b, ok := s.beacons[pkt.Address]
	if !ok {
		b = &BeaconStat{Address: pkt.Address}
		s.beacons[pkt.Address] = b
		s.totals.Beacons = len(s.beacons)
	}
	b.Packets++
	b.LastRSSI = pkt.RSSI
	b.LastSeen = now
	if pkt.LocalName != "" {
		b.LocalName = pkt.LocalName
	}

	if obs.Frame != nil {
		s.totals.HubblePackets++
		b.DeviceID = obs.Frame.DeviceIDString()
	}
	if obs.Err != nil && obs.Frame != nil {
		s.totals.DecodeFailures++
	}

	if obs.Message != nil {
		s.totals.Decoded++
		s.deviceLog = append(s.deviceLog, DeviceEntry{
			DeviceID:  obs.Message.DeviceIDString(),
			Sequence:  obs.Message.Sequence,
			Payload:   obs.Message.Payload,
			Address:   pkt.Address,
			Timestamp: now,
		})

		// Keep circular buffer (last N entries)
		if len(s.deviceLog) > s.maxDeviceLog {
			s.deviceLog = s.deviceLog[len(s.deviceLog)-s.maxDeviceLog:]
		}
	}
	s.mu.Unlock()

	// detector has its own mutex
	s.anomalyDetector.ProcessObservation(obs)
}

// GetRates returns the packet rate (pps) since the last call.
func (s *BeaconStats) GetRates() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	duration := now.Sub(s.lastTick).Seconds()
	if duration == 0 {
		return 0
	}

	pps := float64(s.windowPackets) / duration

	// Reset window
	s.windowPackets = 0
	s.lastTick = now

	return pps
}

// GetTotals returns the session counters.
func (s *BeaconStats) GetTotals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// GetTopBeacons returns the top N addresses by packet count.
func (s *BeaconStats) GetTopBeacons(limit int) []BeaconStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make([]BeaconStat, 0, len(s.beacons))
	for _, b := range s.beacons {
		stats = append(stats, *b)
	}

	// Sort descending by packets, then by address for a stable view
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Packets != stats[j].Packets {
			return stats[i].Packets > stats[j].Packets
		}
		return stats[i].Address < stats[j].Address
	})

	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// GetDeviceLog returns the recent decoded messages.
func (s *BeaconStats) GetDeviceLog() []DeviceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]DeviceEntry, len(s.deviceLog))
	copy(result, s.deviceLog)
	return result
}

// GetAlerts returns the five most recent alerts.
func (s *BeaconStats) GetAlerts() []Alert {
	return s.anomalyDetector.GetRecentAlerts(5)
}

// GetAllAlerts returns every retained alert.
func (s *BeaconStats) GetAllAlerts() []Alert {
	return s.anomalyDetector.GetRecentAlerts(s.anomalyDetector.maxAlerts)
}
