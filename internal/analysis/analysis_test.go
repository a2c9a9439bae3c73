package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubblescan/internal/hubble"
	"hubblescan/internal/models"
)

var testKey = []byte{
	0xcd, 0x15, 0xa5, 0xab, 0xc0, 0x60, 0xb6, 0x72,
	0x88, 0xa6, 0x1e, 0x44, 0xe9, 0x95, 0xba, 0x77,
}

var epoch = time.UnixMilli(20 * hubble.TimeCounterPeriod).Add(time.Hour)

func hubblePacket(t *testing.T, addr string, seq uint16, payload []byte, at time.Time) models.Packet {
	t.Helper()
	f, err := hubble.Seal(testKey, hubble.TimeCounter(at), seq, payload)
	require.NoError(t, err)
	data, err := f.MarshalBinary()
	require.NoError(t, err)
	return models.Packet{
		Timestamp:   at,
		Address:     addr,
		RSSI:        -60,
		ServiceData: []models.ServiceData{{UUID: models.HubbleServiceUUID, Data: data}},
	}
}

func decoder(t *testing.T) *hubble.Decoder {
	t.Helper()
	dec, err := hubble.NewDecoder(testKey)
	require.NoError(t, err)
	return dec
}

func TestObserve(t *testing.T) {
	dec := decoder(t)

	obs := Observe(hubblePacket(t, "aa", 3, []byte("hi"), epoch), dec)
	require.NoError(t, obs.Err)
	require.NotNil(t, obs.Frame)
	require.NotNil(t, obs.Message)
	assert.Equal(t, []byte("hi"), obs.Message.Payload)

	obs = Observe(hubblePacket(t, "aa", 3, []byte("hi"), epoch), nil)
	assert.NotNil(t, obs.Frame)
	assert.Nil(t, obs.Message)
	assert.NoError(t, obs.Err)

	obs = Observe(models.Packet{Address: "bb"}, dec)
	assert.Nil(t, obs.Frame)
	assert.NoError(t, obs.Err)

	short := models.Packet{ServiceData: []models.ServiceData{{UUID: models.HubbleServiceUUID, Data: []byte{1, 2}}}}
	obs = Observe(short, dec)
	assert.ErrorIs(t, obs.Err, hubble.ErrFrameTooShort)
	assert.Nil(t, obs.Frame)
}

func TestBeaconStats(t *testing.T) {
	stats := NewBeaconStats()
	dec := decoder(t)

	for i := 0; i < 3; i++ {
		stats.ProcessObservation(Observe(hubblePacket(t, "aa", uint16(i), []byte{byte(i)}, epoch), dec))
	}
	stats.ProcessObservation(Observe(models.Packet{Address: "bb", LocalName: "thermo", Timestamp: epoch}, dec))

	totals := stats.GetTotals()
	assert.Equal(t, int64(4), totals.Packets)
	assert.Equal(t, int64(3), totals.HubblePackets)
	assert.Equal(t, int64(3), totals.Decoded)
	assert.Equal(t, 2, totals.Beacons)

	top := stats.GetTopBeacons(10)
	require.Len(t, top, 2)
	assert.Equal(t, "aa", top[0].Address)
	assert.Equal(t, int64(3), top[0].Packets)
	assert.NotEmpty(t, top[0].DeviceID)
	assert.Equal(t, "thermo", top[1].LocalName)
	assert.Len(t, stats.GetTopBeacons(1), 1)

	log := stats.GetDeviceLog()
	require.Len(t, log, 3)
	assert.Equal(t, uint16(2), log[2].Sequence)
	assert.Equal(t, []byte{2}, log[2].Payload)
}

func TestDeviceLogIsBounded(t *testing.T) {
	stats := NewBeaconStats()
	dec := decoder(t)
	for i := 0; i < 60; i++ {
		at := epoch.Add(time.Duration(i) * time.Second)
		stats.ProcessObservation(Observe(hubblePacket(t, "aa", uint16(i), nil, at), dec))
	}
	log := stats.GetDeviceLog()
	require.Len(t, log, 50)
	assert.Equal(t, uint16(10), log[0].Sequence)
}

func TestDecodeFailuresCounted(t *testing.T) {
	stats := NewBeaconStats()
	pkt := hubblePacket(t, "aa", 1, []byte{1, 2, 3}, epoch)
	pkt.ServiceData[0].Data[hubble.HeaderLen] ^= 0xFF

	obs := Observe(pkt, decoder(t))
	assert.True(t, obs.AuthFailed())
	stats.ProcessObservation(obs)

	assert.Equal(t, int64(1), stats.GetTotals().DecodeFailures)
	alerts := stats.GetAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AnomalyAuthFailure, alerts[0].Type)
}

func TestAuthFailureThrottled(t *testing.T) {
	ad := NewAnomalyDetector(DefaultConfig())
	pkt := hubblePacket(t, "aa", 1, []byte{1}, epoch)
	pkt.ServiceData[0].Data[hubble.HeaderLen] ^= 0xFF
	obs := Observe(pkt, decoder(t))

	ad.ProcessObservation(obs)
	obs.Packet.Timestamp = epoch.Add(5 * time.Second)
	ad.ProcessObservation(obs)
	assert.Len(t, ad.GetRecentAlerts(10), 1)

	obs.Packet.Timestamp = epoch.Add(11 * time.Second)
	ad.ProcessObservation(obs)
	assert.Len(t, ad.GetRecentAlerts(10), 2)
}

func TestFloodDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FloodThreshold = 5
	ad := NewAnomalyDetector(cfg)

	for i := 0; i < 6; i++ {
		ad.ProcessObservation(Observation{Packet: models.Packet{
			Address:   "aa",
			Timestamp: epoch.Add(time.Duration(i) * 10 * time.Millisecond),
		}})
	}
	alerts := ad.GetRecentAlerts(10)
	require.Len(t, alerts, 1)
	assert.Equal(t, AnomalyFlood, alerts[0].Type)
	assert.Equal(t, "aa", alerts[0].Source)
}

func TestReplayDetection(t *testing.T) {
	ad := NewAnomalyDetector(DefaultConfig())
	dec := decoder(t)

	for _, seq := range []uint16{10, 10, 11} {
		ad.ProcessObservation(Observe(hubblePacket(t, "aa", seq, nil, epoch), dec))
	}
	assert.Empty(t, ad.GetRecentAlerts(10))

	ad.ProcessObservation(Observe(hubblePacket(t, "bb", 5, nil, epoch.Add(time.Second)), dec))
	alerts := ad.GetRecentAlerts(10)
	require.Len(t, alerts, 1)
	assert.Equal(t, AnomalyReplay, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "from 11 to 5")

	// the high-water mark survives the replayed frame
	ad.ProcessObservation(Observe(hubblePacket(t, "aa", 12, nil, epoch.Add(2*time.Second)), dec))
	assert.Len(t, ad.GetRecentAlerts(10), 1)
}

func TestReplayIgnoresWrap(t *testing.T) {
	ad := NewAnomalyDetector(DefaultConfig())
	dec := decoder(t)

	ad.ProcessObservation(Observe(hubblePacket(t, "aa", 1022, nil, epoch), dec))
	ad.ProcessObservation(Observe(hubblePacket(t, "aa", 1, nil, epoch), dec))
	assert.Empty(t, ad.GetRecentAlerts(10))
}

func TestAlertHistoryBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FloodThreshold = 0
	ad := NewAnomalyDetector(cfg)
	for i := 0; i < 30; i++ {
		ad.ProcessObservation(Observation{Packet: models.Packet{
			Address:   fmt.Sprintf("addr-%d", i),
			Timestamp: epoch,
		}})
	}
	alerts := ad.GetRecentAlerts(100)
	require.Len(t, alerts, 20)
	assert.Equal(t, "addr-29", alerts[19].Source)
}

func TestGetServiceName(t *testing.T) {
	assert.Equal(t, "Hubble", GetServiceName(models.HubbleServiceUUID))
	assert.Equal(t, "0x1234", GetServiceName(0x1234))
}
