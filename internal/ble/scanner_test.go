package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hubblescan/internal/models"
)

func TestApplyDefaults(t *testing.T) {
	hubble := &models.Packet{ServiceUUIDs: []uint16{models.HubbleServiceUUID}}
	other := &models.Packet{LocalName: "thermometer"}

	cfg := applyDefaults(nil)
	assert.True(t, cfg.Filter(hubble))
	assert.False(t, cfg.Filter(other))

	cfg = applyDefaults(&ScanConfig{AllowNonHubble: true})
	assert.True(t, cfg.Filter(other))
	assert.False(t, cfg.Filter(nil))

	byName := func(p *models.Packet) bool { return p.LocalName == "thermometer" }
	cfg = applyDefaults(&ScanConfig{Filter: byName, AllowNonHubble: true})
	assert.True(t, cfg.Filter(other))
	assert.False(t, cfg.Filter(hubble))
}

func TestMatchesNilConfig(t *testing.T) {
	var cfg *ScanConfig
	assert.True(t, cfg.Matches(&models.Packet{
		ServiceData: []models.ServiceData{{UUID: models.HubbleServiceUUID}},
	}))
	assert.False(t, cfg.Matches(&models.Packet{}))
}

func TestNewScannerMatchesAvailability(t *testing.T) {
	s, err := NewScanner(nil)
	if Available() {
		assert.NoError(t, err)
		assert.NotNil(t, s)
	} else {
		assert.ErrorIs(t, err, ErrUnavailable)
	}
}
