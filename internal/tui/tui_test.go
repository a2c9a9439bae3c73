package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubblescan/internal/analysis"
	"hubblescan/internal/models"
)

func TestTickRefreshesView(t *testing.T) {
	stats := analysis.NewBeaconStats()
	stats.ProcessObservation(analysis.Observation{Packet: models.Packet{
		Address:   "c0:01:02:03:04:05",
		LocalName: "beacon-1",
		RSSI:      -48,
	}})

	m := NewBeaconModel(stats, "adapter")
	assert.Contains(t, m.View(), "Waiting for data...")

	next, cmd := m.Update(TickMsg(time.Now()))
	require.NotNil(t, cmd)
	view := next.(BeaconModel).View()
	assert.Contains(t, view, "Hubblescan - Scanning: adapter")
	assert.Contains(t, view, "c0:01:02:03:04:05")
	assert.Contains(t, view, "Advertisements: 1 (0 Hubble)")
}

func TestScanErrorShown(t *testing.T) {
	m := NewBeaconModel(analysis.NewBeaconStats(), "pcap")
	next, _ := m.Update(ScanErrMsg{Err: errors.New("adapter gone")})
	assert.Contains(t, next.(BeaconModel).View(), "Scan stopped: adapter gone")
}

func TestQuit(t *testing.T) {
	m := NewBeaconModel(analysis.NewBeaconStats(), "pcap")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "12.50 pps", formatRate(12.5))
	assert.Equal(t, "1.50 kpps", formatRate(1500))
}
