package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hubblescan/internal/analysis"
)

// TickMsg triggers a refresh from the stats.
type TickMsg time.Time

// ScanErrMsg reports that the scan backend stopped.
type ScanErrMsg struct{ Err error }

type BeaconModel struct {
	stats   *analysis.BeaconStats
	pps     float64
	totals  analysis.Totals
	beacons []analysis.BeaconStat
	table   table.Model
	source  string
	scanErr error

	deviceLog []analysis.DeviceEntry
	alerts    []analysis.Alert
}

// NewBeaconModel builds the live view; source names the scan backend shown
// in the header.
func NewBeaconModel(stats *analysis.BeaconStats, source string) BeaconModel {
	columns := []table.Column{
		{Title: "Address", Width: 20},
		{Title: "Name", Width: 14},
		{Title: "Device ID", Width: 10},
		{Title: "Packets", Width: 9},
		{Title: "RSSI", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return BeaconModel{
		stats:  stats,
		source: source,
		table:  t,
	}
}

func (m BeaconModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
