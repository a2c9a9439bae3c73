package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func (m BeaconModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case ScanErrMsg:
		m.scanErr = msg.Err
		return m, nil

	case TickMsg:
		m.pps = m.stats.GetRates()
		m.totals = m.stats.GetTotals()
		m.beacons = m.stats.GetTopBeacons(10)
		m.deviceLog = m.stats.GetDeviceLog()
		m.alerts = m.stats.GetAlerts()

		rows := make([]table.Row, len(m.beacons))
		for i, b := range m.beacons {
			rows[i] = table.Row{
				b.Address,
				b.LocalName,
				b.DeviceID,
				fmt.Sprintf("%d", b.Packets),
				fmt.Sprintf("%d", b.LastRSSI),
			}
		}
		m.table.SetRows(rows)

		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}
