package tui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)
)

func (m BeaconModel) View() string {
	title := titleStyle.Render(fmt.Sprintf("Hubblescan - Scanning: %s", m.source))

	rates := fmt.Sprintf("Packet Rate: %s\nAdvertisements: %d (%d Hubble)\nDecoded: %d  Failed: %d",
		formatRate(m.pps), m.totals.Packets, m.totals.HubblePackets, m.totals.Decoded, m.totals.DecodeFailures)
	rateBox := infoStyle.Render(rates)

	var alertStrs []string
	for _, a := range m.alerts {
		alertStrs = append(alertStrs, alertStyle.Render(string(a.Type))+" "+a.Message)
	}
	if len(alertStrs) == 0 {
		alertStrs = append(alertStrs, "No alerts")
	}
	alertBox := infoStyle.Render("Alerts:\n" + strings.Join(alertStrs, "\n"))

	beaconBox := infoStyle.Render("Beacons\n" + m.table.View())

	// Last few decoded messages, newest first
	var msgStrs []string
	for i := len(m.deviceLog) - 1; i >= 0 && len(msgStrs) < 5; i-- {
		e := m.deviceLog[i]
		msgStrs = append(msgStrs, fmt.Sprintf("%s %s seq=%d %s",
			e.Timestamp.Format("15:04:05"), e.DeviceID, e.Sequence, hex.EncodeToString(e.Payload)))
	}
	if len(msgStrs) == 0 {
		msgStrs = append(msgStrs, "Waiting for data...")
	}
	msgBox := infoStyle.Render("Messages:\n" + strings.Join(msgStrs, "\n"))

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, rateBox, alertBox)
	body := lipgloss.JoinVertical(lipgloss.Left, title, row1, beaconBox, msgBox)

	if m.scanErr != nil {
		body += "\n" + alertStyle.Render("Scan stopped: "+m.scanErr.Error())
	}
	return body + "\nPress q to quit."
}

func formatRate(pps float64) string {
	if pps >= 1e3 {
		return fmt.Sprintf("%.2f kpps", pps/1e3)
	}
	return fmt.Sprintf("%.2f pps", pps)
}
