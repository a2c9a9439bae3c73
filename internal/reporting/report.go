package reporting

import (
	"encoding/hex"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"hubblescan/internal/analysis"
)

// GenerateSessionReport writes a report of the session's activity into dir
// and returns its path. Currently supports "html" format.
func GenerateSessionReport(stats *analysis.BeaconStats, format string, dir string) (string, error) {
	if format != "html" {
		return "", errors.Errorf("unsupported format: %s", format)
	}

	now := time.Now()
	timestamp := now.Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("report_%s.html", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create report %s", filename)
	}
	defer file.Close()

	totals := stats.GetTotals()
	beacons := stats.GetTopBeacons(10)
	alerts := stats.GetAllAlerts()
	messages := stats.GetDeviceLog()

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Hubblescan Session Report - %s</title>
    <style>
        body { font-family: sans-serif; margin: 20px; color: #333; }
        h1, h2 { color: #2c3e50; }
        table { width: 100%%; border-collapse: collapse; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:nth-child(even) { background-color: #f9f9f9; }
        .summary { background: #eef; padding: 15px; border-radius: 5px; margin-bottom: 20px; }
        .alert { color: #d9534f; font-weight: bold; }
        code { font-family: monospace; }
    </style>
</head>
<body>
    <h1>Hubblescan Session Report</h1>
    <div class="summary">
        <p><strong>Date:</strong> %s</p>
        <p><strong>Advertisements:</strong> %d (%d Hubble)</p>
        <p><strong>Decoded:</strong> %d, <strong>failed:</strong> %d</p>
        <p><strong>Distinct addresses:</strong> %d</p>
    </div>

    <h2>Top 10 Beacons</h2>
    <table>
        <thead>
            <tr>
                <th>Address</th>
                <th>Name</th>
                <th>Device ID</th>
                <th>Packets</th>
                <th>Last RSSI</th>
            </tr>
        </thead>
        <tbody>
`, timestamp, now.Format(time.RFC1123), totals.Packets, totals.HubblePackets,
		totals.Decoded, totals.DecodeFailures, totals.Beacons)

	// names and addresses come off the air, so everything is escaped
	for _, beacon := range beacons {
		fmt.Fprintf(&b, "            <tr><td>%s</td><td>%s</td><td><code>%s</code></td><td>%d</td><td>%d dBm</td></tr>\n",
			html.EscapeString(beacon.Address), html.EscapeString(beacon.LocalName),
			html.EscapeString(beacon.DeviceID), beacon.Packets, beacon.LastRSSI)
	}

	b.WriteString(`        </tbody>
    </table>

    <h2>Alerts</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Type</th>
                <th>Source</th>
                <th>Message</th>
            </tr>
        </thead>
        <tbody>
`)

	if len(alerts) == 0 {
		b.WriteString("            <tr><td colspan=\"4\">No alerts triggered during this session.</td></tr>\n")
	} else {
		for _, alert := range alerts {
			fmt.Fprintf(&b, "            <tr><td>%s</td><td class=\"alert\">%s</td><td>%s</td><td>%s</td></tr>\n",
				alert.Timestamp.Format("15:04:05"), alert.Type,
				html.EscapeString(alert.Source), html.EscapeString(alert.Message))
		}
	}

	b.WriteString(`        </tbody>
    </table>

    <h2>Decoded Messages</h2>
    <table>
        <thead>
            <tr>
                <th>Time</th>
                <th>Device ID</th>
                <th>Sequence</th>
                <th>Payload</th>
                <th>Address</th>
            </tr>
        </thead>
        <tbody>
`)

	if len(messages) == 0 {
		b.WriteString("            <tr><td colspan=\"5\">No messages decoded.</td></tr>\n")
	} else {
		for _, msg := range messages {
			fmt.Fprintf(&b, "            <tr><td>%s</td><td><code>%s</code></td><td>%d</td><td><code>%s</code></td><td>%s</td></tr>\n",
				msg.Timestamp.Format("15:04:05"), msg.DeviceID, msg.Sequence,
				hex.EncodeToString(msg.Payload), html.EscapeString(msg.Address))
		}
	}

	b.WriteString(`        </tbody>
    </table>
</body>
</html>`)

	if _, err := file.WriteString(b.String()); err != nil {
		return "", errors.Wrapf(err, "unable to write report %s", filename)
	}

	return filename, nil
}
