package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"hubblescan/internal/analysis"
	"hubblescan/internal/capture"
	"hubblescan/internal/hubble"
	"hubblescan/internal/metrics"
	"hubblescan/internal/models"
)

// pipeline is the per-packet path shared by watch and replay.
type pipeline struct {
	stats    *analysis.BeaconStats
	decoder  *hubble.Decoder
	recorder *capture.Writer
	// out, when set, receives one line per packet.
	out io.Writer
}

func newPipeline(dec *hubble.Decoder) *pipeline {
	return &pipeline{stats: analysis.NewBeaconStats(), decoder: dec}
}

func (p *pipeline) handle(pkt *models.Packet) {
	if pkt == nil {
		return
	}
	metrics.RecordPacket(pkt.Source)

	if p.recorder != nil {
		if err := p.recorder.WritePacket(pkt); err != nil {
			logrus.Warnf("unable to record packet from %s: %v", pkt.Address, err)
		}
	}

	obs := analysis.Observe(*pkt, p.decoder)
	if result := decodeResult(obs); result != "" {
		metrics.RecordDecode(result)
	}
	if obs.Err != nil {
		logrus.Debugf("%s: %v", pkt.Address, obs.Err)
	}

	p.stats.ProcessObservation(obs)
	metrics.SetBeacons(p.stats.GetTotals().Beacons)

	if p.out != nil {
		fmt.Fprintln(p.out, describe(obs))
	}
}

// decodeResult maps an observation to a decode metric label; packets without
// Hubble service data yield "".
func decodeResult(obs analysis.Observation) string {
	switch {
	case obs.Message != nil:
		return metrics.DecodeOK
	case obs.Frame == nil && obs.Err != nil:
		return metrics.DecodeMalformed
	case obs.Frame == nil:
		return ""
	case obs.Err == nil:
		return metrics.DecodeNoKey
	case errors.Is(obs.Err, hubble.ErrAuthFailed):
		return metrics.DecodeAuthFailed
	case errors.Is(obs.Err, hubble.ErrUnknownDevice):
		return metrics.DecodeUnknown
	default:
		return metrics.DecodeMalformed
	}
}

// describe renders an observation as a single line.
func describe(obs analysis.Observation) string {
	pkt := obs.Packet
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s rssi=%d", obs.Time().Format("15:04:05.000"), pkt.Address, pkt.RSSI)
	if pkt.LocalName != "" {
		fmt.Fprintf(&b, " name=%q", pkt.LocalName)
	}
	if len(pkt.ServiceUUIDs) > 0 {
		names := make([]string, 0, len(pkt.ServiceUUIDs))
		for _, u := range pkt.ServiceUUIDs {
			names = append(names, analysis.GetServiceName(u))
		}
		fmt.Fprintf(&b, " services=%s", strings.Join(names, ","))
	}

	switch {
	case obs.Message != nil:
		fmt.Fprintf(&b, " device=%s seq=%d payload=%s",
			obs.Message.DeviceIDString(), obs.Message.Sequence, hex.EncodeToString(obs.Message.Payload))
	case obs.Frame != nil:
		fmt.Fprintf(&b, " device=%s seq=%d ciphertext=%s",
			obs.Frame.DeviceIDString(), obs.Frame.Sequence, hex.EncodeToString(obs.Frame.Ciphertext))
	}
	if obs.Err != nil {
		fmt.Fprintf(&b, " error=%q", obs.Err.Error())
	}
	return b.String()
}
