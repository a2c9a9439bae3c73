package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	RecordPacket("pcap")
	RecordPacket("pcap")
	RecordDecode(DecodeOK)
	SetBeacons(3)

	families, err := Gatherer().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[f.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[f.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["hubblescan_packets_total"])
	assert.Equal(t, 1.0, values["hubblescan_decode_total"])
	assert.Equal(t, 3.0, values["hubblescan_beacons"])
}
