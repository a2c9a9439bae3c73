//go:build (linux || darwin || windows) && !nobluetooth

package ble

import (
	"time"

	"tinygo.org/x/bluetooth"

	"hubblescan/internal/models"
)

const backendAvailable = true

// DefaultAdapter returns the shared host adapter.
func DefaultAdapter() *bluetooth.Adapter {
	return bluetooth.DefaultAdapter
}

// adapterRadio drives a tinygo adapter.
type adapterRadio struct {
	adapter *bluetooth.Adapter
}

func newRadio() radio {
	return adapterRadio{adapter: DefaultAdapter()}
}

func (r adapterRadio) Enable() error {
	return r.adapter.Enable()
}

func (r adapterRadio) Start(handler func(*models.Packet)) error {
	return r.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		handler(convertResult(result))
	})
}

func (r adapterRadio) Stop() error {
	return r.adapter.StopScan()
}

func convertResult(result bluetooth.ScanResult) *models.Packet {
	pkt := &models.Packet{
		Timestamp: time.Now(),
		Address:   result.Address.String(),
		RSSI:      result.RSSI,
		LocalName: result.LocalName(),
		Source:    "adapter",
	}

	for _, sd := range result.ServiceData() {
		if !sd.UUID.Is16Bit() {
			continue
		}
		pkt.ServiceData = append(pkt.ServiceData, models.ServiceData{
			UUID: sd.UUID.Get16Bit(),
			Data: append([]byte(nil), sd.Data...),
		})
	}

	if result.HasServiceUUID(bluetooth.New16BitUUID(models.HubbleServiceUUID)) {
		pkt.ServiceUUIDs = append(pkt.ServiceUUIDs, models.HubbleServiceUUID)
	}
	return pkt
}
