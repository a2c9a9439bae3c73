package models

import "time"

// HubbleServiceUUID is the 16-bit service UUID Hubble beacons advertise under.
const HubbleServiceUUID uint16 = 0xFCA6

// ServiceData is one 16-bit service data AD element.
type ServiceData struct {
	UUID uint16
	Data []byte
}

// Packet holds the extracted information from a BLE advertisement.
type Packet struct {
	Timestamp time.Time
	Address   string
	RSSI      int16
	LocalName string

	ServiceUUIDs []uint16
	ServiceData  []ServiceData

	// Source names the backend that produced the packet ("adapter", "pcap").
	Source string
}

// HubbleServiceData returns the service data advertised under the Hubble UUID.
func (p *Packet) HubbleServiceData() ([]byte, bool) {
	for _, sd := range p.ServiceData {
		if sd.UUID == HubbleServiceUUID {
			return sd.Data, true
		}
	}
	return nil, false
}

// AdvertisesHubble reports whether the packet lists the Hubble service UUID
// or carries Hubble service data.
func (p *Packet) AdvertisesHubble() bool {
	if _, ok := p.HubbleServiceData(); ok {
		return true
	}
	for _, u := range p.ServiceUUIDs {
		if u == HubbleServiceUUID {
			return true
		}
	}
	return false
}
