package analysis

import "fmt"

var commonServices = map[uint16]string{
	0x180A: "Device Information",
	0x180F: "Battery",
	0x181A: "Environmental Sensing",
	0xFCA6: "Hubble",
	0xFD6F: "Exposure Notification",
	0xFE9F: "Google",
	0xFEAA: "Eddystone",
	0xFEED: "Tile",
}

// GetServiceName returns the common name for a 16-bit service UUID, or the
// UUID in hex.
func GetServiceName(uuid uint16) string {
	if name, ok := commonServices[uuid]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uuid)
}
