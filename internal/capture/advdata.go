package capture

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"hubblescan/internal/models"
)

// AD structure types we read and write.
const (
	ADIncompleteUUID16 = 0x02
	ADCompleteUUID16   = 0x03
	ADShortName        = 0x08
	ADCompleteName     = 0x09
	ADServiceData16    = 0x16

	// MaxAdvDataLen is the legacy advertising payload limit.
	MaxAdvDataLen = 31
)

var (
	ErrTruncatedAD    = errors.New("capture: truncated AD structure")
	ErrAdvDataTooLong = errors.New("capture: advertising data too long")
)

// ADStructure is one length-type-value element of advertising data.
type ADStructure struct {
	Type uint8
	Data []byte
}

// ParseAdvData splits advertising data into AD structures. A zero length byte
// ends the data, as controllers pad with zeros.
func ParseAdvData(b []byte) ([]ADStructure, error) {
	var out []ADStructure
	for len(b) > 0 {
		n := int(b[0])
		if n == 0 {
			break
		}
		if len(b) < n+1 {
			return out, errors.Wrapf(ErrTruncatedAD, "length %d with %d bytes left", n, len(b)-1)
		}
		out = append(out, ADStructure{Type: b[1], Data: b[2 : n+1]})
		b = b[n+1:]
	}
	return out, nil
}

// BuildAdvData encodes the packet's service data, 16-bit UUID list and name.
// Fields are placed in order of importance (Hubble service data first) into
// the advertising data, and those that no longer fit go to the scan response.
// A name that fits in neither is shortened into the scan response.
func BuildAdvData(pkt *models.Packet) (adv, scanRsp []byte, err error) {
	fields := make([]ADStructure, 0, len(pkt.ServiceData)+2)
	for _, sd := range orderServiceData(pkt.ServiceData) {
		data := make([]byte, 2, 2+len(sd.Data))
		binary.LittleEndian.PutUint16(data, sd.UUID)
		fields = append(fields, ADStructure{Type: ADServiceData16, Data: append(data, sd.Data...)})
	}
	if len(pkt.ServiceUUIDs) > 0 {
		uuids := make([]byte, 2*len(pkt.ServiceUUIDs))
		for i, u := range pkt.ServiceUUIDs {
			binary.LittleEndian.PutUint16(uuids[2*i:], u)
		}
		fields = append(fields, ADStructure{Type: ADCompleteUUID16, Data: uuids})
	}
	if pkt.LocalName != "" {
		fields = append(fields, ADStructure{Type: ADCompleteName, Data: []byte(pkt.LocalName)})
	}

	for _, f := range fields {
		switch {
		case fits(adv, f.Data):
			adv = putAD(adv, f.Type, f.Data)
		case fits(scanRsp, f.Data):
			scanRsp = putAD(scanRsp, f.Type, f.Data)
		case f.Type == ADCompleteName && MaxAdvDataLen-len(scanRsp) > 2:
			room := MaxAdvDataLen - len(scanRsp) - 2
			scanRsp = putAD(scanRsp, ADShortName, f.Data[:room])
		default:
			return nil, nil, errors.Wrapf(ErrAdvDataTooLong, "AD type 0x%02x with %d bytes", f.Type, len(f.Data))
		}
	}
	return adv, scanRsp, nil
}

func fits(buf, data []byte) bool {
	return len(buf)+2+len(data) <= MaxAdvDataLen
}

func putAD(buf []byte, typ uint8, data []byte) []byte {
	buf = append(buf, uint8(len(data)+1), typ)
	return append(buf, data...)
}

// orderServiceData moves Hubble service data to the front.
func orderServiceData(in []models.ServiceData) []models.ServiceData {
	out := make([]models.ServiceData, 0, len(in))
	for _, sd := range in {
		if sd.UUID == models.HubbleServiceUUID {
			out = append(out, sd)
		}
	}
	for _, sd := range in {
		if sd.UUID != models.HubbleServiceUUID {
			out = append(out, sd)
		}
	}
	return out
}

// applyAdvData fills the packet fields carried in advertising data.
func applyAdvData(pkt *models.Packet, ads []ADStructure) {
	for _, ad := range ads {
		switch ad.Type {
		case ADIncompleteUUID16, ADCompleteUUID16:
			for i := 0; i+1 < len(ad.Data); i += 2 {
				pkt.ServiceUUIDs = append(pkt.ServiceUUIDs, binary.LittleEndian.Uint16(ad.Data[i:]))
			}
		case ADShortName, ADCompleteName:
			if pkt.LocalName == "" || ad.Type == ADCompleteName {
				pkt.LocalName = string(ad.Data)
			}
		case ADServiceData16:
			if len(ad.Data) < 2 {
				continue
			}
			pkt.ServiceData = append(pkt.ServiceData, models.ServiceData{
				UUID: binary.LittleEndian.Uint16(ad.Data),
				Data: append([]byte(nil), ad.Data[2:]...),
			})
		}
	}
}
