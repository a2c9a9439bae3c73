// Package capture reads and writes BLE advertisements as pcap files with the
// LINKTYPE_BLUETOOTH_LE_LL link type, the format produced by common BLE
// sniffers.
package capture

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

// LinkTypeBluetoothLELL is LINKTYPE_BLUETOOTH_LE_LL.
const LinkTypeBluetoothLELL layers.LinkType = 251

const (
	advAccessAddress = 0x8E89BED6

	accessAddressLen = 4
	pduHeaderLen     = 2
	advAddrLen       = 6
	crcLen           = 3
)

// PDU types of the advertising channel that carry AdvA followed by AdvData.
const (
	PDUAdvInd        = 0x0
	PDUAdvNonconnInd = 0x2
	PDUScanRsp       = 0x4
	PDUAdvScanInd    = 0x6
)

var ErrNotAdvertisement = errors.New("capture: not an advertising PDU")

func carriesAdvData(pduType uint8) bool {
	switch pduType {
	case PDUAdvInd, PDUAdvNonconnInd, PDUScanRsp, PDUAdvScanInd:
		return true
	}
	return false
}

// advPDU is the advertising-channel packet as captured.
type advPDU struct {
	Type    uint8
	TxAdd   bool
	Addr    net.HardwareAddr
	AdvData []byte
}

func decodeLL(frame []byte) (advPDU, error) {
	var p advPDU
	if len(frame) < accessAddressLen+pduHeaderLen+advAddrLen {
		return p, errors.Wrapf(ErrNotAdvertisement, "frame of %d bytes", len(frame))
	}
	if binary.LittleEndian.Uint32(frame) != advAccessAddress {
		return p, errors.Wrap(ErrNotAdvertisement, "data channel access address")
	}

	hdr := frame[accessAddressLen:]
	p.Type = hdr[0] & 0x0F
	p.TxAdd = hdr[0]&0x40 != 0
	length := int(hdr[1])
	if !carriesAdvData(p.Type) {
		return p, errors.Wrapf(ErrNotAdvertisement, "pdu type 0x%x", p.Type)
	}

	payload := hdr[pduHeaderLen:]
	if len(payload) < length || length < advAddrLen {
		return p, errors.Wrapf(ErrNotAdvertisement, "pdu length %d with %d bytes", length, len(payload))
	}
	payload = payload[:length]

	// AdvA is transmitted least significant byte first
	p.Addr = make(net.HardwareAddr, advAddrLen)
	for i := 0; i < advAddrLen; i++ {
		p.Addr[i] = payload[advAddrLen-1-i]
	}
	p.AdvData = payload[advAddrLen:]
	return p, nil
}

func encodeLL(p advPDU) []byte {
	length := advAddrLen + len(p.AdvData)
	out := make([]byte, accessAddressLen+pduHeaderLen+length+crcLen)
	binary.LittleEndian.PutUint32(out, advAccessAddress)

	hdr := out[accessAddressLen:]
	hdr[0] = p.Type & 0x0F
	if p.TxAdd {
		hdr[0] |= 0x40
	}
	hdr[1] = uint8(length)

	payload := hdr[pduHeaderLen:]
	for i := 0; i < advAddrLen && i < len(p.Addr); i++ {
		payload[advAddrLen-1-i] = p.Addr[i]
	}
	copy(payload[advAddrLen:], p.AdvData)
	// CRC left zero; readers here do not check it
	return out
}
