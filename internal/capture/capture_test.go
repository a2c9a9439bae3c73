package capture

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubblescan/internal/ble"
	"hubblescan/internal/models"
)

func hubblePacket(addr string, data []byte) *models.Packet {
	return &models.Packet{
		Timestamp:    time.Unix(1700000000, 0),
		Address:      addr,
		ServiceUUIDs: []uint16{models.HubbleServiceUUID},
		ServiceData:  []models.ServiceData{{UUID: models.HubbleServiceUUID, Data: data}},
	}
}

func TestRecordAndReplay(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, w.WritePacket(&models.Packet{Address: "11:22:33:44:55:66", LocalName: "thermo"}))
	require.NoError(t, w.WritePacket(hubblePacket("C0:01:02:03:04:05", []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10})))
	assert.Equal(t, 2, w.Count())

	s, err := NewFileScanner(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)

	pkt, err := s.Scan(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, pkt)
	assert.Equal(t, "c0:01:02:03:04:05", pkt.Address)
	assert.Equal(t, "pcap", pkt.Source)
	assert.Equal(t, []uint16{models.HubbleServiceUUID}, pkt.ServiceUUIDs)
	data, ok := pkt.HubbleServiceData()
	require.True(t, ok)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, data)
	assert.True(t, pkt.Timestamp.Equal(time.Unix(1700000000, 0)))

	pkt, err = s.Scan(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, pkt)
}

func TestReplayAllowNonHubble(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(&models.Packet{Address: "11:22:33:44:55:66", LocalName: "thermo"}))
	require.NoError(t, w.WritePacket(hubblePacket("C0:01:02:03:04:05", nil)))

	s, err := NewFileScanner(&buf, &ble.ScanConfig{AllowNonHubble: true})
	require.NoError(t, err)

	var names []string
	require.NoError(t, s.Watch(context.Background(), func(p *models.Packet) {
		names = append(names, p.Address+"/"+p.LocalName)
	}))
	assert.Equal(t, []string{"11:22:33:44:55:66/thermo", "c0:01:02:03:04:05/"}, names)
}

func TestReplaySkipsNonAdvertisingRecords(t *testing.T) {
	var buf bytes.Buffer
	pw := pcapgo.NewWriter(&buf)
	require.NoError(t, pw.WriteFileHeader(snapLen, LinkTypeBluetoothLELL))

	// data channel packet
	junk := []byte{0x01, 0x02, 0x03, 0x04, 0x00, 0x00, 0, 0, 0}
	require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(junk), Length: len(junk)}, junk))

	// CONNECT_IND on the advertising channel
	conn := encodeLL(advPDU{Type: 0x5, Addr: make([]byte, 6)})
	require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(conn), Length: len(conn)}, conn))

	good, _, err := BuildAdvData(hubblePacket("", []byte{9}))
	require.NoError(t, err)
	frame := encodeLL(advPDU{Type: PDUAdvInd, Addr: []byte{1, 2, 3, 4, 5, 6}, AdvData: good})
	require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(frame), Length: len(frame)}, frame))

	s, err := NewFileScanner(&buf, nil)
	require.NoError(t, err)
	pkt, err := s.Scan(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, pkt)
	assert.Equal(t, "01:02:03:04:05:06", pkt.Address)
}

func TestReplayRejectsOtherLinkTypes(t *testing.T) {
	var buf bytes.Buffer
	pw := pcapgo.NewWriter(&buf)
	require.NoError(t, pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet))

	_, err := NewFileScanner(&buf, nil)
	assert.Error(t, err)
}

func TestReplayHonoursContext(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(hubblePacket("C0:01:02:03:04:05", nil)))

	s, err := NewFileScanner(&buf, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinkLayerAddressOrder(t *testing.T) {
	frame := encodeLL(advPDU{Type: PDUAdvNonconnInd, TxAdd: true, Addr: []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}})
	assert.Equal(t, []byte{0xD6, 0xBE, 0x89, 0x8E}, frame[:4])
	assert.Equal(t, byte(0x42), frame[4])
	assert.Equal(t, byte(6), frame[5])
	assert.Equal(t, []byte{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA}, frame[6:12])

	pdu, err := decodeLL(frame)
	require.NoError(t, err)
	assert.True(t, pdu.TxAdd)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", pdu.Addr.String())
	assert.Empty(t, pdu.AdvData)
}

func TestParseAdvData(t *testing.T) {
	ads, err := ParseAdvData([]byte{0x03, 0x03, 0xA6, 0xFC, 0x02, 0x09, 'x', 0x00, 0x00})
	require.NoError(t, err)
	require.Len(t, ads, 2)
	assert.Equal(t, uint8(ADCompleteUUID16), ads[0].Type)
	assert.Equal(t, []byte{0xA6, 0xFC}, ads[0].Data)
	assert.Equal(t, []byte("x"), ads[1].Data)

	_, err = ParseAdvData([]byte{0x05, 0x16, 0xA6})
	assert.ErrorIs(t, err, ErrTruncatedAD)
}

func TestBuildAdvDataTooLong(t *testing.T) {
	_, _, err := BuildAdvData(&models.Packet{
		ServiceData: []models.ServiceData{{UUID: models.HubbleServiceUUID, Data: make([]byte, 28)}},
	})
	assert.ErrorIs(t, err, ErrAdvDataTooLong)
}

func TestBuildAdvDataSpillsIntoScanResponse(t *testing.T) {
	frame := make([]byte, 23) // 10-byte header + 13 bytes of ciphertext
	adv, rsp, err := BuildAdvData(&models.Packet{
		ServiceUUIDs: []uint16{models.HubbleServiceUUID},
		ServiceData:  []models.ServiceData{{UUID: models.HubbleServiceUUID, Data: frame}},
		LocalName:    "thermometer",
	})
	require.NoError(t, err)
	assert.Len(t, adv, MaxAdvDataLen)
	assert.Equal(t, append([]byte{12, ADCompleteName}, "thermometer"...), rsp)

	_, rsp, err = BuildAdvData(&models.Packet{
		ServiceData: []models.ServiceData{{UUID: models.HubbleServiceUUID, Data: frame}},
		LocalName:   "a-name-that-does-not-fit-in-legacy-advertising",
	})
	require.NoError(t, err)
	require.Len(t, rsp, MaxAdvDataLen)
	assert.Equal(t, uint8(ADShortName), rsp[1])
	assert.Equal(t, "a-name-that-does-not-fit-in-l", string(rsp[2:]))
}

func TestRecordAndReplayFullFrameWithName(t *testing.T) {
	frame := make([]byte, 23)
	for i := range frame {
		frame[i] = byte(i)
	}
	pkt := hubblePacket("C0:01:02:03:04:05", frame)
	pkt.LocalName = "thermometer"

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(pkt))
	require.NoError(t, w.WritePacket(hubblePacket("D0:01:02:03:04:05", []byte{1})))
	assert.Equal(t, 2, w.Count())

	raw := bytes.NewReader(buf.Bytes())
	pr, err := pcapgo.NewReader(raw)
	require.NoError(t, err)
	var types []uint8
	for {
		data, _, err := pr.ReadPacketData()
		if err != nil {
			break
		}
		pdu, err := decodeLL(data)
		require.NoError(t, err)
		types = append(types, pdu.Type)
	}
	assert.Equal(t, []uint8{PDUAdvScanInd, PDUScanRsp, PDUAdvNonconnInd}, types)

	s, err := NewFileScanner(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)

	got, err := s.Scan(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c0:01:02:03:04:05", got.Address)
	assert.Equal(t, "thermometer", got.LocalName)
	data, ok := got.HubbleServiceData()
	require.True(t, ok)
	assert.Equal(t, frame, data)

	got, err = s.Scan(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "d0:01:02:03:04:05", got.Address)

	got, err = s.Scan(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReplayKeepsUnrelatedRecordAfterScannableAdvertisement(t *testing.T) {
	var buf bytes.Buffer
	pw := pcapgo.NewWriter(&buf)
	require.NoError(t, pw.WriteFileHeader(snapLen, LinkTypeBluetoothLELL))

	first, _, err := BuildAdvData(hubblePacket("", []byte{1}))
	require.NoError(t, err)
	second, _, err := BuildAdvData(hubblePacket("", []byte{2}))
	require.NoError(t, err)
	for i, ad := range [][]byte{first, second} {
		frame := encodeLL(advPDU{Type: PDUAdvScanInd, Addr: []byte{1, 2, 3, 4, 5, byte(i)}, AdvData: ad})
		require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(frame), Length: len(frame)}, frame))
	}

	s, err := NewFileScanner(&buf, nil)
	require.NoError(t, err)
	var addrs []string
	require.NoError(t, s.Watch(context.Background(), func(p *models.Packet) {
		addrs = append(addrs, p.Address)
	}))
	assert.Equal(t, []string{"01:02:03:04:05:00", "01:02:03:04:05:01"}, addrs)
}
