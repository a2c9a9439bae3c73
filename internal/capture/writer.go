package capture

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"

	"hubblescan/internal/models"
)

const snapLen = 256

// Writer records packets to a pcap stream.
type Writer struct {
	mu sync.Mutex
	w  *pcapgo.Writer
	n  int
}

// NewWriter writes the pcap file header and returns a writer.
func NewWriter(w io.Writer) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, LinkTypeBluetoothLELL); err != nil {
		return nil, errors.Wrap(err, "unable to write pcap header")
	}
	return &Writer{w: pw}, nil
}

// WritePacket appends pkt as an ADV_NONCONN_IND, or as an ADV_SCAN_IND
// followed by a SCAN_RSP when its fields overflow one advertisement.
func (w *Writer) WritePacket(pkt *models.Packet) error {
	advData, scanRsp, err := BuildAdvData(pkt)
	if err != nil {
		return err
	}

	addr, err := net.ParseMAC(pkt.Address)
	if err != nil || len(addr) != advAddrLen {
		// some platforms report opaque identifiers instead of MACs
		addr = make(net.HardwareAddr, advAddrLen)
	}

	frames := make([][]byte, 0, 2)
	if scanRsp == nil {
		frames = append(frames, encodeLL(advPDU{Type: PDUAdvNonconnInd, TxAdd: true, Addr: addr, AdvData: advData}))
	} else {
		frames = append(frames,
			encodeLL(advPDU{Type: PDUAdvScanInd, TxAdd: true, Addr: addr, AdvData: advData}),
			encodeLL(advPDU{Type: PDUScanRsp, TxAdd: true, Addr: addr, AdvData: scanRsp}))
	}

	ts := pkt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, frame := range frames {
		err = w.w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(frame),
			Length:        len(frame),
		}, frame)
		if err != nil {
			return errors.Wrap(err, "unable to write pcap record")
		}
	}
	w.n++
	return nil
}

// Count returns how many packets have been written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}
