package capture

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"hubblescan/internal/ble"
	"hubblescan/internal/models"
)

// FileScanner replays advertisements from a pcap stream. It satisfies
// ble.Scanner and ble.Watcher so recorded sessions can stand in for the
// adapter.
type FileScanner struct {
	r      *pcapgo.Reader
	closer io.Closer
	config ble.ScanConfig

	// one record of lookahead for scan responses
	peeked *record
	err    error
}

// OpenFile opens a pcap file for replay.
func OpenFile(path string, cfg *ble.ScanConfig) (*FileScanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open capture %s", path)
	}
	s, err := NewFileScanner(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// NewFileScanner reads a pcap stream. The link type must be
// LINKTYPE_BLUETOOTH_LE_LL.
func NewFileScanner(r io.Reader, cfg *ble.ScanConfig) (*FileScanner, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read pcap header")
	}
	if pr.LinkType() != LinkTypeBluetoothLELL {
		return nil, errors.Errorf("unsupported link type %d, want %d", pr.LinkType(), LinkTypeBluetoothLELL)
	}

	var config ble.ScanConfig
	if cfg != nil {
		config = *cfg
	}
	return &FileScanner{r: pr, config: config}, nil
}

// Close releases the underlying file, if any.
func (s *FileScanner) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// record is one decoded advertising-channel PDU.
type record struct {
	pdu advPDU
	ads []ADStructure
	ts  time.Time
}

// read returns the next advertising record, skipping records that are not
// advertising PDUs. It returns io.EOF at the end of the capture.
func (s *FileScanner) read() (record, error) {
	if s.peeked != nil {
		rec := *s.peeked
		s.peeked = nil
		return rec, nil
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return record{}, err
	}

	for {
		data, ci, err := s.r.ReadPacketData()
		if err != nil {
			return record{}, err
		}

		pdu, err := decodeLL(data)
		if err != nil {
			logrus.Tracef("skipping record: %v", err)
			continue
		}
		ads, err := ParseAdvData(pdu.AdvData)
		if err != nil {
			logrus.Debugf("skipping packet from %s: %v", pdu.Addr, err)
			continue
		}
		return record{pdu: pdu, ads: ads, ts: ci.Timestamp}, nil
	}
}

// next returns the next advertisement. A scannable advertisement directly
// followed by a scan response from the same address is merged with it.
func (s *FileScanner) next() (*models.Packet, error) {
	rec, err := s.read()
	if err != nil {
		return nil, err
	}

	pkt := &models.Packet{
		Timestamp: rec.ts,
		Address:   rec.pdu.Addr.String(),
		Source:    "pcap",
	}
	applyAdvData(pkt, rec.ads)

	if rec.pdu.Type != PDUAdvInd && rec.pdu.Type != PDUAdvScanInd {
		return pkt, nil
	}
	rsp, err := s.read()
	switch {
	case err == io.EOF:
	case err != nil:
		s.err = err
	case rsp.pdu.Type == PDUScanRsp && bytes.Equal(rsp.pdu.Addr, rec.pdu.Addr):
		applyAdvData(pkt, rsp.ads)
	default:
		s.peeked = &rsp
	}
	return pkt, nil
}

// Scan returns the next matching packet in the capture. The timeout does not
// apply to recorded data; the end of the capture yields nil, nil.
func (s *FileScanner) Scan(ctx context.Context, _ time.Duration) (*models.Packet, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pkt, err := s.next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "unable to read capture")
		}
		if s.config.Matches(pkt) {
			return pkt, nil
		}
	}
}

// Watch feeds every remaining matching packet to handler.
func (s *FileScanner) Watch(ctx context.Context, handler func(*models.Packet)) error {
	for {
		pkt, err := s.Scan(ctx, 0)
		if err != nil {
			return err
		}
		if pkt == nil {
			return nil
		}
		handler(pkt)
	}
}
