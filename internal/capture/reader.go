// Package capture reads packet captures and yields the UDP payloads seen on
// the drone control port.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

var (
	// ErrUnsupportedFormat is returned when a file is neither pcap nor pcapng.
	ErrUnsupportedFormat = errors.New("unsupported capture format")

	// ErrFilterUnsupported is returned by readers that cannot apply BPF
	// filters. Port filtering still happens in Walk.
	ErrFilterUnsupported = errors.New("BPF filters require libpcap")
)

// File magic numbers, read little-endian.
const (
	magicPcapngSection  = 0x0a0d0d0a
	magicPcapMicros     = 0xa1b2c3d4
	magicPcapMicrosSwap = 0xd4c3b2a1
	magicPcapNanos      = 0xa1b23c4d
	magicPcapNanosSwap  = 0x4d3cb2a1
)

// PCAPPacket represents a single packet read from a capture file.
type PCAPPacket struct {
	Data      []byte
	Timestamp time.Time
}

// PCAPReader defines an interface for reading packets from capture files.
// This abstraction enables unit testing without real capture files.
type PCAPReader interface {
	// Open opens a capture file for reading.
	Open(filename string) error

	// SetBPFFilter sets a BPF filter on the reader.
	SetBPFFilter(filter string) error

	// NextPacket returns the next packet. It returns nil, io.EOF when no
	// more packets are available.
	NextPacket() (*PCAPPacket, error)

	// Close releases the reader's resources.
	Close()

	// LinkType returns the link type of the capture.
	LinkType() int
}

// NewReader returns a libpcap-backed reader when useLibpcap is set and the
// pure-Go pcap/pcapng reader otherwise.
func NewReader(useLibpcap bool) (PCAPReader, error) {
	if useLibpcap {
		return newLibpcapReader()
	}
	return &FileReader{}, nil
}

type packetDataSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// FileReader reads classic pcap and pcapng files without cgo.
type FileReader struct {
	f        *os.File
	src      packetDataSource
	linkType int
	format   string
}

// Open detects the capture format from its magic number and prepares the
// matching gopacket reader.
func (r *FileReader) Open(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open capture %s: %w", filename, err)
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return fmt.Errorf("read capture header %s: %w", filename, err)
	}

	switch binary.LittleEndian.Uint32(magic) {
	case magicPcapngSection:
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return fmt.Errorf("open pcapng %s: %w", filename, err)
		}
		r.src = ng
		r.linkType = int(ng.LinkType())
		r.format = "pcapng"
	case magicPcapMicros, magicPcapMicrosSwap, magicPcapNanos, magicPcapNanosSwap:
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			f.Close()
			return fmt.Errorf("open pcap %s: %w", filename, err)
		}
		r.src = pr
		r.linkType = int(pr.LinkType())
		r.format = "pcap"
	default:
		f.Close()
		return fmt.Errorf("%s: %w (magic %x)", filename, ErrUnsupportedFormat, magic)
	}

	r.f = f
	return nil
}

// SetBPFFilter always fails: pcapgo has no BPF support.
func (r *FileReader) SetBPFFilter(filter string) error {
	return ErrFilterUnsupported
}

// NextPacket returns the next packet or io.EOF.
func (r *FileReader) NextPacket() (*PCAPPacket, error) {
	if r.src == nil {
		return nil, errors.New("capture not open")
	}
	data, ci, err := r.src.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return &PCAPPacket{Data: data, Timestamp: ci.Timestamp}, nil
}

// Close closes the underlying file.
func (r *FileReader) Close() {
	if r.f != nil {
		r.f.Close()
		r.f = nil
	}
	r.src = nil
}

// LinkType returns the link type of the capture.
func (r *FileReader) LinkType() int {
	return r.linkType
}

// Format returns "pcap" or "pcapng" once the file is open.
func (r *FileReader) Format() string {
	return r.format
}
