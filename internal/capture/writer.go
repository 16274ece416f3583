package capture

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Endpoints describes the hosts a synthetic capture appears to be taken
// between: a phone running the controller app and the drone's access point.
type Endpoints struct {
	SrcMAC  net.HardwareAddr
	DstMAC  net.HardwareAddr
	SrcIP   net.IP
	DstIP   net.IP
	SrcPort int
	DstPort int
}

// DefaultEndpoints returns the addressing used by typical toy drones.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SrcMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		DstMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		SrcIP:   net.IPv4(192, 168, 0, 100).To4(),
		DstIP:   net.IPv4(192, 168, 0, 1).To4(),
		SrcPort: 50000,
		DstPort: DefaultPort,
	}
}

type packetWriter interface {
	WritePacket(ci gopacket.CaptureInfo, data []byte) error
}

// Writer writes UDP datagrams as Ethernet/IPv4 packets to a pcap or pcapng
// stream.
type Writer struct {
	w     packetWriter
	flush func() error
	ep    Endpoints
	buf   gopacket.SerializeBuffer
	count int
}

const snaplen = 65536

// NewWriter writes a classic pcap file header to w and returns a Writer.
func NewWriter(w io.Writer, ep Endpoints) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Writer{w: pw, ep: ep, buf: gopacket.NewSerializeBuffer()}, nil
}

// NewNgWriter writes a pcapng section header to w and returns a Writer.
// Close must be called to flush buffered blocks.
func NewNgWriter(w io.Writer, ep Endpoints) (*Writer, error) {
	nw, err := pcapgo.NewNgWriter(w, layers.LinkTypeEthernet)
	if err != nil {
		return nil, fmt.Errorf("write pcapng header: %w", err)
	}
	return &Writer{w: nw, flush: nw.Flush, ep: ep, buf: gopacket.NewSerializeBuffer()}, nil
}

// WriteUDP wraps payload in Ethernet, IPv4 and UDP headers and writes it
// with capture time ts.
func (w *Writer) WriteUDP(ts time.Time, payload []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       w.ep.SrcMAC,
		DstMAC:       w.ep.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Id:       uint16(w.count),
		Protocol: layers.IPProtocolUDP,
		SrcIP:    w.ep.SrcIP,
		DstIP:    w.ep.DstIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(w.ep.SrcPort),
		DstPort: layers.UDPPort(w.ep.DstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return fmt.Errorf("udp checksum: %w", err)
	}

	if err := w.buf.Clear(); err != nil {
		return err
	}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(w.buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("serialize packet: %w", err)
	}

	data := w.buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of packets written.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes buffered output. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.flush != nil {
		return w.flush()
	}
	return nil
}
