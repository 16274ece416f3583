//go:build pcap
// +build pcap

package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket/pcap"
)

// libpcapReader reads captures through libpcap, which also supports BPF
// filters. This reader is only available when building with the 'pcap' tag.
type libpcapReader struct {
	handle *pcap.Handle
}

func newLibpcapReader() (PCAPReader, error) {
	return &libpcapReader{}, nil
}

func (r *libpcapReader) Open(filename string) error {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", filename, err)
	}
	r.handle = handle
	return nil
}

func (r *libpcapReader) SetBPFFilter(filter string) error {
	if r.handle == nil {
		return errors.New("capture not open")
	}
	if err := r.handle.SetBPFFilter(filter); err != nil {
		return fmt.Errorf("failed to set BPF filter '%s': %w", filter, err)
	}
	return nil
}

func (r *libpcapReader) NextPacket() (*PCAPPacket, error) {
	if r.handle == nil {
		return nil, errors.New("capture not open")
	}
	data, ci, err := r.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return &PCAPPacket{Data: data, Timestamp: ci.Timestamp}, nil
}

func (r *libpcapReader) Close() {
	if r.handle != nil {
		r.handle.Close()
		r.handle = nil
	}
}

func (r *libpcapReader) LinkType() int {
	if r.handle == nil {
		return 0
	}
	return int(r.handle.LinkType())
}
