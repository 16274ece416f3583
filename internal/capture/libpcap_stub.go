//go:build !pcap
// +build !pcap

package capture

import (
	"fmt"
)

// newLibpcapReader is a stub implementation when libpcap support is disabled.
// Build with -tags=pcap to enable it.
func newLibpcapReader() (PCAPReader, error) {
	return nil, fmt.Errorf("PCAP support not enabled: rebuild with -tags=pcap to use libpcap")
}
