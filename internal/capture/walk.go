package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/banshee-data/rcintent/internal/monitoring"
)

// DefaultPort is the UDP port toy drone controllers send control frames to.
const DefaultPort = 8800

// ErrStop may be returned by a Handler to end the walk early without error.
var ErrStop = errors.New("stop walk")

// Handler receives one UDP payload and its capture time in seconds.
type Handler func(ts float64, payload []byte) error

// WalkStats counts what Walk saw.
type WalkStats struct {
	Packets int `json:"packets"`     // packets read from the capture
	UDP     int `json:"udp_packets"` // packets with a UDP layer
	Matched int `json:"matched"`     // UDP packets on the port with a payload
}

// Walk reads every packet from reader and calls fn, in capture order, for
// each UDP payload whose source or destination port equals port. Packets
// without IP/UDP layers and empty payloads are skipped. A BPF filter for the
// port is requested first; readers that cannot filter fall back to the
// in-process port match.
func Walk(ctx context.Context, reader PCAPReader, port int, fn Handler) (WalkStats, error) {
	var st WalkStats

	filter := fmt.Sprintf("udp port %d", port)
	if err := reader.SetBPFFilter(filter); err != nil {
		if !errors.Is(err, ErrFilterUnsupported) {
			return st, err
		}
		monitoring.Debugf("capture: %v, filtering port %d in process", err, port)
	} else {
		monitoring.Logf("capture: BPF filter set: %s", filter)
	}

	linkType := layers.LinkType(reader.LinkType())
	for {
		if err := ctx.Err(); err != nil {
			monitoring.Logf("capture: stopping due to context cancellation (processed %d packets)", st.Packets)
			return st, err
		}

		pkt, err := reader.NextPacket()
		if errors.Is(err, io.EOF) || (err == nil && pkt == nil) {
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("read packet %d: %w", st.Packets+1, err)
		}
		st.Packets++

		payload, ok := udpPayload(pkt.Data, linkType, port, &st)
		if !ok {
			continue
		}
		st.Matched++

		if err := fn(Seconds(pkt.Timestamp), payload); err != nil {
			if errors.Is(err, ErrStop) {
				return st, nil
			}
			return st, err
		}
	}
}

// Seconds converts a capture timestamp to floating-point seconds since the
// Unix epoch.
func Seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

func udpPayload(data []byte, linkType layers.LinkType, port int, st *WalkStats) ([]byte, bool) {
	packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	if packet.NetworkLayer() == nil {
		return nil, false
	}
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, false
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil, false
	}
	st.UDP++

	if int(udp.DstPort) != port && int(udp.SrcPort) != port {
		return nil, false
	}
	if len(udp.Payload) == 0 {
		return nil, false
	}
	return udp.Payload, true
}

// WalkFile opens filename with a new reader and walks it.
func WalkFile(ctx context.Context, filename string, useLibpcap bool, port int, fn Handler) (WalkStats, error) {
	reader, err := NewReader(useLibpcap)
	if err != nil {
		return WalkStats{}, err
	}
	if err := reader.Open(filename); err != nil {
		return WalkStats{}, err
	}
	defer reader.Close()

	return Walk(ctx, reader, port, fn)
}
