package capture

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type walked struct {
	ts      float64
	payload []byte
}

func collect(t *testing.T, out *[]walked) Handler {
	t.Helper()
	return func(ts float64, payload []byte) error {
		*out = append(*out, walked{ts: ts, payload: append([]byte(nil), payload...)})
		return nil
	}
}

var base = time.Unix(1700000000, 0).UTC()

func writeCapture(t *testing.T, ng bool, ep Endpoints, payloads ...[]byte) string {
	t.Helper()

	var buf bytes.Buffer
	var w *Writer
	var err error
	if ng {
		w, err = NewNgWriter(&buf, ep)
	} else {
		w, err = NewWriter(&buf, ep)
	}
	require.NoError(t, err)

	for i, p := range payloads {
		require.NoError(t, w.WriteUDP(base.Add(time.Duration(i)*100*time.Millisecond), p))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, len(payloads), w.Count())

	name := "session.pcap"
	if ng {
		name = "session.pcapng"
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestWalkFile_Pcap(t *testing.T) {
	for _, ng := range []bool{false, true} {
		ng := ng
		name := "pcap"
		if ng {
			name = "pcapng"
		}
		t.Run(name, func(t *testing.T) {
			path := writeCapture(t, ng, DefaultEndpoints(), []byte{1, 2, 3}, []byte{4, 5})

			var got []walked
			st, err := WalkFile(context.Background(), path, false, DefaultPort, collect(t, &got))
			require.NoError(t, err)

			assert.Equal(t, WalkStats{Packets: 2, UDP: 2, Matched: 2}, st)
			require.Len(t, got, 2)
			assert.Equal(t, []byte{1, 2, 3}, got[0].payload)
			assert.Equal(t, []byte{4, 5}, got[1].payload)
			assert.InDelta(t, 1700000000.0, got[0].ts, 1e-6)
			assert.InDelta(t, 1700000000.1, got[1].ts, 1e-6)
		})
	}
}

func TestWalkFile_PortFilter(t *testing.T) {
	other := DefaultEndpoints()
	other.DstPort = 9999
	path := writeCapture(t, false, other, []byte{1})

	var got []walked
	st, err := WalkFile(context.Background(), path, false, DefaultPort, collect(t, &got))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, st.UDP)
	assert.Equal(t, 0, st.Matched)

	// The drone's replies come from the control port and are matched too.
	reply := DefaultEndpoints()
	reply.SrcPort, reply.DstPort = DefaultPort, 50000
	path = writeCapture(t, false, reply, []byte{7})

	got = nil
	_, err = WalkFile(context.Background(), path, false, DefaultPort, collect(t, &got))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestWalkFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a capture file"), 0o644))

	_, err := WalkFile(context.Background(), path, false, DefaultPort, func(float64, []byte) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestWalkFile_Missing(t *testing.T) {
	_, err := WalkFile(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"), false, DefaultPort, nil)
	require.Error(t, err)
}

func udpPacket(t *testing.T, srcPort, dstPort int, payload []byte) []byte {
	t.Helper()
	ep := DefaultEndpoints()
	eth := &layers.Ethernet{SrcMAC: ep.SrcMAC, DstMAC: ep.DstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: ep.SrcIP, DstIP: ep.DstIP}
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func tcpPacket(t *testing.T) []byte {
	t.Helper()
	ep := DefaultEndpoints()
	eth := &layers.Ethernet{SrcMAC: ep.SrcMAC, DstMAC: ep.DstMAC, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP, SrcIP: ep.SrcIP, DstIP: ep.DstIP}
	tcp := &layers.TCP{SrcPort: 50000, DstPort: DefaultPort, SYN: true}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload([]byte{1})))
	return buf.Bytes()
}

func TestWalk_Mock(t *testing.T) {
	reader := NewMockPCAPReader(nil)
	reader.FilterError = ErrFilterUnsupported
	reader.AddPacket(udpPacket(t, 50000, DefaultPort, []byte{0xaa}), base)
	reader.AddPacket(tcpPacket(t), base.Add(time.Millisecond))
	reader.AddPacket([]byte{0x01, 0x02}, base.Add(2*time.Millisecond))
	reader.AddPacket(udpPacket(t, 50000, DefaultPort, nil), base.Add(3*time.Millisecond))
	reader.AddPacket(udpPacket(t, 50000, DefaultPort, []byte{0xbb}), base.Add(4*time.Millisecond))

	var got []walked
	st, err := Walk(context.Background(), reader, DefaultPort, collect(t, &got))
	require.NoError(t, err)

	assert.Equal(t, "udp port 8800", reader.AppliedFilter)
	assert.Equal(t, 5, st.Packets)
	assert.Equal(t, 3, st.UDP)
	assert.Equal(t, 2, st.Matched)
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0xaa}, got[0].payload)
	assert.Equal(t, []byte{0xbb}, got[1].payload)
}

func TestWalk_FilterError(t *testing.T) {
	reader := NewMockPCAPReader(nil)
	reader.FilterError = errors.New("bad filter")

	_, err := Walk(context.Background(), reader, DefaultPort, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad filter")
}

func TestWalk_ReadError(t *testing.T) {
	reader := NewMockPCAPReader(nil)
	reader.AddPacket(udpPacket(t, 50000, DefaultPort, []byte{1}), base)
	reader.ReadError = errors.New("truncated")

	var got []walked
	st, err := Walk(context.Background(), reader, DefaultPort, collect(t, &got))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
	assert.Equal(t, 1, st.Matched)
}

func TestWalk_Stop(t *testing.T) {
	reader := NewMockPCAPReader(nil)
	for i := 0; i < 5; i++ {
		reader.AddPacket(udpPacket(t, 50000, DefaultPort, []byte{byte(i)}), base.Add(time.Duration(i)*time.Second))
	}

	calls := 0
	st, err := Walk(context.Background(), reader, DefaultPort, func(float64, []byte) error {
		calls++
		if calls == 2 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, st.Packets)
}

func TestWalk_HandlerError(t *testing.T) {
	reader := NewMockPCAPReader(nil)
	reader.AddPacket(udpPacket(t, 50000, DefaultPort, []byte{1}), base)

	boom := errors.New("boom")
	_, err := Walk(context.Background(), reader, DefaultPort, func(float64, []byte) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWalk_ContextCancelled(t *testing.T) {
	reader := NewMockPCAPReader(nil)
	reader.AddPacket(udpPacket(t, 50000, DefaultPort, []byte{1}), base)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Walk(ctx, reader, DefaultPort, func(float64, []byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeconds(t *testing.T) {
	ts := time.Unix(12, 250_000_000)
	assert.InDelta(t, 12.25, Seconds(ts), 1e-12)
}
