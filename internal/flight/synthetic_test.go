package flight

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/rcframe"
)

var start = time.Unix(1700000000, 0).UTC()

func TestEmit_FrameCountAndSpacing(t *testing.T) {
	t.Parallel()

	g := NewGenerator(1)
	segs := []Segment{
		hold("a", time.Second, nil),
		hold("b", 500*time.Millisecond, func(c *rcframe.Controls) { c.Command = 0x01 }),
	}

	var stamps []time.Time
	var cmds []uint8
	n, err := g.Emit(start, segs, func(ts time.Time, payload []byte) error {
		f, ok := rcframe.Decode(0, payload)
		require.True(t, ok)
		stamps = append(stamps, ts)
		cmds = append(cmds, f.Command)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	require.Len(t, stamps, 30)
	assert.Equal(t, 50*time.Millisecond, stamps[1].Sub(stamps[0]))
	assert.Equal(t, uint8(0), cmds[19])
	assert.Equal(t, uint8(0x01), cmds[20])
}

func TestEmit_Errors(t *testing.T) {
	t.Parallel()

	g := NewGenerator(1)
	g.FrameRate = 0
	_, err := g.Emit(start, DemoFlight(), func(time.Time, []byte) error { return nil })
	assert.Error(t, err)

	g = NewGenerator(1)
	boom := errors.New("boom")
	n, err := g.Emit(start, DemoFlight(), func(time.Time, []byte) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}

func TestEmit_JitterStaysInRange(t *testing.T) {
	t.Parallel()

	g := NewGenerator(7)
	g.Jitter = 5
	segs := []Segment{hold("idle", 5*time.Second, nil)}
	_, err := g.Emit(start, segs, func(_ time.Time, payload []byte) error {
		f, ok := rcframe.Decode(0, payload)
		require.True(t, ok)
		for _, v := range []uint8{f.Roll, f.Pitch, f.Throttle, f.Yaw} {
			assert.InDelta(t, rcframe.Neutral, int(v), 5)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestEmit_NoiseIsNotAFrame(t *testing.T) {
	t.Parallel()

	g := NewGenerator(3)
	g.NoiseRate = 1
	_, err := g.Emit(start, []Segment{hold("idle", time.Second, nil)}, func(_ time.Time, payload []byte) error {
		assert.False(t, rcframe.IsCandidate(payload))
		return nil
	})
	require.NoError(t, err)
}

func TestWriteCapture(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := capture.NewWriter(&buf, capture.DefaultEndpoints())
	require.NoError(t, err)

	n, err := NewGenerator(1).WriteCapture(w, start, DemoFlight())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, n, w.Count())
	assert.Greater(t, buf.Len(), n*rcframe.FrameSize)
}
