// Package flight generates synthetic controller traffic for testing and demos.
package flight

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/banshee-data/rcintent/internal/capture"
	"github.com/banshee-data/rcintent/internal/rcframe"
)

// Segment holds the controls steady for a duration.
type Segment struct {
	Name     string
	Duration time.Duration
	Controls rcframe.Controls
}

// hold returns the neutral controls with fn applied.
func hold(name string, d time.Duration, fn func(c *rcframe.Controls)) Segment {
	c := rcframe.NeutralControls()
	if fn != nil {
		fn(&c)
	}
	return Segment{Name: name, Duration: d, Controls: c}
}

// DemoFlight is a short scripted session: takeoff, a climb, a box pattern,
// a yaw in each direction, a headless toggle and a landing.
func DemoFlight() []Segment {
	const press = 300 * time.Millisecond
	const move = 1500 * time.Millisecond
	const idle = 1000 * time.Millisecond

	return []Segment{
		hold("idle", idle, nil),
		hold("takeoff", press, func(c *rcframe.Controls) { c.Command = 0x01 }),
		hold("idle", idle, nil),
		hold("climb", move, func(c *rcframe.Controls) { c.Throttle = 0xd0 }),
		hold("forward", move, func(c *rcframe.Controls) { c.Pitch = 0xc0 }),
		hold("right", move, func(c *rcframe.Controls) { c.Roll = 0xc0 }),
		hold("back", move, func(c *rcframe.Controls) { c.Pitch = 0x40 }),
		hold("left", move, func(c *rcframe.Controls) { c.Roll = 0x40 }),
		hold("yaw left", move, func(c *rcframe.Controls) { c.Yaw = 0x40 }),
		hold("yaw right", move, func(c *rcframe.Controls) { c.Yaw = 0xc0 }),
		hold("headless on", move, func(c *rcframe.Controls) { c.Headless = 0x03 }),
		hold("descend", move, func(c *rcframe.Controls) { c.Throttle = 0x30 }),
		hold("land", press, func(c *rcframe.Controls) { c.Command = 0x03 }),
		hold("idle", idle, nil),
	}
}

// Generator turns segments into timestamped wire frames.
type Generator struct {
	// Configuration
	FrameRate float64 // frames per second
	Jitter    int     // max random stick noise added to each axis, in counts
	NoiseRate float64 // fraction of packets replaced by non-frame payloads

	rng *rand.Rand
}

// NewGenerator creates a Generator sending at 20 Hz with no noise. seed fixes
// the random source so output is reproducible.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		FrameRate: 20.0,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Emit calls fn for every packet of segments, starting at start.
func (g *Generator) Emit(start time.Time, segments []Segment, fn func(ts time.Time, payload []byte) error) (int, error) {
	if g.FrameRate <= 0 {
		return 0, fmt.Errorf("frame rate must be positive, got %f", g.FrameRate)
	}
	step := time.Duration(float64(time.Second) / g.FrameRate)

	n := 0
	ts := start
	for _, seg := range segments {
		end := ts.Add(seg.Duration)
		for ; ts.Before(end); ts = ts.Add(step) {
			if err := fn(ts, g.payload(seg.Controls)); err != nil {
				return n, fmt.Errorf("segment %q: %w", seg.Name, err)
			}
			n++
		}
	}
	return n, nil
}

func (g *Generator) payload(c rcframe.Controls) []byte {
	if g.NoiseRate > 0 && g.rng.Float64() < g.NoiseRate {
		// Controllers also send short keep-alives on the control port.
		return []byte{0x63, 0x63, byte(g.rng.Intn(256)), 0x00}
	}
	if g.Jitter > 0 {
		c.Roll = jitter(g.rng, c.Roll, g.Jitter)
		c.Pitch = jitter(g.rng, c.Pitch, g.Jitter)
		c.Throttle = jitter(g.rng, c.Throttle, g.Jitter)
		c.Yaw = jitter(g.rng, c.Yaw, g.Jitter)
	}
	frame := rcframe.Encode(c)
	return frame[:]
}

func jitter(rng *rand.Rand, v uint8, amount int) uint8 {
	out := int(v) + rng.Intn(2*amount+1) - amount
	if out < 0 {
		return 0
	}
	if out > 255 {
		return 255
	}
	return uint8(out)
}

// WriteCapture emits segments through w as UDP packets.
func (g *Generator) WriteCapture(w *capture.Writer, start time.Time, segments []Segment) (int, error) {
	return g.Emit(start, segments, w.WriteUDP)
}
