package classify

import (
	"github.com/banshee-data/rcintent/internal/rcframe"
)

// DefaultDeadband is how far a stick may sit from neutral before it counts
// as movement.
const DefaultDeadband = 12

// Options configures a Classifier.
type Options struct {
	Neutral  int
	Deadband int

	// IgnoreHeadlessZero drops the headless_0x00 label that transmitters
	// without a headless mode produce on every frame.
	IgnoreHeadlessZero bool
}

// DefaultOptions returns the neutral and deadband used by common transmitters.
func DefaultOptions() Options {
	return Options{
		Neutral:  rcframe.Neutral,
		Deadband: DefaultDeadband,
	}
}

// Classifier maps frames to labels. It holds only its options and is safe
// for concurrent use.
type Classifier struct {
	opts Options
}

// New creates a Classifier. A negative deadband is treated as zero.
func New(opts Options) *Classifier {
	if opts.Deadband < 0 {
		opts.Deadband = 0
	}
	return &Classifier{opts: opts}
}

// Options returns the classifier configuration.
func (c *Classifier) Options() Options {
	return c.opts
}

// Classify returns the labels for f in emission order: command, pitch, roll,
// throttle, yaw, headless. The result may be empty.
func (c *Classifier) Classify(f rcframe.Frame) []Label {
	labels := make([]Label, 0, 6)

	if l, ok := Command(f.Command).Label(); ok {
		labels = append(labels, l)
	}

	for _, a := range Axes {
		if l, ok := c.AxisLabel(a, AxisValue(f, a)); ok {
			labels = append(labels, l)
		}
	}

	mode := HeadlessMode(f.Headless)
	if !(mode == HeadlessUnset && c.opts.IgnoreHeadlessZero) {
		labels = append(labels, mode.Label())
	}

	return labels
}

// AxisLabel classifies a single stick value. ok is false inside the deadband.
func (c *Classifier) AxisLabel(a Axis, value uint8) (Label, bool) {
	delta := int(value) - c.opts.Neutral
	if abs(delta) <= c.opts.Deadband {
		return "", false
	}
	pos, neg := a.Labels()
	if delta > 0 {
		return pos, true
	}
	return neg, true
}

// AxisValue returns the raw stick value of f for a.
func AxisValue(f rcframe.Frame, a Axis) uint8 {
	switch a {
	case AxisPitch:
		return f.Pitch
	case AxisRoll:
		return f.Roll
	case AxisThrottle:
		return f.Throttle
	case AxisYaw:
		return f.Yaw
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
