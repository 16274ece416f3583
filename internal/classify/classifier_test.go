package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rcintent/internal/rcframe"
)

func neutralFrame() rcframe.Frame {
	return rcframe.Frame{
		Roll:     rcframe.Neutral,
		Pitch:    rcframe.Neutral,
		Throttle: rcframe.Neutral,
		Yaw:      rcframe.Neutral,
		Headless: uint8(HeadlessOff),
	}
}

func TestClassify_SamplePayload(t *testing.T) {
	t.Parallel()

	payload := []byte{0x66, 0x00, 0x80, 0x80, 0x80, 0x80, 0x01, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x00, 0x99}
	f, ok := rcframe.Decode(0.0, payload)
	require.True(t, ok)

	labels := New(DefaultOptions()).Classify(f)
	assert.Equal(t, []Label{LabelTakeoff, LabelHeadlessOff}, labels)
}

func TestClassify_Commands(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		cmd  uint8
		want []Label
	}{
		{0x00, []Label{LabelHeadlessOff}},
		{0x01, []Label{LabelTakeoff, LabelHeadlessOff}},
		{0x02, []Label{LabelEmergencyStop, LabelHeadlessOff}},
		{0x03, []Label{LabelLand, LabelHeadlessOff}},
		{0x04, []Label{LabelCalibrateGyro, LabelHeadlessOff}},
		{0x07, []Label{"cmd_0x07", LabelHeadlessOff}},
		{0xab, []Label{"cmd_0xab", LabelHeadlessOff}},
	}

	c := New(DefaultOptions())
	for _, tc := range testCases {
		f := neutralFrame()
		f.Command = tc.cmd
		assert.Equal(t, tc.want, c.Classify(f), "command 0x%02x", tc.cmd)
	}
}

func TestClassify_HeadlessModes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		headless uint8
		opts     Options
		want     []Label
	}{
		{"on", 0x03, DefaultOptions(), []Label{LabelHeadlessOn}},
		{"off", 0x02, DefaultOptions(), []Label{LabelHeadlessOff}},
		{"zero is generic", 0x00, DefaultOptions(), []Label{"headless_0x00"}},
		{"unknown", 0x05, DefaultOptions(), []Label{"headless_0x05"}},
		{"zero ignored", 0x00, Options{Neutral: 128, Deadband: 12, IgnoreHeadlessZero: true}, []Label{}},
		{"unknown kept when zero ignored", 0x01, Options{Neutral: 128, Deadband: 12, IgnoreHeadlessZero: true}, []Label{"headless_0x01"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := neutralFrame()
			f.Headless = tc.headless
			assert.Equal(t, tc.want, New(tc.opts).Classify(f))
		})
	}
}

func TestClassify_AxisOpposites(t *testing.T) {
	t.Parallel()

	c := New(DefaultOptions())
	for _, a := range Axes {
		for d := 0; d <= 127; d++ {
			hi, hiOK := c.AxisLabel(a, uint8(128+d))
			lo, loOK := c.AxisLabel(a, uint8(128-d))

			if d <= DefaultDeadband {
				assert.False(t, hiOK, "%s +%d inside deadband", a, d)
				assert.False(t, loOK, "%s -%d inside deadband", a, d)
				continue
			}

			require.True(t, hiOK, "%s +%d", a, d)
			require.True(t, loOK, "%s -%d", a, d)
			opp, ok := Opposite(hi)
			require.True(t, ok)
			assert.Equal(t, lo, opp, "%s d=%d", a, d)
		}
	}
}

func TestClassify_DeadbandBoundary(t *testing.T) {
	t.Parallel()

	c := New(DefaultOptions())
	f := neutralFrame()
	f.Pitch = 128 + 12
	assert.Equal(t, []Label{LabelHeadlessOff}, c.Classify(f))

	f.Pitch = 128 + 13
	assert.Equal(t, []Label{LabelForward, LabelHeadlessOff}, c.Classify(f))

	f.Pitch = 128 - 13
	assert.Equal(t, []Label{LabelBack, LabelHeadlessOff}, c.Classify(f))
}

func TestClassify_EmissionOrder(t *testing.T) {
	t.Parallel()

	c := New(DefaultOptions())
	f := rcframe.Frame{
		Command:  0x03,
		Pitch:    0,
		Roll:     255,
		Throttle: 0,
		Yaw:      255,
		Headless: 0x03,
	}
	assert.Equal(t,
		[]Label{LabelLand, LabelBack, LabelRight, LabelDown, LabelYawRight, LabelHeadlessOn},
		c.Classify(f))

	// Subsets keep their relative order.
	f.Pitch = 128
	f.Throttle = 128
	assert.Equal(t, []Label{LabelLand, LabelRight, LabelYawRight, LabelHeadlessOn}, c.Classify(f))
}

func TestClassify_DoesNotMutateFrame(t *testing.T) {
	t.Parallel()

	f := neutralFrame()
	f.Command = 0x09
	f.Yaw = 3
	before := f
	_ = New(DefaultOptions()).Classify(f)
	assert.Equal(t, before, f)
}

func TestClassify_CustomNeutralAndDeadband(t *testing.T) {
	t.Parallel()

	c := New(Options{Neutral: 127, Deadband: 0})
	f := neutralFrame()
	f.Roll, f.Pitch, f.Throttle, f.Yaw = 127, 127, 127, 127
	assert.Equal(t, []Label{LabelHeadlessOff}, c.Classify(f))

	f.Throttle = 128
	assert.Equal(t, []Label{LabelUp, LabelHeadlessOff}, c.Classify(f))

	neg := New(Options{Neutral: 128, Deadband: -5})
	assert.Equal(t, 0, neg.Options().Deadband)
}

func TestCommandRecognized(t *testing.T) {
	t.Parallel()

	assert.False(t, CommandNone.Recognized())
	assert.True(t, CommandTakeoff.Recognized())
	assert.True(t, CommandCalibrateGyro.Recognized())
	assert.False(t, Command(0x05).Recognized())
}

func TestOpposite(t *testing.T) {
	t.Parallel()

	pairs := map[Label]Label{
		LabelForward:  LabelBack,
		LabelLeft:     LabelRight,
		LabelUp:       LabelDown,
		LabelYawLeft:  LabelYawRight,
		LabelBack:     LabelForward,
		LabelYawRight: LabelYawLeft,
	}
	for in, want := range pairs {
		got, ok := Opposite(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := Opposite(LabelTakeoff)
	assert.False(t, ok)
}

func TestAxisString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pitch", AxisPitch.String())
	assert.Equal(t, "yaw", AxisYaw.String())
	assert.Equal(t, "axis(9)", Axis(9).String())
}
