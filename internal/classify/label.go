// Package classify turns decoded control frames into semantic action labels.
package classify

import "fmt"

// Label names one detected action, e.g. "forward" or "takeoff".
type Label string

// Command labels.
const (
	LabelTakeoff       Label = "takeoff"
	LabelEmergencyStop Label = "emergency_stop"
	LabelLand          Label = "land"
	LabelCalibrateGyro Label = "calibrate_gyro"
)

// Axis labels.
const (
	LabelForward  Label = "forward"
	LabelBack     Label = "back"
	LabelRight    Label = "right"
	LabelLeft     Label = "left"
	LabelUp       Label = "up"
	LabelDown     Label = "down"
	LabelYawRight Label = "yaw_right"
	LabelYawLeft  Label = "yaw_left"
)

// Headless mode labels.
const (
	LabelHeadlessOn  Label = "headless_on"
	LabelHeadlessOff Label = "headless_off"
)

// Command is the command byte of a frame.
type Command uint8

const (
	CommandNone          Command = 0x00
	CommandTakeoff       Command = 0x01
	CommandEmergencyStop Command = 0x02
	CommandLand          Command = 0x03
	CommandCalibrateGyro Command = 0x04
)

// Label returns the label for c. ok is false for CommandNone, which emits
// nothing. Unrecognized bytes produce "cmd_0xNN".
func (c Command) Label() (l Label, ok bool) {
	switch c {
	case CommandNone:
		return "", false
	case CommandTakeoff:
		return LabelTakeoff, true
	case CommandEmergencyStop:
		return LabelEmergencyStop, true
	case CommandLand:
		return LabelLand, true
	case CommandCalibrateGyro:
		return LabelCalibrateGyro, true
	default:
		return Label(fmt.Sprintf("cmd_0x%02x", uint8(c))), true
	}
}

// Recognized reports whether c is one of the named commands.
func (c Command) Recognized() bool {
	switch c {
	case CommandTakeoff, CommandEmergencyStop, CommandLand, CommandCalibrateGyro:
		return true
	}
	return false
}

// HeadlessMode is the headless mode byte of a frame.
type HeadlessMode uint8

const (
	HeadlessUnset HeadlessMode = 0x00
	HeadlessOff   HeadlessMode = 0x02
	HeadlessOn    HeadlessMode = 0x03
)

// Label returns the label for m. Values other than on/off, zero included,
// produce "headless_0xNN".
func (m HeadlessMode) Label() Label {
	switch m {
	case HeadlessOn:
		return LabelHeadlessOn
	case HeadlessOff:
		return LabelHeadlessOff
	default:
		return Label(fmt.Sprintf("headless_0x%02x", uint8(m)))
	}
}

// Axis identifies one stick channel.
type Axis int

const (
	AxisPitch Axis = iota
	AxisRoll
	AxisThrottle
	AxisYaw
)

// Axes lists the channels in emission order.
var Axes = [...]Axis{AxisPitch, AxisRoll, AxisThrottle, AxisYaw}

func (a Axis) String() string {
	switch a {
	case AxisPitch:
		return "pitch"
	case AxisRoll:
		return "roll"
	case AxisThrottle:
		return "throttle"
	case AxisYaw:
		return "yaw"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Labels returns the labels emitted when the stick is above and below neutral.
func (a Axis) Labels() (positive, negative Label) {
	switch a {
	case AxisPitch:
		return LabelForward, LabelBack
	case AxisRoll:
		return LabelRight, LabelLeft
	case AxisThrottle:
		return LabelUp, LabelDown
	case AxisYaw:
		return LabelYawRight, LabelYawLeft
	}
	return "", ""
}

// Opposite returns the label for the same axis in the other direction.
func Opposite(l Label) (Label, bool) {
	for _, a := range Axes {
		pos, neg := a.Labels()
		switch l {
		case pos:
			return neg, true
		case neg:
			return pos, true
		}
	}
	return "", false
}
