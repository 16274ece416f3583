// Package rcframe decodes the fixed-size control frames a toy drone link
// sends over UDP.
//
// FRAME LAYOUT (20 bytes):
//
//	Offset | Name     | Notes
//	     0 | start    | always 0x66
//	     1 | -        | unused by the decoder
//	     2 | roll     | 0x00..0xFF, neutral 0x80
//	     3 | pitch    | 0x00..0xFF, neutral 0x80
//	     4 | throttle | 0x00..0xFF, neutral 0x80
//	     5 | yaw      | 0x00..0xFF, neutral 0x80
//	     6 | command  | 0x00 = no command
//	     7 | headless | 0x02 off, 0x03 on
//	  8-17 | -        | unused by the decoder
//	    18 | checksum | usually XOR of bytes 2..7, never verified
//	    19 | end      | always 0x99
package rcframe

import (
	"encoding/hex"
	"fmt"
)

// Wire format constants.
const (
	FrameSize = 20

	StartMarker = 0x66
	EndMarker   = 0x99

	OffsetStart    = 0
	OffsetRoll     = 2
	OffsetPitch    = 3
	OffsetThrottle = 4
	OffsetYaw      = 5
	OffsetCommand  = 6
	OffsetHeadless = 7
	OffsetChecksum = 18
	OffsetEnd      = 19

	// Neutral is the stick value that means "no input".
	Neutral = 0x80
)

// Frame is one decoded control sample.
type Frame struct {
	Timestamp float64 // capture time in seconds
	Roll      uint8
	Pitch     uint8
	Throttle  uint8
	Yaw       uint8
	Command   uint8
	Headless  uint8
	Raw       [FrameSize]byte
}

// IsCandidate reports whether payload has the length and markers of a
// control frame.
func IsCandidate(payload []byte) bool {
	return len(payload) == FrameSize &&
		payload[OffsetStart] == StartMarker &&
		payload[OffsetEnd] == EndMarker
}

// Decode turns a UDP payload into a Frame. The second return value is false
// when the payload is not a control frame; that is the normal outcome for
// unrelated traffic on the same port and is not an error.
func Decode(ts float64, payload []byte) (Frame, bool) {
	if !IsCandidate(payload) {
		return Frame{}, false
	}

	f := Frame{
		Timestamp: ts,
		Roll:      payload[OffsetRoll],
		Pitch:     payload[OffsetPitch],
		Throttle:  payload[OffsetThrottle],
		Yaw:       payload[OffsetYaw],
		Command:   payload[OffsetCommand],
		Headless:  payload[OffsetHeadless],
	}
	copy(f.Raw[:], payload)
	return f, true
}

// ChecksumByte returns byte 18 as it appeared on the wire.
func (f Frame) ChecksumByte() uint8 {
	return f.Raw[OffsetChecksum]
}

// String formats the frame the way the decoder's diagnostics print it.
func (f Frame) String() string {
	return fmt.Sprintf("t=%.3f roll=%3d pitch=%3d thr=%3d yaw=%3d cmd=0x%02x headless=0x%02x raw=%s",
		f.Timestamp, f.Roll, f.Pitch, f.Throttle, f.Yaw, f.Command, f.Headless, hex.EncodeToString(f.Raw[:]))
}
