package rcframe

// Controls are the fields a transmitter puts on the wire.
type Controls struct {
	Roll     uint8
	Pitch    uint8
	Throttle uint8
	Yaw      uint8
	Command  uint8
	Headless uint8
}

// NeutralControls holds every stick at Neutral with no command and headless
// mode off.
func NeutralControls() Controls {
	return Controls{
		Roll:     Neutral,
		Pitch:    Neutral,
		Throttle: Neutral,
		Yaw:      Neutral,
		Headless: 0x02,
	}
}

// Checksum is the XOR of bytes 2..7 that most transmitters place at offset 18.
func Checksum(frame []byte) uint8 {
	var sum uint8
	for i := OffsetRoll; i <= OffsetHeadless && i < len(frame); i++ {
		sum ^= frame[i]
	}
	return sum
}

// Encode builds the 20-byte wire frame for c.
func Encode(c Controls) [FrameSize]byte {
	var buf [FrameSize]byte
	buf[OffsetStart] = StartMarker
	buf[OffsetRoll] = c.Roll
	buf[OffsetPitch] = c.Pitch
	buf[OffsetThrottle] = c.Throttle
	buf[OffsetYaw] = c.Yaw
	buf[OffsetCommand] = c.Command
	buf[OffsetHeadless] = c.Headless
	buf[OffsetChecksum] = Checksum(buf[:])
	buf[OffsetEnd] = EndMarker
	return buf
}
