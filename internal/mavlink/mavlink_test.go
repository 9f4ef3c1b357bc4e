package mavlink

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// X.25 check value from the CRC catalogue: "123456789" -> 0x906E.
func TestX25CheckValue(t *testing.T) {
	got := x25(0xFFFF, []byte("123456789"))
	if got != 0x906E {
		t.Fatalf("x25 check value = 0x%04X, want 0x906E", got)
	}
}

func TestHeartbeatPayloadGolden(t *testing.T) {
	p := EncodeHeartbeat(Heartbeat{CustomMode: 5, Armed: true, SystemStatus: StateActive})
	want := []byte{
		5, 0, 0, 0, // custom_mode
		TypeFixedWing,
		AutopilotGeneric,
		ModeFlagCustomModeEnabled | ModeFlagSafetyArmed,
		StateActive,
		MavlinkVersionV1,
	}
	if !bytes.Equal(p, want) {
		t.Fatalf("payload = % X, want % X", p, want)
	}
}

func TestAttitudePayloadGolden(t *testing.T) {
	p := EncodeAttitude(Attitude{TimeBootMs: 1000, Roll: 1.0, Pitch: -1.0})
	if len(p) != 28 {
		t.Fatalf("payload length = %d, want 28", len(p))
	}
	if got := binary.LittleEndian.Uint32(p[0:4]); got != 1000 {
		t.Fatalf("time_boot_ms = %d", got)
	}
	if got := binary.LittleEndian.Uint32(p[4:8]); got != math.Float32bits(1.0) {
		t.Fatalf("roll bits = 0x%08X", got)
	}
	if got := binary.LittleEndian.Uint32(p[8:12]); got != math.Float32bits(-1.0) {
		t.Fatalf("pitch bits = 0x%08X", got)
	}
}

func TestGlobalPositionScaling(t *testing.T) {
	p := EncodeGlobalPositionInt(GlobalPositionInt{
		LatDeg:     47.1234567,
		LonDeg:     -8.5,
		AltMSL:     512.25,
		AltRel:     112.25,
		VelNorth:   1.5,
		VelDown:    -0.25,
		HeadingDeg: 359.99,
	})
	if len(p) != 28 {
		t.Fatalf("payload length = %d, want 28", len(p))
	}
	if got := int32(binary.LittleEndian.Uint32(p[4:8])); got != 471234567 {
		t.Fatalf("lat = %d, want 471234567", got)
	}
	if got := int32(binary.LittleEndian.Uint32(p[8:12])); got != -85000000 {
		t.Fatalf("lon = %d, want -85000000", got)
	}
	if got := int32(binary.LittleEndian.Uint32(p[12:16])); got != 512250 {
		t.Fatalf("alt mm = %d, want 512250", got)
	}
	if got := int16(binary.LittleEndian.Uint16(p[20:22])); got != 150 {
		t.Fatalf("vx = %d, want 150 cm/s", got)
	}
	if got := int16(binary.LittleEndian.Uint16(p[24:26])); got != -25 {
		t.Fatalf("vz = %d, want -25 cm/s", got)
	}
	if got := binary.LittleEndian.Uint16(p[26:28]); got != 35999 {
		t.Fatalf("hdg = %d, want 35999 cdeg", got)
	}
}

func TestFrameUnframeRoundTrip(t *testing.T) {
	payload := EncodeHeartbeat(Heartbeat{CustomMode: 2, SystemStatus: StateStandby})
	frame := Frame(7, 1, 1, MsgHeartbeat, payload)

	raw, n, err := Unframe(frame)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	if n != len(frame) {
		t.Fatalf("consumed %d, want %d", n, len(frame))
	}
	if raw.Seq != 7 || raw.SysID != 1 || raw.CompID != 1 || raw.MsgID != MsgHeartbeat {
		t.Fatalf("header = %+v", raw)
	}
	if !bytes.Equal(raw.Payload, payload) {
		t.Fatalf("payload = % X, want % X", raw.Payload, payload)
	}
}

func TestUnframeRejectsCorruptCRC(t *testing.T) {
	frame := Frame(0, 1, 1, MsgHeartbeat, EncodeHeartbeat(Heartbeat{}))
	frame[8] ^= 0xFF

	_, n, err := Unframe(frame)
	if err == nil {
		t.Fatalf("corrupt frame accepted")
	}
	if n != len(frame) {
		t.Fatalf("consumed %d, want full frame %d", n, len(frame))
	}
}

func TestUnframeRejectsUnknownMessage(t *testing.T) {
	// Hand-built frame with a message ID we have no CRC_EXTRA for.
	frame := []byte{magicV1, 1, 0, 1, 1, 199, 0x42, 0x00, 0x00}
	_, n, err := Unframe(frame)
	if err == nil {
		t.Fatalf("unknown message accepted")
	}
	if n != len(frame) {
		t.Fatalf("consumed %d, want %d so the scan can continue", n, len(frame))
	}
}

func TestParseMultipleFramesWithGarbage(t *testing.T) {
	f1 := Frame(0, 255, 0, MsgSetMode, make([]byte, 6))
	f2 := Frame(1, 255, 0, MsgMissionCurrent, EncodeMissionCurrent(3))

	var datagram []byte
	datagram = append(datagram, 0x00, 0x13, 0x37) // leading noise
	datagram = append(datagram, f1...)
	datagram = append(datagram, 0xAA) // inter-frame noise
	datagram = append(datagram, f2...)

	frames, dropped := Parse(datagram)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0 (noise is skipped, not counted)", dropped)
	}
	if frames[0].MsgID != MsgSetMode || frames[1].MsgID != MsgMissionCurrent {
		t.Fatalf("ids = %d, %d", frames[0].MsgID, frames[1].MsgID)
	}
}

func TestParseCountsCorruptFrame(t *testing.T) {
	bad := Frame(0, 255, 0, MsgSetMode, make([]byte, 6))
	bad[len(bad)-1] ^= 0xFF
	good := Frame(1, 255, 0, MsgMissionCurrent, EncodeMissionCurrent(0))

	frames, dropped := Parse(append(bad, good...))
	if len(frames) != 1 || dropped != 1 {
		t.Fatalf("frames=%d dropped=%d, want 1/1", len(frames), dropped)
	}
}

func TestDecodeSetMode(t *testing.T) {
	e := newEncoder(6)
	e.u32(4) // custom mode
	e.u8(1)  // target system
	e.u8(ModeFlagCustomModeEnabled)

	m, err := DecodeSetMode(Raw{MsgID: MsgSetMode, Payload: e.b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.CustomMode != 4 || m.TargetSystem != 1 || m.BaseMode != ModeFlagCustomModeEnabled {
		t.Fatalf("decoded %+v", m)
	}
}

func TestDecodeMissionItem(t *testing.T) {
	e := newEncoder(37)
	e.f32(25) // param1: hold/accept radius
	e.f32(0)
	e.f32(0)
	e.f32(0)
	e.f32(47.5)  // x: lat
	e.f32(8.25)  // y: lon
	e.f32(120.0) // z: alt
	e.u16(2)     // seq
	e.u16(CmdNavWaypoint)
	e.u8(1) // target system
	e.u8(1) // target component
	e.u8(FrameGlobal)
	e.u8(0) // current
	e.u8(1) // autocontinue

	m, err := DecodeMissionItem(Raw{MsgID: MsgMissionItem, Payload: e.b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Seq != 2 || m.Command != CmdNavWaypoint || m.Frame != FrameGlobal {
		t.Fatalf("decoded %+v", m)
	}
	if math.Abs(m.X-47.5) > 1e-6 || math.Abs(m.Y-8.25) > 1e-6 || math.Abs(m.Z-120) > 1e-6 {
		t.Fatalf("coordinates %v %v %v", m.X, m.Y, m.Z)
	}
	if math.Abs(m.Param1-25) > 1e-6 {
		t.Fatalf("param1 = %v", m.Param1)
	}
}

func TestDecodeCommandLong(t *testing.T) {
	e := newEncoder(33)
	e.f32(1) // param1: arm
	for i := 0; i < 6; i++ {
		e.f32(0)
	}
	e.u16(CmdComponentArmDisarm)
	e.u8(1)
	e.u8(1)
	e.u8(0)

	m, err := DecodeCommandLong(Raw{MsgID: MsgCommandLong, Payload: e.b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Command != CmdComponentArmDisarm || m.Params[0] != 1 {
		t.Fatalf("decoded %+v", m)
	}
}

func TestDecodeRCOverride(t *testing.T) {
	e := newEncoder(18)
	for ch := 0; ch < 8; ch++ {
		e.u16(uint16(1000 + 100*ch))
	}
	e.u8(1)
	e.u8(1)

	m, err := DecodeRCOverride(Raw{MsgID: MsgRCChannelsOverride, Payload: e.b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Channels[0] != 1000 || m.Channels[7] != 1700 {
		t.Fatalf("channels %v", m.Channels)
	}
}

func TestDecodePositionTarget(t *testing.T) {
	e := newEncoder(53)
	e.u32(0)
	e.i32(475000000) // lat 47.5 deg
	e.i32(85000000)  // lon 8.5 deg
	e.f32(150)       // alt
	for i := 0; i < 6; i++ {
		e.f32(0) // velocities and accelerations
	}
	e.f32(1.5) // yaw
	e.f32(0)   // yaw rate
	e.u16(TargetIgnoreYawRate)
	e.u8(1)
	e.u8(1)
	e.u8(FrameGlobal)

	m, err := DecodePositionTarget(Raw{MsgID: MsgSetPositionTargetGlobalInt, Payload: e.b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(m.LatDeg-47.5) > 1e-7 || math.Abs(m.LonDeg-8.5) > 1e-7 {
		t.Fatalf("lat/lon %v %v", m.LatDeg, m.LonDeg)
	}
	if math.Abs(m.Alt-150) > 1e-3 || math.Abs(m.Yaw-1.5) > 1e-6 {
		t.Fatalf("alt/yaw %v %v", m.Alt, m.Yaw)
	}
	if m.TypeMask&TargetIgnoreYaw != 0 {
		t.Fatalf("yaw marked ignored")
	}
}

func TestDecodeShortPayload(t *testing.T) {
	_, err := DecodeSetMode(Raw{MsgID: MsgSetMode, Payload: []byte{1, 2}})
	if err == nil {
		t.Fatalf("short payload accepted")
	}
}

func TestStatusTextTruncationAndPadding(t *testing.T) {
	long := make([]byte, 80)
	for i := range long {
		long[i] = 'A'
	}
	p := EncodeStatusText(SeverityWarning, string(long))
	if len(p) != 51 {
		t.Fatalf("payload length = %d, want 51", len(p))
	}
	if p[0] != SeverityWarning {
		t.Fatalf("severity = %d", p[0])
	}

	p = EncodeStatusText(SeverityInfo, "ok")
	if len(p) != 51 {
		t.Fatalf("payload length = %d, want 51", len(p))
	}
	if p[1] != 'o' || p[2] != 'k' || p[3] != 0 {
		t.Fatalf("text bytes % X", p[1:4])
	}
}
