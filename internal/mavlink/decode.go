package mavlink

import "fmt"

// SetMode requests a flight-mode change. base_mode must carry the
// custom-mode flag for CustomMode to be meaningful.
type SetMode struct {
	CustomMode   uint32
	TargetSystem uint8
	BaseMode     uint8
}

func DecodeSetMode(raw Raw) (SetMode, error) {
	if raw.MsgID != MsgSetMode {
		return SetMode{}, fmt.Errorf("message id %d is not SET_MODE", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	m := SetMode{
		CustomMode:   d.u32(),
		TargetSystem: d.u8(),
		BaseMode:     d.u8(),
	}
	return m, d.err
}

// MissionCount opens a mission upload.
type MissionCount struct {
	Count        uint16
	TargetSystem uint8
	TargetComp   uint8
}

func DecodeMissionCount(raw Raw) (MissionCount, error) {
	if raw.MsgID != MsgMissionCount {
		return MissionCount{}, fmt.Errorf("message id %d is not MISSION_COUNT", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	m := MissionCount{
		Count:        d.u16(),
		TargetSystem: d.u8(),
		TargetComp:   d.u8(),
	}
	return m, d.err
}

// MissionItem is one uploaded waypoint. X and Y are degrees, Z meters in
// the frame given by Frame.
type MissionItem struct {
	Param1       float64
	Param2       float64
	Param3       float64
	Param4       float64
	X            float64
	Y            float64
	Z            float64
	Seq          uint16
	Command      uint16
	TargetSystem uint8
	TargetComp   uint8
	Frame        uint8
	Current      uint8
	AutoContinue uint8
}

func DecodeMissionItem(raw Raw) (MissionItem, error) {
	if raw.MsgID != MsgMissionItem {
		return MissionItem{}, fmt.Errorf("message id %d is not MISSION_ITEM", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	m := MissionItem{
		Param1:       d.f32(),
		Param2:       d.f32(),
		Param3:       d.f32(),
		Param4:       d.f32(),
		X:            d.f32(),
		Y:            d.f32(),
		Z:            d.f32(),
		Seq:          d.u16(),
		Command:      d.u16(),
		TargetSystem: d.u8(),
		TargetComp:   d.u8(),
		Frame:        d.u8(),
		Current:      d.u8(),
		AutoContinue: d.u8(),
	}
	return m, d.err
}

// MissionSetCurrent jumps the active waypoint.
type MissionSetCurrent struct {
	Seq          uint16
	TargetSystem uint8
	TargetComp   uint8
}

func DecodeMissionSetCurrent(raw Raw) (MissionSetCurrent, error) {
	if raw.MsgID != MsgMissionSetCurrent {
		return MissionSetCurrent{}, fmt.Errorf("message id %d is not MISSION_SET_CURRENT", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	m := MissionSetCurrent{
		Seq:          d.u16(),
		TargetSystem: d.u8(),
		TargetComp:   d.u8(),
	}
	return m, d.err
}

func DecodeMissionAck(raw Raw) (MissionAck, error) {
	if raw.MsgID != MsgMissionAck {
		return MissionAck{}, fmt.Errorf("message id %d is not MISSION_ACK", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	m := MissionAck{
		TargetSystem: d.u8(),
		TargetComp:   d.u8(),
		Type:         d.u8(),
	}
	return m, d.err
}

// RCOverride carries eight raw PWM channel values. A channel value of
// zero means "no override" for that channel.
type RCOverride struct {
	Channels     [8]uint16
	TargetSystem uint8
	TargetComp   uint8
}

func DecodeRCOverride(raw Raw) (RCOverride, error) {
	if raw.MsgID != MsgRCChannelsOverride {
		return RCOverride{}, fmt.Errorf("message id %d is not RC_CHANNELS_OVERRIDE", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	var m RCOverride
	for i := range m.Channels {
		m.Channels[i] = d.u16()
	}
	m.TargetSystem = d.u8()
	m.TargetComp = d.u8()
	return m, d.err
}

// CommandLong is the generic command envelope (arm/disarm, nav commands).
type CommandLong struct {
	Params       [7]float64
	Command      uint16
	TargetSystem uint8
	TargetComp   uint8
	Confirmation uint8
}

func DecodeCommandLong(raw Raw) (CommandLong, error) {
	if raw.MsgID != MsgCommandLong {
		return CommandLong{}, fmt.Errorf("message id %d is not COMMAND_LONG", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	var m CommandLong
	for i := range m.Params {
		m.Params[i] = d.f32()
	}
	m.Command = d.u16()
	m.TargetSystem = d.u8()
	m.TargetComp = d.u8()
	m.Confirmation = d.u8()
	return m, d.err
}

// PositionTarget is a guided-flight setpoint. Only the position fields
// and yaw are honored; the velocity and acceleration fields are accepted
// on the wire but ignored.
type PositionTarget struct {
	TimeBootMs uint32
	LatDeg     float64
	LonDeg     float64
	Alt        float64 // meters, in Frame
	Yaw        float64 // radians
	YawRate    float64 // rad/s
	TypeMask   uint16
	Frame      uint8
}

// Type-mask bits that mark a field as ignored.
const (
	TargetIgnoreYaw     = 1 << 10
	TargetIgnoreYawRate = 1 << 11
)

func DecodePositionTarget(raw Raw) (PositionTarget, error) {
	if raw.MsgID != MsgSetPositionTargetGlobalInt {
		return PositionTarget{}, fmt.Errorf("message id %d is not SET_POSITION_TARGET_GLOBAL_INT", raw.MsgID)
	}
	d := newDecoder(raw.Payload)
	var m PositionTarget
	m.TimeBootMs = d.u32()
	m.LatDeg = float64(d.i32()) / 1e7
	m.LonDeg = float64(d.i32()) / 1e7
	m.Alt = d.f32()
	d.f32() // vx
	d.f32() // vy
	d.f32() // vz
	d.f32() // afx
	d.f32() // afy
	d.f32() // afz
	m.Yaw = d.f32()
	m.YawRate = d.f32()
	m.TypeMask = d.u16()
	d.u8() // target system
	d.u8() // target component
	m.Frame = d.u8()
	return m, d.err
}
