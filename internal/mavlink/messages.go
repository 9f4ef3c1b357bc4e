package mavlink

import "math"

// Enumeration values from the common dialect, limited to what this core
// reports and understands.
const (
	// MAV_TYPE / MAV_AUTOPILOT in HEARTBEAT.
	TypeFixedWing    = 1
	AutopilotGeneric = 0
	MavlinkVersionV1 = 3

	// MAV_MODE_FLAG bits.
	ModeFlagCustomModeEnabled = 1
	ModeFlagSafetyArmed       = 128

	// MAV_STATE.
	StateStandby  = 3
	StateActive   = 4
	StateCritical = 5

	// MAV_RESULT for COMMAND_ACK.
	ResultAccepted            = 0
	ResultTemporarilyRejected = 1
	ResultDenied              = 2
	ResultUnsupported         = 3
	ResultFailed              = 4

	// MAV_CMD understood via COMMAND_LONG and MISSION_ITEM.
	CmdNavWaypoint        = 16
	CmdNavLoiterUnlim     = 17
	CmdNavReturnToLaunch  = 20
	CmdNavLand            = 21
	CmdComponentArmDisarm = 400

	// MAV_MISSION_RESULT for MISSION_ACK.
	MissionAccepted   = 0
	MissionError      = 1
	MissionInvalidSeq = 13

	// MAV_SEVERITY for STATUSTEXT.
	SeverityError   = 3
	SeverityWarning = 4
	SeverityNotice  = 5
	SeverityInfo    = 6

	// MAV_FRAME values accepted on mission and target messages.
	FrameGlobal            = 0
	FrameGlobalRelativeAlt = 3
)

// Heartbeat declares the autopilot's current mode and arming state.
type Heartbeat struct {
	CustomMode   uint32
	Armed        bool
	SystemStatus uint8
}

func EncodeHeartbeat(h Heartbeat) []byte {
	e := newEncoder(9)
	e.u32(h.CustomMode)
	e.u8(TypeFixedWing)
	e.u8(AutopilotGeneric)
	base := uint8(ModeFlagCustomModeEnabled)
	if h.Armed {
		base |= ModeFlagSafetyArmed
	}
	e.u8(base)
	e.u8(h.SystemStatus)
	e.u8(MavlinkVersionV1)
	return e.b
}

// SysStatus reports fuel (as battery remaining) and link quality.
type SysStatus struct {
	LoadPct     float64 // 0..100
	FuelPct     float64 // 0..100, -1 when unknown
	DropRatePct float64 // 0..100
	ErrorsComm  uint16
}

func EncodeSysStatus(s SysStatus) []byte {
	e := newEncoder(31)
	e.u32(0) // sensors present
	e.u32(0) // sensors enabled
	e.u32(0) // sensors health
	e.u16(uint16(clampF(s.LoadPct, 0, 100) * 10)) // 0.1% units
	e.u16(0)                                      // voltage, not modeled
	e.i16(-1)                                     // current, not modeled
	e.u16(uint16(clampF(s.DropRatePct, 0, 100) * 100))
	e.u16(s.ErrorsComm)
	e.u16(0)
	e.u16(0)
	e.u16(0)
	e.u16(0)
	if s.FuelPct < 0 {
		e.i8(-1)
	} else {
		e.i8(int8(clampF(s.FuelPct, 0, 100)))
	}
	return e.b
}

// GPSRawInt carries position plus simulated fix quality.
type GPSRawInt struct {
	TimeUsec    uint64
	LatDeg      float64
	LonDeg      float64
	AltMSL      float64 // meters
	FixType     uint8   // 0=none, 2=2D, 3=3D
	Satellites  uint8
	HDOP        float64 // dimensionless, 0.01 units on the wire
	GroundSpeed float64 // m/s
	CourseDeg   float64 // 0..360
}

func EncodeGPSRawInt(g GPSRawInt) []byte {
	e := newEncoder(30)
	e.u64(g.TimeUsec)
	e.i32(degE7(g.LatDeg))
	e.i32(degE7(g.LonDeg))
	e.i32(int32(math.Round(g.AltMSL * 1000))) // mm
	e.u16(uint16(clampF(g.HDOP*100, 0, 65534)))
	e.u16(65535) // epv unknown
	e.u16(uint16(clampF(g.GroundSpeed*100, 0, 65534)))
	e.u16(cdeg(g.CourseDeg))
	e.u8(g.FixType)
	e.u8(g.Satellites)
	return e.b
}

// Attitude is the high-rate attitude and body rate report. Angles in
// radians, rates in rad/s.
type Attitude struct {
	TimeBootMs uint32
	Roll       float64
	Pitch      float64
	Yaw        float64
	RollRate   float64
	PitchRate  float64
	YawRate    float64
}

func EncodeAttitude(a Attitude) []byte {
	e := newEncoder(28)
	e.u32(a.TimeBootMs)
	e.f32(a.Roll)
	e.f32(a.Pitch)
	e.f32(a.Yaw)
	e.f32(a.RollRate)
	e.f32(a.PitchRate)
	e.f32(a.YawRate)
	return e.b
}

// GlobalPositionInt is the fused position/velocity report.
type GlobalPositionInt struct {
	TimeBootMs uint32
	LatDeg     float64
	LonDeg     float64
	AltMSL     float64 // meters
	AltRel     float64 // meters above home
	VelNorth   float64 // m/s
	VelEast    float64 // m/s
	VelDown    float64 // m/s
	HeadingDeg float64 // 0..360
}

func EncodeGlobalPositionInt(g GlobalPositionInt) []byte {
	e := newEncoder(28)
	e.u32(g.TimeBootMs)
	e.i32(degE7(g.LatDeg))
	e.i32(degE7(g.LonDeg))
	e.i32(int32(math.Round(g.AltMSL * 1000)))
	e.i32(int32(math.Round(g.AltRel * 1000)))
	e.i16(cmS(g.VelNorth))
	e.i16(cmS(g.VelEast))
	e.i16(cmS(g.VelDown))
	e.u16(cdeg(g.HeadingDeg))
	return e.b
}

// VFRHud is the human-readable flight data summary.
type VFRHud struct {
	Airspeed    float64 // m/s
	GroundSpeed float64 // m/s
	AltMSL      float64 // meters
	ClimbRate   float64 // m/s
	HeadingDeg  float64 // 0..360
	ThrottlePct float64 // 0..100
}

func EncodeVFRHud(v VFRHud) []byte {
	e := newEncoder(20)
	e.f32(v.Airspeed)
	e.f32(v.GroundSpeed)
	e.f32(v.AltMSL)
	e.f32(v.ClimbRate)
	e.i16(int16(math.Round(v.HeadingDeg)))
	e.u16(uint16(clampF(v.ThrottlePct, 0, 100)))
	return e.b
}

// CommandAck reports the outcome of a COMMAND_LONG or mode request.
type CommandAck struct {
	Command uint16
	Result  uint8
}

func EncodeCommandAck(a CommandAck) []byte {
	e := newEncoder(3)
	e.u16(a.Command)
	e.u8(a.Result)
	return e.b
}

// MissionRequest asks the ground station for the next item during an
// upload.
type MissionRequest struct {
	Seq          uint16
	TargetSystem uint8
	TargetComp   uint8
}

func EncodeMissionRequest(m MissionRequest) []byte {
	e := newEncoder(4)
	e.u16(m.Seq)
	e.u8(m.TargetSystem)
	e.u8(m.TargetComp)
	return e.b
}

// MissionAck closes an upload, accepted or rejected.
type MissionAck struct {
	TargetSystem uint8
	TargetComp   uint8
	Type         uint8
}

func EncodeMissionAck(m MissionAck) []byte {
	e := newEncoder(3)
	e.u8(m.TargetSystem)
	e.u8(m.TargetComp)
	e.u8(m.Type)
	return e.b
}

// EncodeMissionCurrent announces the active waypoint index.
func EncodeMissionCurrent(seq uint16) []byte {
	e := newEncoder(2)
	e.u16(seq)
	return e.b
}

// EncodeStatusText carries a short human-readable note. Text is truncated
// to the 50-byte field.
func EncodeStatusText(severity uint8, text string) []byte {
	e := newEncoder(51)
	e.u8(severity)
	b := []byte(text)
	if len(b) > 50 {
		b = b[:50]
	}
	e.b = append(e.b, b...)
	for len(e.b) < 51 {
		e.b = append(e.b, 0)
	}
	return e.b
}

func degE7(deg float64) int32 {
	return int32(math.Round(deg * 1e7))
}

// cdeg encodes degrees as centidegrees, wrapped into [0, 360).
func cdeg(deg float64) uint16 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return uint16(math.Round(deg * 100))
}

// cmS encodes m/s as cm/s with int16 saturation.
func cmS(v float64) int16 {
	cm := math.Round(v * 100)
	if cm > 32767 {
		cm = 32767
	}
	if cm < -32768 {
		cm = -32768
	}
	return int16(cm)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
