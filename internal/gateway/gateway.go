// Package gateway translates between the MAVLink ground link and the
// control core: inbound datagrams become typed events the control loop
// dispatches, outbound telemetry is encoded at per-message rates.
package gateway

import (
	"log"
	"time"

	"mavbridge/internal/config"
	"mavbridge/internal/flightmode"
	"mavbridge/internal/geo"
	"mavbridge/internal/mavlink"
	"mavbridge/internal/mission"
	"mavbridge/internal/vehicle"
)

// uploadTimeout bounds the gap between mission upload messages; a stalled
// upload is discarded.
const uploadTimeout = 5 * time.Second

// Event is one decoded inbound request. The control loop driver dispatches
// events in arrival order, once per tick.
type Event interface {
	event()
}

// ModeRequest asks for a flight-mode change. AckCommand is echoed in the
// COMMAND_ACK so the ground station can match the reply.
type ModeRequest struct {
	Mode       flightmode.Mode
	AckCommand uint16
}

// ArmRequest arms or disarms the vehicle.
type ArmRequest struct {
	Arm bool
}

// RCUpdate carries the merged operator stick values after an RC override.
type RCUpdate struct {
	RC flightmode.RCInput
}

// TargetUpdate carries a new guided-flight setpoint.
type TargetUpdate struct {
	Target flightmode.GuidedTarget
}

// MissionLoaded delivers a completely uploaded mission. An empty mission
// clears the navigator.
type MissionLoaded struct {
	Mission mission.Mission
}

// MissionJump moves the waypoint cursor.
type MissionJump struct {
	Seq int
}

func (ModeRequest) event()   {}
func (ArmRequest) event()    {}
func (RCUpdate) event()      {}
func (TargetUpdate) event()  {}
func (MissionLoaded) event() {}
func (MissionJump) event()   {}

// Status is the mode-machine side of the telemetry the gateway reports.
type Status struct {
	Mode     flightmode.Mode
	Armed    bool
	Failsafe bool

	// HaveState is false until the vehicle interface has produced a
	// sample; attitude and position telemetry is withheld until then.
	HaveState bool

	// MissionIndex is the active waypoint, -1 when no mission is loaded
	// or the mission is complete.
	MissionIndex int

	ThrottlePct float64
}

// upload tracks an in-progress mission transfer. Items must arrive in
// strict sequence; any deviation discards the whole transfer.
type upload struct {
	count    int
	next     int
	items    []mission.Item
	deadline time.Time
}

// Gateway is single-goroutine: the control loop driver owns it.
type Gateway struct {
	link  config.LinkConfig
	rates config.TelemetryConfig
	mis   config.MissionConfig

	boot time.Time
	seq  uint8

	homeAltMSL float64
	haveHome   bool

	rc flightmode.RCInput

	up *upload

	lastSent       map[uint8]time.Time
	lastMissionIdx int
	errorsComm     uint16
}

func New(cfg config.Config, boot time.Time) *Gateway {
	return &Gateway{
		link:           cfg.Link,
		rates:          cfg.Telemetry,
		mis:            cfg.Mission,
		boot:           boot,
		lastSent:       make(map[uint8]time.Time),
		lastMissionIdx: -1,
	}
}

// SetHomeAltitude enables conversion of relative-altitude frames. Called
// once when the home position is captured.
func (g *Gateway) SetHomeAltitude(altMSL float64) {
	g.homeAltMSL = altMSL
	g.haveHome = true
}

// HandleDatagram decodes one datagram into events and immediate protocol
// replies. ok reports whether at least one well-formed frame arrived,
// which counts as link activity for the failsafe monitor.
func (g *Gateway) HandleDatagram(now time.Time, datagram []byte) (events []Event, replies [][]byte, ok bool) {
	frames, dropped := mavlink.Parse(datagram)
	if dropped > 0 {
		g.errorsComm += uint16(dropped)
		log.Printf("gateway: dropped malformed frames count=%d", dropped)
	}

	for _, raw := range frames {
		ev, rep := g.handleFrame(now, raw)
		events = append(events, ev...)
		replies = append(replies, rep...)
	}
	return events, replies, len(frames) > 0
}

// Tick expires a stalled mission upload.
func (g *Gateway) Tick(now time.Time) [][]byte {
	if g.up == nil || now.Before(g.up.deadline) {
		return nil
	}
	log.Printf("gateway: mission upload timed out received=%d expected=%d", g.up.next, g.up.count)
	g.up = nil
	return [][]byte{g.StatusText(mavlink.SeverityWarning, "mission upload timed out")}
}

func (g *Gateway) handleFrame(now time.Time, raw mavlink.Raw) (events []Event, replies [][]byte) {
	switch raw.MsgID {
	case mavlink.MsgHeartbeat:
		// Ground-station liveness only; the arrival already counted.
		return nil, nil

	case mavlink.MsgSetMode:
		m, err := mavlink.DecodeSetMode(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		if m.BaseMode&mavlink.ModeFlagCustomModeEnabled == 0 {
			return nil, [][]byte{g.Ack(mavlink.MsgSetMode, mavlink.ResultUnsupported)}
		}
		return []Event{ModeRequest{Mode: flightmode.Mode(m.CustomMode), AckCommand: mavlink.MsgSetMode}}, nil

	case mavlink.MsgCommandLong:
		m, err := mavlink.DecodeCommandLong(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		return g.handleCommand(m)

	case mavlink.MsgRCChannelsOverride:
		m, err := mavlink.DecodeRCOverride(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		g.mergeRC(m)
		return []Event{RCUpdate{RC: g.rc}}, nil

	case mavlink.MsgSetPositionTargetGlobalInt:
		m, err := mavlink.DecodePositionTarget(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		return g.handlePositionTarget(m)

	case mavlink.MsgMissionCount:
		m, err := mavlink.DecodeMissionCount(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		return g.handleMissionCount(now, m)

	case mavlink.MsgMissionItem:
		m, err := mavlink.DecodeMissionItem(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		return g.handleMissionItem(now, m)

	case mavlink.MsgMissionSetCurrent:
		m, err := mavlink.DecodeMissionSetCurrent(raw)
		if err != nil {
			return nil, g.decodeFailed(raw.MsgID, err)
		}
		return []Event{MissionJump{Seq: int(m.Seq)}}, nil

	case mavlink.MsgMissionAck:
		// Sent by the station at the end of downloads we do not offer.
		return nil, nil

	default:
		log.Printf("gateway: unhandled message id=%d", raw.MsgID)
		return nil, nil
	}
}

func (g *Gateway) decodeFailed(msgID uint8, err error) [][]byte {
	g.errorsComm++
	log.Printf("gateway: decode failed id=%d err=%v", msgID, err)
	return nil
}

func (g *Gateway) handleCommand(m mavlink.CommandLong) (events []Event, replies [][]byte) {
	switch m.Command {
	case mavlink.CmdComponentArmDisarm:
		return []Event{ArmRequest{Arm: m.Params[0] > 0.5}}, nil
	case mavlink.CmdNavReturnToLaunch:
		return []Event{ModeRequest{Mode: flightmode.ReturnToLaunch, AckCommand: m.Command}}, nil
	case mavlink.CmdNavLand:
		return []Event{ModeRequest{Mode: flightmode.Land, AckCommand: m.Command}}, nil
	default:
		log.Printf("gateway: unsupported command id=%d", m.Command)
		return nil, [][]byte{g.Ack(m.Command, mavlink.ResultUnsupported)}
	}
}

// mergeRC folds a raw override into the stored stick state. A channel
// value of zero leaves that channel untouched. Channel order is the
// common roll/pitch/throttle/yaw assignment.
func (g *Gateway) mergeRC(m mavlink.RCOverride) {
	if m.Channels[0] != 0 {
		g.rc.Roll = pwmToAxis(m.Channels[0])
	}
	if m.Channels[1] != 0 {
		g.rc.Pitch = pwmToAxis(m.Channels[1])
	}
	if m.Channels[2] != 0 {
		g.rc.Throttle = pwmToThrottle(m.Channels[2])
	}
	if m.Channels[3] != 0 {
		g.rc.Yaw = pwmToAxis(m.Channels[3])
	}
}

func (g *Gateway) handlePositionTarget(m mavlink.PositionTarget) (events []Event, replies [][]byte) {
	alt, ok := g.resolveAlt(m.Alt, m.Frame)
	if !ok {
		return nil, [][]byte{g.StatusText(mavlink.SeverityWarning, "position target rejected: bad frame")}
	}
	t := flightmode.GuidedTarget{
		LatDeg: m.LatDeg,
		LonDeg: m.LonDeg,
		AltMSL: alt,
	}
	if m.TypeMask&mavlink.TargetIgnoreYaw == 0 {
		t.Yaw = m.Yaw
		t.HasYaw = true
	}
	return []Event{TargetUpdate{Target: t}}, nil
}

func (g *Gateway) handleMissionCount(now time.Time, m mavlink.MissionCount) (events []Event, replies [][]byte) {
	if g.up != nil {
		log.Printf("gateway: mission upload restarted mid-transfer received=%d", g.up.next)
	}
	if m.Count == 0 {
		g.up = nil
		return []Event{MissionLoaded{}}, [][]byte{g.missionAck(mavlink.MissionAccepted)}
	}

	g.up = &upload{
		count:    int(m.Count),
		items:    make([]mission.Item, 0, m.Count),
		deadline: now.Add(uploadTimeout),
	}
	return nil, [][]byte{g.missionRequest(0)}
}

func (g *Gateway) handleMissionItem(now time.Time, m mavlink.MissionItem) (events []Event, replies [][]byte) {
	if g.up == nil {
		log.Printf("gateway: mission item without transfer seq=%d", m.Seq)
		return nil, nil
	}
	if int(m.Seq) != g.up.next {
		log.Printf("gateway: mission item out of sequence got=%d want=%d", m.Seq, g.up.next)
		g.up = nil
		return nil, [][]byte{g.missionAck(mavlink.MissionInvalidSeq)}
	}

	item, ok := g.convertItem(m)
	if !ok {
		g.up = nil
		return nil, [][]byte{g.missionAck(mavlink.MissionError)}
	}

	g.up.items = append(g.up.items, item)
	g.up.next++
	g.up.deadline = now.Add(uploadTimeout)

	if g.up.next < g.up.count {
		return nil, [][]byte{g.missionRequest(uint16(g.up.next))}
	}

	loaded := mission.Mission{Items: g.up.items}
	g.up = nil
	log.Printf("gateway: mission upload complete items=%d", len(loaded.Items))
	return []Event{MissionLoaded{Mission: loaded}}, [][]byte{g.missionAck(mavlink.MissionAccepted)}
}

func (g *Gateway) convertItem(m mavlink.MissionItem) (mission.Item, bool) {
	var action mission.Action
	switch m.Command {
	case mavlink.CmdNavWaypoint:
		action = mission.ActionWaypoint
	case mavlink.CmdNavLoiterUnlim:
		action = mission.ActionLoiter
	case mavlink.CmdNavLand:
		action = mission.ActionLand
	default:
		log.Printf("gateway: unsupported mission command seq=%d cmd=%d", m.Seq, m.Command)
		return mission.Item{}, false
	}

	alt, ok := g.resolveAlt(m.Z, m.Frame)
	if !ok {
		log.Printf("gateway: unsupported mission frame seq=%d frame=%d", m.Seq, m.Frame)
		return mission.Item{}, false
	}

	radius := m.Param2
	if radius <= 0 {
		radius = g.mis.AcceptRadiusM
	}
	return mission.Item{
		LatDeg:        m.X,
		LonDeg:        m.Y,
		AltMSL:        alt,
		AcceptRadiusM: radius,
		Action:        action,
	}, true
}

// resolveAlt converts an altitude in the message's frame to MSL meters.
func (g *Gateway) resolveAlt(alt float64, frame uint8) (float64, bool) {
	switch frame {
	case mavlink.FrameGlobal:
		return alt, true
	case mavlink.FrameGlobalRelativeAlt:
		if !g.haveHome {
			return 0, false
		}
		return g.homeAltMSL + alt, true
	default:
		return 0, false
	}
}

// Ack frames a COMMAND_ACK for the given command and result.
func (g *Gateway) Ack(command uint16, result uint8) []byte {
	return g.frame(mavlink.MsgCommandAck, mavlink.EncodeCommandAck(mavlink.CommandAck{
		Command: command,
		Result:  result,
	}))
}

// StatusText frames a human-readable note for the ground station.
func (g *Gateway) StatusText(severity uint8, text string) []byte {
	return g.frame(mavlink.MsgStatusText, mavlink.EncodeStatusText(severity, text))
}

func (g *Gateway) missionRequest(seq uint16) []byte {
	return g.frame(mavlink.MsgMissionRequest, mavlink.EncodeMissionRequest(mavlink.MissionRequest{Seq: seq}))
}

func (g *Gateway) missionAck(result uint8) []byte {
	return g.frame(mavlink.MsgMissionAck, mavlink.EncodeMissionAck(mavlink.MissionAck{Type: result}))
}

// Telemetry encodes the outbound messages due at now. Each message type
// keeps its own last-sent timestamp; MISSION_CURRENT is emitted only when
// the active index changes. Before the first vehicle sample only the
// heartbeat and system status go out, with fuel marked unknown.
func (g *Gateway) Telemetry(now time.Time, st vehicle.State, status Status) [][]byte {
	var out [][]byte

	if g.due(now, mavlink.MsgHeartbeat, g.rates.HeartbeatHz) {
		out = append(out, g.frame(mavlink.MsgHeartbeat, mavlink.EncodeHeartbeat(mavlink.Heartbeat{
			CustomMode:   uint32(status.Mode),
			Armed:        status.Armed,
			SystemStatus: systemState(status),
		})))
	}

	if g.due(now, mavlink.MsgSysStatus, g.rates.SysStatusHz) {
		fuel := st.FuelPct
		if !status.HaveState {
			fuel = -1
		}
		out = append(out, g.frame(mavlink.MsgSysStatus, mavlink.EncodeSysStatus(mavlink.SysStatus{
			FuelPct:    fuel,
			ErrorsComm: g.errorsComm,
		})))
	}

	if !status.HaveState {
		return out
	}

	if g.due(now, mavlink.MsgAttitude, g.rates.AttitudeHz) {
		out = append(out, g.frame(mavlink.MsgAttitude, mavlink.EncodeAttitude(mavlink.Attitude{
			TimeBootMs: g.bootMs(now),
			Roll:       st.Roll,
			Pitch:      st.Pitch,
			Yaw:        st.Yaw,
			RollRate:   st.RollRate,
			PitchRate:  st.PitchRate,
			YawRate:    st.YawRate,
		})))
	}

	if g.due(now, mavlink.MsgGlobalPositionInt, g.rates.PositionHz) {
		out = append(out, g.frame(mavlink.MsgGlobalPositionInt, mavlink.EncodeGlobalPositionInt(mavlink.GlobalPositionInt{
			TimeBootMs: g.bootMs(now),
			LatDeg:     st.LatDeg,
			LonDeg:     st.LonDeg,
			AltMSL:     st.AltMSL,
			AltRel:     g.relativeAlt(st.AltMSL),
			VelNorth:   st.VelNorth,
			VelEast:    st.VelEast,
			VelDown:    st.VelDown,
			HeadingDeg: headingDeg(st),
		})))
	}

	if g.due(now, mavlink.MsgGPSRawInt, g.rates.GPSHz) {
		out = append(out, g.frame(mavlink.MsgGPSRawInt, mavlink.EncodeGPSRawInt(gpsReport(now, st))))
	}

	if g.due(now, mavlink.MsgVFRHud, g.rates.HUDHz) {
		out = append(out, g.frame(mavlink.MsgVFRHud, mavlink.EncodeVFRHud(mavlink.VFRHud{
			Airspeed:    st.Airspeed,
			GroundSpeed: st.GroundSpeed,
			AltMSL:      st.AltMSL,
			ClimbRate:   st.ClimbRate,
			HeadingDeg:  headingDeg(st),
			ThrottlePct: status.ThrottlePct,
		})))
	}

	if status.MissionIndex != g.lastMissionIdx && status.MissionIndex >= 0 {
		out = append(out, g.frame(mavlink.MsgMissionCurrent, mavlink.EncodeMissionCurrent(uint16(status.MissionIndex))))
	}
	g.lastMissionIdx = status.MissionIndex

	return out
}

func (g *Gateway) due(now time.Time, msgID uint8, hz float64) bool {
	if hz <= 0 {
		return false
	}
	last, sent := g.lastSent[msgID]
	if sent && now.Sub(last) < time.Duration(float64(time.Second)/hz) {
		return false
	}
	g.lastSent[msgID] = now
	return true
}

func (g *Gateway) frame(msgID uint8, payload []byte) []byte {
	f := mavlink.Frame(g.seq, g.link.SystemID, g.link.ComponentID, msgID, payload)
	g.seq++
	return f
}

func (g *Gateway) bootMs(now time.Time) uint32 {
	return uint32(now.Sub(g.boot) / time.Millisecond)
}

func (g *Gateway) relativeAlt(altMSL float64) float64 {
	if !g.haveHome {
		return 0
	}
	return altMSL - g.homeAltMSL
}

// gpsReport derives a deterministic fix-quality report from the state: a
// fresh state is a 3D fix, a stale one degrades to no fix.
func gpsReport(now time.Time, st vehicle.State) mavlink.GPSRawInt {
	r := mavlink.GPSRawInt{
		TimeUsec:    uint64(now.UnixMicro()),
		LatDeg:      st.LatDeg,
		LonDeg:      st.LonDeg,
		AltMSL:      st.AltMSL,
		FixType:     3,
		Satellites:  12,
		HDOP:        0.8,
		GroundSpeed: st.GroundSpeed,
		CourseDeg:   headingDeg(st),
	}
	if st.Stale {
		r.FixType = 0
		r.Satellites = 0
		r.HDOP = 99.99
	}
	return r
}

func systemState(status Status) uint8 {
	switch {
	case status.Failsafe:
		return mavlink.StateCritical
	case status.Armed:
		return mavlink.StateActive
	default:
		return mavlink.StateStandby
	}
}

func headingDeg(st vehicle.State) float64 {
	deg := geo.Degrees(st.Yaw)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func pwmToAxis(pwm uint16) float64 {
	v := (float64(pwm) - 1500) / 500
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return v
}

func pwmToThrottle(pwm uint16) float64 {
	v := (float64(pwm) - 1000) / 1000
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}
