package driver

import (
	"encoding/binary"
	"testing"
	"time"

	"mavbridge/internal/config"
	"mavbridge/internal/failsafe"
	"mavbridge/internal/flightmode"
	"mavbridge/internal/gateway"
	"mavbridge/internal/geo"
	"mavbridge/internal/mavlink"
	"mavbridge/internal/mission"
	"mavbridge/internal/sim"
	"mavbridge/internal/vehicle"
)

type harness struct {
	d   *Driver
	veh *sim.Vehicle
	m   *flightmode.Machine
	nav *mission.Navigator
	now time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	var cfg config.Config
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("config: %v", err)
	}

	veh := sim.New(config.SimConfig{LatDeg: 47.0, LonDeg: 8.0, AltMSLFt: 1640, FuelPct: 100})
	nav := mission.NewNavigator()
	machine := flightmode.NewMachine(cfg, nav)
	boot := time.Unix(10000, 0)
	gw := gateway.New(cfg, boot)
	mon := failsafe.NewMonitor(cfg.Failsafe)

	return &harness{
		d:   New(cfg, veh, gw, nav, machine, mon, nil),
		veh: veh,
		m:   machine,
		nav: nav,
		now: boot,
	}
}

// step advances sim and control loop together by one 10 ms tick.
func (h *harness) step() {
	h.now = h.now.Add(10 * time.Millisecond)
	h.veh.Step(0.01, h.now)
	h.d.tick(h.now)
}

func (h *harness) state(t *testing.T) vehicle.State {
	t.Helper()
	s, ok := h.veh.Sample()
	if !ok {
		t.Fatalf("no sample")
	}
	return vehicle.StateFromSample(s)
}

func (h *harness) drainOutbound() []uint8 {
	var ids []uint8
	for {
		select {
		case frame := <-h.d.outbound:
			if raw, _, err := mavlink.Unframe(frame); err == nil {
				ids = append(ids, raw.MsgID)
			}
		default:
			return ids
		}
	}
}

func TestHomeCapturedOnFirstValidState(t *testing.T) {
	h := newHarness(t)
	if h.m.HasHome() {
		t.Fatalf("home set before any state")
	}
	h.step()
	if !h.m.HasHome() {
		t.Fatalf("home not captured")
	}
	if got := h.m.Home().LatDeg; got != 47.0 {
		t.Fatalf("home lat = %v", got)
	}
}

func TestGuidedConvergence(t *testing.T) {
	h := newHarness(t)
	h.step() // capture home

	if err := h.m.SetArmed(true, true); err != nil {
		t.Fatalf("arm: %v", err)
	}

	st := h.state(t)
	tgtLat, tgtLon := geo.FromLocalTangentPlane(st.LatDeg, st.LonDeg, 200, 0)
	h.m.SetGuidedTarget(flightmode.GuidedTarget{LatDeg: tgtLat, LonDeg: tgtLon, AltMSL: st.AltMSL})
	if err := h.m.Request(flightmode.Guided, st); err != nil {
		t.Fatalf("enter guided: %v", err)
	}

	startErr := geo.Distance(st.LatDeg, st.LonDeg, tgtLat, tgtLon)
	arrived := -1
	for i := 0; i < 6000; i++ { // 60 simulated seconds
		h.step()
		cur := h.state(t)
		if geo.Distance(cur.LatDeg, cur.LonDeg, tgtLat, tgtLon) < 50 {
			arrived = i
			break
		}
	}
	if arrived < 0 {
		cur := h.state(t)
		t.Fatalf("no arrival in 60 s, remaining=%.0f m of %.0f m",
			geo.Distance(cur.LatDeg, cur.LonDeg, tgtLat, tgtLon), startErr)
	}

	// Altitude is held through the maneuver.
	cur := h.state(t)
	if d := cur.AltMSL - st.AltMSL; d < -30 || d > 30 {
		t.Fatalf("altitude drifted %.1f m during guided flight", d)
	}
}

func TestLinkTimeoutForcesRTLOnce(t *testing.T) {
	h := newHarness(t)
	h.step()
	if err := h.m.SetArmed(true, true); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if err := h.m.Request(flightmode.Loiter, h.state(t)); err != nil {
		t.Fatalf("enter loiter: %v", err)
	}

	// One ground-station heartbeat establishes the link.
	hb := mavlink.Frame(0, 255, 0, mavlink.MsgHeartbeat,
		mavlink.EncodeHeartbeat(mavlink.Heartbeat{SystemStatus: mavlink.StateActive}))
	h.d.inbound <- hb
	h.step()
	if h.m.Mode() != flightmode.Loiter {
		t.Fatalf("mode = %v before timeout", h.m.Mode())
	}

	// Still linked at 4 s of silence.
	for i := 0; i < 400; i++ {
		h.step()
	}
	if h.m.Mode() != flightmode.Loiter {
		t.Fatalf("mode = %v before the timeout elapsed", h.m.Mode())
	}

	// Past 5 s the failsafe forces RTL. The vehicle loiters at home, so
	// RTL's arrival check may cascade into LAND within the same tick.
	for i := 0; i < 200; i++ {
		h.step()
	}
	if m := h.m.Mode(); m != flightmode.ReturnToLaunch && m != flightmode.Land {
		t.Fatalf("mode = %v, want RTL (or LAND on arrival) after link timeout", m)
	}
	if !h.d.failsafeActive {
		t.Fatalf("failsafe not latched")
	}

	// The override fires once; holding in the failsafe mode, nothing flaps.
	for i := 0; i < 200; i++ {
		h.step()
		if m := h.m.Mode(); m != flightmode.ReturnToLaunch && m != flightmode.Land {
			t.Fatalf("mode = %v while link still lost", m)
		}
	}
}

func TestModeRequestDeniedWithoutHomeAcked(t *testing.T) {
	h := newHarness(t)
	// No step yet: no state, no home.

	payload := binary.LittleEndian.AppendUint32(nil, uint32(flightmode.Guided))
	payload = append(payload, 1, mavlink.ModeFlagCustomModeEnabled)
	h.d.inbound <- mavlink.Frame(0, 255, 0, mavlink.MsgSetMode, payload)

	h.d.tick(h.now.Add(10 * time.Millisecond))

	if h.m.Mode() != flightmode.Stabilize {
		t.Fatalf("mode = %v, want unchanged", h.m.Mode())
	}
	ids := h.drainOutbound()
	var sawAck, sawText bool
	for _, id := range ids {
		switch id {
		case mavlink.MsgCommandAck:
			sawAck = true
		case mavlink.MsgStatusText:
			sawText = true
		}
	}
	if !sawAck || !sawText {
		t.Fatalf("outbound ids = %v, want COMMAND_ACK and STATUSTEXT", ids)
	}
}

func TestModeRequestAcceptedAcked(t *testing.T) {
	h := newHarness(t)
	h.step()
	h.drainOutbound()

	payload := binary.LittleEndian.AppendUint32(nil, uint32(flightmode.AltitudeHold))
	payload = append(payload, 1, mavlink.ModeFlagCustomModeEnabled)
	h.d.inbound <- mavlink.Frame(0, 255, 0, mavlink.MsgSetMode, payload)
	h.step()

	if h.m.Mode() != flightmode.AltitudeHold {
		t.Fatalf("mode = %v, want ALTITUDE_HOLD", h.m.Mode())
	}
	var sawAck bool
	for _, id := range h.drainOutbound() {
		if id == mavlink.MsgCommandAck {
			sawAck = true
		}
	}
	if !sawAck {
		t.Fatalf("accepted mode change not acknowledged")
	}
}

func TestArmViaCommand(t *testing.T) {
	h := newHarness(t)
	h.step()

	p := binary.LittleEndian.AppendUint32(nil, 0x3F800000) // param1 = 1.0
	for i := 0; i < 6; i++ {
		p = binary.LittleEndian.AppendUint32(p, 0)
	}
	p = binary.LittleEndian.AppendUint16(p, mavlink.CmdComponentArmDisarm)
	p = append(p, 1, 1, 0)
	h.d.inbound <- mavlink.Frame(0, 255, 0, mavlink.MsgCommandLong, p)
	h.step()

	if !h.m.Armed() {
		t.Fatalf("arm command not applied")
	}
}

func TestNoCommandAppliedBeforeFirstState(t *testing.T) {
	h := newHarness(t)
	h.d.tick(h.now) // no sim step yet: ErrNoState

	if h.d.lastCmd != (vehicle.Command{}) {
		t.Fatalf("command produced without state: %+v", h.d.lastCmd)
	}
}

func TestNoPositionTelemetryBeforeFirstState(t *testing.T) {
	h := newHarness(t)
	h.d.tick(h.now) // ErrNoState: only liveness telemetry may go out

	ids := h.drainOutbound()
	var sawHeartbeat bool
	for _, id := range ids {
		switch id {
		case mavlink.MsgHeartbeat:
			sawHeartbeat = true
		case mavlink.MsgGPSRawInt, mavlink.MsgGlobalPositionInt,
			mavlink.MsgAttitude, mavlink.MsgVFRHud:
			t.Fatalf("message id %d sent before any vehicle state", id)
		}
	}
	if !sawHeartbeat {
		t.Fatalf("heartbeat missing, ids = %v", ids)
	}
}

// faultySource injects a panic into the state-read path.
type faultySource struct {
	veh   *sim.Vehicle
	fault bool
}

func (f *faultySource) Sample() (vehicle.Sample, bool) {
	if f.fault {
		panic("sensor fault")
	}
	return f.veh.Sample()
}

func (f *faultySource) Apply(cmd vehicle.Command) { f.veh.Apply(cmd) }

func TestTickSurvivesPanickingComponent(t *testing.T) {
	var cfg config.Config
	if err := config.DefaultAndValidate(&cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	veh := sim.New(config.SimConfig{LatDeg: 47, LonDeg: 8, AltMSLFt: 1640, FuelPct: 100})
	src := &faultySource{veh: veh}
	nav := mission.NewNavigator()
	machine := flightmode.NewMachine(cfg, nav)
	mon := failsafe.NewMonitor(cfg.Failsafe)
	boot := time.Unix(10000, 0)
	d := New(cfg, src, gateway.New(cfg, boot), nav, machine, mon, nil)

	now := boot.Add(10 * time.Millisecond)
	veh.Step(0.01, now)
	d.tick(now)
	if !machine.HasHome() {
		t.Fatalf("healthy tick did not run")
	}
	if err := machine.SetArmed(true, true); err != nil {
		t.Fatalf("arm: %v", err)
	}

	// A fault in the state read must not escape the tick boundary; the
	// vehicle gets the fallback command for that tick.
	src.fault = true
	now = now.Add(10 * time.Millisecond)
	d.tick(now)
	if d.lastCmd != vehicle.SafeFallback() {
		t.Fatalf("cmd = %+v after faulted tick, want safe fallback", d.lastCmd)
	}

	// The loop carries on once the fault clears.
	src.fault = false
	now = now.Add(10 * time.Millisecond)
	veh.Step(0.01, now)
	d.tick(now)
}
