package flightmode

import (
	"errors"
	"fmt"

	"mavbridge/internal/config"
	"mavbridge/internal/control"
	"mavbridge/internal/failsafe"
	"mavbridge/internal/geo"
	"mavbridge/internal/mission"
	"mavbridge/internal/vehicle"
)

var (
	// ErrHomeNotSet rejects GUIDED/AUTO/RTL before the home position is
	// initialized.
	ErrHomeNotSet = errors.New("home position not set")
	// ErrNoMission rejects AUTO with no mission loaded.
	ErrNoMission = errors.New("no mission loaded")
	// ErrDisarmInFlight rejects disarming while airborne.
	ErrDisarmInFlight = errors.New("disarm rejected while airborne")
)

// Machine owns the active mode and the controllers the modes compose.
// All methods run on the control loop goroutine; not safe for concurrent
// use.
type Machine struct {
	ctl config.ControlConfig
	mis config.MissionConfig

	att *control.AttitudeController
	pos *control.PositionController
	nav *mission.Navigator

	mode  Mode
	armed bool

	home     vehicle.Home
	haveHome bool

	rc     RCInput
	guided *GuidedTarget

	// Per-mode captured state (the tagged-variant payloads).
	holdAlt    float64      // ALTITUDE_HOLD
	loiterAt   vehicle.Home // LOITER / GUIDED-without-target
	landAt     vehicle.Home // LAND horizontal hold
	autoLoiter bool         // AUTO degraded to loiter after completion
}

// NewMachine starts in STABILIZE, disarmed.
func NewMachine(cfg config.Config, nav *mission.Navigator) *Machine {
	return &Machine{
		ctl:  cfg.Control,
		mis:  cfg.Mission,
		att:  control.NewAttitudeController(cfg.Control),
		pos:  control.NewPositionController(cfg.Control),
		nav:  nav,
		mode: Stabilize,
	}
}

func (m *Machine) Mode() Mode { return m.mode }

func (m *Machine) Armed() bool { return m.armed }

func (m *Machine) HasHome() bool { return m.haveHome }

func (m *Machine) Home() vehicle.Home { return m.home }

// SetHome captures the home position once; later calls are ignored.
func (m *Machine) SetHome(h vehicle.Home) {
	if m.haveHome {
		return
	}
	m.home = h
	m.haveHome = true
}

// SetRCInput stores the latest operator stick values.
func (m *Machine) SetRCInput(rc RCInput) { m.rc = rc }

// SetGuidedTarget stores the externally commanded point for GUIDED.
func (m *Machine) SetGuidedTarget(t GuidedTarget) { m.guided = &t }

// SetArmed arms or disarms. Disarming is rejected while airborne.
func (m *Machine) SetArmed(armed, onGround bool) error {
	if !armed && m.armed && !onGround {
		return ErrDisarmInFlight
	}
	m.armed = armed
	return nil
}

// Request validates and performs an operator-requested transition. On
// rejection the mode is unchanged and the reason is returned for the
// protocol gateway to acknowledge.
func (m *Machine) Request(mode Mode, st vehicle.State) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %d", int(mode))
	}
	switch mode {
	case Guided, Auto, ReturnToLaunch:
		if !m.haveHome {
			return fmt.Errorf("%s: %w", mode, ErrHomeNotSet)
		}
		if mode == Auto && !m.nav.HasMission() {
			return fmt.Errorf("%s: %w", mode, ErrNoMission)
		}
	}
	m.enter(mode, st)
	return nil
}

// Force applies a failsafe override. It always succeeds, except that LAND
// is never overridden. RTL without a home position degrades to LAND.
func (m *Machine) Force(ev failsafe.Event, st vehicle.State) (Mode, bool) {
	if m.mode == Land {
		return m.mode, false
	}
	target := ReturnToLaunch
	if ev == failsafe.EventCriticalFuel {
		target = Land
	}
	if target == ReturnToLaunch && !m.haveHome {
		target = Land
	}
	if target == m.mode {
		return m.mode, false
	}
	m.enter(target, st)
	return target, true
}

// enter switches mode, captures the new mode's state, and resets every
// controller about to become active.
func (m *Machine) enter(mode Mode, st vehicle.State) {
	m.att.Reset()
	m.pos.Reset()
	m.autoLoiter = false

	// A guided setpoint belongs to one GUIDED session; leaving the mode
	// discards it so a later re-entry loiters until a new one arrives.
	if m.mode == Guided && mode != Guided {
		m.guided = nil
	}

	here := vehicle.Home{LatDeg: st.LatDeg, LonDeg: st.LonDeg, AltMSL: st.AltMSL}
	switch mode {
	case AltitudeHold:
		m.holdAlt = st.AltMSL
	case Loiter:
		m.loiterAt = here
	case Guided:
		if m.guided == nil {
			m.loiterAt = here
		}
	case Land:
		m.landAt = here
	}
	m.mode = mode
}

// Update runs the active mode's per-tick computation and returns the
// actuator command for this tick. Disarmed, the output is the safe
// fallback regardless of mode.
func (m *Machine) Update(st vehicle.State, dt float64) vehicle.Command {
	if !m.armed {
		return vehicle.SafeFallback()
	}

	switch m.mode {
	case Stabilize:
		return m.updateStabilize(st, dt)
	case AltitudeHold:
		return m.updateAltitudeHold(st, dt)
	case Loiter:
		return m.updatePoint(st, m.loiterAt, 0, false, dt)
	case Guided:
		return m.updateGuided(st, dt)
	case Auto:
		return m.updateAuto(st, dt)
	case ReturnToLaunch:
		return m.updateRTL(st, dt)
	case Land:
		return m.updateLand(st, dt)
	}
	return vehicle.SafeFallback()
}

func (m *Machine) maxTilt() float64    { return geo.Radians(m.ctl.MaxTiltDeg) }
func (m *Machine) maxYawRate() float64 { return geo.Radians(m.ctl.MaxYawRateDps) }

func (m *Machine) updateStabilize(st vehicle.State, dt float64) vehicle.Command {
	tgt := control.AttitudeTarget{
		Roll:    m.rc.Roll * m.maxTilt(),
		Pitch:   m.rc.Pitch * m.maxTilt(),
		YawRate: m.rc.Yaw * m.maxYawRate(),
	}
	cmd := m.att.Update(st, tgt, dt)
	cmd.Throttle = m.rc.Throttle
	return cmd.Clamp()
}

func (m *Machine) updateAltitudeHold(st vehicle.State, dt float64) vehicle.Command {
	tgt := control.AttitudeTarget{
		Roll:    m.rc.Roll * m.maxTilt(),
		Pitch:   m.rc.Pitch * m.maxTilt(),
		YawRate: m.rc.Yaw * m.maxYawRate(),
	}
	cmd := m.att.Update(st, tgt, dt)
	cmd.Throttle = m.ctl.BaseThrottle + m.pos.Vertical(st, m.holdAlt, dt)
	return cmd.Clamp()
}

// updatePoint is the shared full-cascade hold used by LOITER, GUIDED and
// RTL: fly to a point and altitude, optionally turning to a commanded
// heading.
func (m *Machine) updatePoint(st vehicle.State, at vehicle.Home, yaw float64, hasYaw bool, dt float64) vehicle.Command {
	out := m.pos.Update(st, control.PositionTarget{LatDeg: at.LatDeg, LonDeg: at.LonDeg, AltMSL: at.AltMSL}, dt)

	yawRate := m.rc.Yaw * m.maxYawRate()
	if hasYaw {
		yawRate = control.YawRateForHeading(st.Yaw, yaw, m.maxYawRate())
	}

	cmd := m.att.Update(st, control.AttitudeTarget{Roll: out.Roll, Pitch: out.Pitch, YawRate: yawRate}, dt)
	cmd.Throttle = m.ctl.BaseThrottle + out.ThrottleAdj
	return cmd.Clamp()
}

func (m *Machine) updateGuided(st vehicle.State, dt float64) vehicle.Command {
	if m.guided == nil {
		// No target commanded yet: behave as LOITER at the entry point.
		return m.updatePoint(st, m.loiterAt, 0, false, dt)
	}
	t := *m.guided
	at := vehicle.Home{LatDeg: t.LatDeg, LonDeg: t.LonDeg, AltMSL: t.AltMSL}
	return m.updatePoint(st, at, t.Yaw, t.HasYaw, dt)
}

func (m *Machine) updateAuto(st vehicle.State, dt float64) vehicle.Command {
	item, ok := m.nav.Current()
	if !ok {
		// Mission empty or complete: degrade to loitering at the last
		// waypoint.
		if last, haveLast := m.nav.LastItem(); haveLast {
			if !m.autoLoiter {
				m.autoLoiter = true
			}
			at := vehicle.Home{LatDeg: last.LatDeg, LonDeg: last.LonDeg, AltMSL: last.AltMSL}
			return m.updatePoint(st, at, 0, false, dt)
		}
		return m.updatePoint(st, m.homeOrHere(st), 0, false, dt)
	}

	if m.nav.CheckArrival(st.LatDeg, st.LonDeg) {
		switch item.Action {
		case mission.ActionLand:
			m.enter(Land, st)
			return m.updateLand(st, dt)
		case mission.ActionLoiter:
			// Loiter items hold position; the cursor stays put until a
			// set-current jump moves it.
		default:
			m.nav.Advance()
			if next, stillActive := m.nav.Current(); stillActive {
				item = next
			}
		}
	}

	at := vehicle.Home{LatDeg: item.LatDeg, LonDeg: item.LonDeg, AltMSL: item.AltMSL}
	return m.updatePoint(st, at, 0, false, dt)
}

func (m *Machine) updateRTL(st vehicle.State, dt float64) vehicle.Command {
	target := vehicle.Home{
		LatDeg: m.home.LatDeg,
		LonDeg: m.home.LonDeg,
		AltMSL: m.home.AltMSL + m.mis.RTLAltitudeM,
	}
	if geo.Distance(st.LatDeg, st.LonDeg, target.LatDeg, target.LonDeg) < m.mis.AcceptRadiusM {
		m.enter(Land, st)
		return m.updateLand(st, dt)
	}
	return m.updatePoint(st, target, 0, false, dt)
}

func (m *Machine) updateLand(st vehicle.State, dt float64) vehicle.Command {
	if st.OnGround {
		// Terminal: motors to idle, surfaces neutral.
		return vehicle.SafeFallback()
	}

	roll, pitch := m.pos.Horizontal(st, m.landAt.LatDeg, m.landAt.LonDeg, dt)
	cmd := m.att.Update(st, control.AttitudeTarget{Roll: roll, Pitch: pitch}, dt)
	cmd.Throttle = m.ctl.BaseThrottle + m.pos.VerticalRate(st, -m.mis.LandDescentRateMps, dt)
	return cmd.Clamp()
}

func (m *Machine) homeOrHere(st vehicle.State) vehicle.Home {
	if m.haveHome {
		return m.home
	}
	return vehicle.Home{LatDeg: st.LatDeg, LonDeg: st.LonDeg, AltMSL: st.AltMSL}
}
