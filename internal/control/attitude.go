// Package control implements the two control cascades: the inner
// attitude/rate loop producing surface deflections, and the outer
// position/velocity loop producing attitude targets and a throttle
// adjustment.
package control

import (
	"mavbridge/internal/config"
	"mavbridge/internal/geo"
	"mavbridge/internal/pid"
	"mavbridge/internal/vehicle"
)

// AttitudeTarget is the inner loop setpoint. Roll and pitch are absolute
// attitudes in radians; yaw is commanded as a rate (rad/s) because heading
// is handled by the navigator or the operator, never as an inner-loop
// attitude.
type AttitudeTarget struct {
	Roll    float64
	Pitch   float64
	YawRate float64
}

// AttitudeController is the inner loop: two cascaded stages per axis for
// roll and pitch (attitude error -> rate target -> deflection), a single
// rate stage for yaw.
type AttitudeController struct {
	rollAtt  *pid.Controller
	pitchAtt *pid.Controller

	rollRate  *pid.Controller
	pitchRate *pid.Controller
	yawRate   *pid.Controller
}

func NewAttitudeController(cfg config.ControlConfig) *AttitudeController {
	maxRate := geo.Radians(cfg.MaxBodyRateDps)
	return &AttitudeController{
		rollAtt:  pid.New(pidCfg(cfg.RollAttitude, -maxRate, maxRate)),
		pitchAtt: pid.New(pidCfg(cfg.PitchAttitude, -maxRate, maxRate)),

		rollRate:  pid.New(pidCfg(cfg.RollRate, -1, 1)),
		pitchRate: pid.New(pidCfg(cfg.PitchRate, -1, 1)),
		yawRate:   pid.New(pidCfg(cfg.YawRate, -1, 1)),
	}
}

// Update runs both stages and returns a command with the attitude axes
// populated. Throttle is left zero: it is mode-dependent, not
// attitude-dependent, and filled in by the caller.
func (a *AttitudeController) Update(st vehicle.State, tgt AttitudeTarget, dt float64) vehicle.Command {
	rollRateTgt := a.rollAtt.Update(geo.WrapPi(tgt.Roll-st.Roll), dt)
	pitchRateTgt := a.pitchAtt.Update(geo.WrapPi(tgt.Pitch-st.Pitch), dt)

	return vehicle.Command{
		Aileron:  a.rollRate.Update(rollRateTgt-st.RollRate, dt),
		Elevator: a.pitchRate.Update(pitchRateTgt-st.PitchRate, dt),
		Rudder:   a.yawRate.Update(tgt.YawRate-st.YawRate, dt),
	}
}

// Reset zeroes every stage. Called on each mode transition so an idle
// controller cannot kick when it becomes active.
func (a *AttitudeController) Reset() {
	a.rollAtt.Reset()
	a.pitchAtt.Reset()
	a.rollRate.Reset()
	a.pitchRate.Reset()
	a.yawRate.Reset()
}

func pidCfg(g config.Gains, outMin, outMax float64) pid.Config {
	return pid.Config{
		KP:            g.P,
		KI:            g.I,
		KD:            g.D,
		IntegralBound: g.IMax,
		OutMin:        outMin,
		OutMax:        outMax,
	}
}
