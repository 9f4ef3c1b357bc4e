package control

import (
	"math"

	"mavbridge/internal/config"
	"mavbridge/internal/geo"
	"mavbridge/internal/pid"
	"mavbridge/internal/vehicle"
)

// PositionTarget is the outer loop setpoint: a geodetic point plus an MSL
// altitude in meters.
type PositionTarget struct {
	LatDeg float64
	LonDeg float64
	AltMSL float64
}

// PositionOutput is what the outer loop hands to the inner loop and the
// active mode: attitude targets plus a throttle adjustment around the
// mode-supplied base throttle.
type PositionOutput struct {
	Roll        float64
	Pitch       float64
	ThrottleAdj float64
}

// PositionController is the outer loop: geodetic position error ->
// velocity target -> attitude target, with a dedicated climb-rate stage
// for the vertical axis.
type PositionController struct {
	maxTilt float64

	posNorth *pid.Controller
	posEast  *pid.Controller
	posVert  *pid.Controller

	velFwd   *pid.Controller
	velRight *pid.Controller
	climb    *pid.Controller
}

func NewPositionController(cfg config.ControlConfig) *PositionController {
	maxTilt := geo.Radians(cfg.MaxTiltDeg)
	h := cfg.MaxHorizSpeedMps
	v := cfg.MaxVertSpeedMps
	return &PositionController{
		maxTilt: maxTilt,

		posNorth: pid.New(pidCfg(cfg.PosHoriz, -h, h)),
		posEast:  pid.New(pidCfg(cfg.PosHoriz, -h, h)),
		posVert:  pid.New(pidCfg(cfg.PosVert, -v, v)),

		velFwd:   pid.New(pidCfg(cfg.VelHoriz, -maxTilt, maxTilt)),
		velRight: pid.New(pidCfg(cfg.VelHoriz, -maxTilt, maxTilt)),
		climb:    pid.New(pidCfg(cfg.ClimbRate, -1, 1)),
	}
}

// Update runs the full cascade toward a target point and altitude.
func (p *PositionController) Update(st vehicle.State, tgt PositionTarget, dt float64) PositionOutput {
	roll, pitch := p.Horizontal(st, tgt.LatDeg, tgt.LonDeg, dt)
	return PositionOutput{
		Roll:        roll,
		Pitch:       pitch,
		ThrottleAdj: p.Vertical(st, tgt.AltMSL, dt),
	}
}

// Horizontal runs the horizontal half of the cascade: position error in
// the local tangent plane -> north/east velocity targets -> velocity error
// rotated into body axes -> roll and pitch targets.
func (p *PositionController) Horizontal(st vehicle.State, latDeg, lonDeg float64, dt float64) (roll, pitch float64) {
	errNorth, errEast := geo.ToLocalTangentPlane(st.LatDeg, st.LonDeg, latDeg, lonDeg)

	velNorthTgt := p.posNorth.Update(errNorth, dt)
	velEastTgt := p.posEast.Update(errEast, dt)

	velErrNorth := velNorthTgt - st.VelNorth
	velErrEast := velEastTgt - st.VelEast

	// Rotate the velocity error from north/east into forward/right using
	// the current yaw.
	sinYaw, cosYaw := math.Sin(st.Yaw), math.Cos(st.Yaw)
	velErrFwd := cosYaw*velErrNorth + sinYaw*velErrEast
	velErrRight := -sinYaw*velErrNorth + cosYaw*velErrEast

	// Pitching nose-down increases forward speed, hence the negation.
	pitch = -p.velFwd.Update(velErrFwd, dt)
	roll = p.velRight.Update(velErrRight, dt)
	return roll, pitch
}

// Vertical holds an absolute altitude: altitude error -> climb-rate target
// -> throttle adjustment.
func (p *PositionController) Vertical(st vehicle.State, altMSL float64, dt float64) float64 {
	climbTgt := p.posVert.Update(altMSL-st.AltMSL, dt)
	return p.VerticalRate(st, climbTgt, dt)
}

// VerticalRate commands a climb rate directly (positive up). Used by LAND
// for its controlled descent and by ALTITUDE_HOLD via Vertical.
func (p *PositionController) VerticalRate(st vehicle.State, climbMps float64, dt float64) float64 {
	return p.climb.Update(climbMps-st.ClimbRate, dt)
}

// Reset zeroes every stage, including the climb-rate stage.
func (p *PositionController) Reset() {
	p.posNorth.Reset()
	p.posEast.Reset()
	p.posVert.Reset()
	p.velFwd.Reset()
	p.velRight.Reset()
	p.climb.Reset()
}

// YawRateForHeading converts a desired heading into a bounded yaw-rate
// command, proportional to the wrapped heading error.
func YawRateForHeading(currentYaw, desiredYaw, maxYawRate float64) float64 {
	err := geo.WrapPi(desiredYaw - currentYaw)
	rate := err // 1 rad error -> 1 rad/s, then clamped
	if rate > maxYawRate {
		rate = maxYawRate
	}
	if rate < -maxYawRate {
		rate = -maxYawRate
	}
	return rate
}
