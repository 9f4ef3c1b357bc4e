// Package sim is a kinematic vehicle standing in for a real simulator
// connection: actuator commands drive body rates, attitude tilts the
// velocity vector, throttle sets the climb rate. Deterministic, so the
// control cascade can be exercised tick by tick in tests.
package sim

import (
	"math"
	"sync"
	"time"

	"mavbridge/internal/config"
	"mavbridge/internal/geo"
	"mavbridge/internal/vehicle"
)

const (
	gravity = 9.81

	// Actuator authority: full deflection commands these body rates.
	maxRollRate = 2.0 // rad/s
	maxYawRate  = 1.0 // rad/s

	maxBank = 60 * math.Pi / 180

	// Full throttle above/below the midpoint commands this climb rate.
	maxClimb = 3.0 // m/s
	climbTau = 1.0 // s, first-order climb response

	dragCoeff = 0.2 // 1/s, horizontal velocity decay

	// Percent fuel per second at full throttle.
	burnRate = 0.02

	// initialAGL places the terrain under the spawn altitude.
	initialAGL = 100.0
)

// Vehicle integrates a point-mass model. Sample and Apply are safe to
// call from the control loop while Step runs on the sim goroutine.
type Vehicle struct {
	mu sync.Mutex

	latDeg, lonDeg float64
	altM           float64 // MSL meters
	groundM        float64 // terrain elevation, MSL meters

	roll, pitch, yaw             float64 // rad
	rollRate, pitchRate, yawRate float64 // rad/s

	velN, velE, climb float64 // m/s

	throttle float64
	fuelPct  float64
	onGround bool

	cmd      vehicle.Command
	lastStep time.Time
}

func New(cfg config.SimConfig) *Vehicle {
	alt := cfg.AltMSLFt * vehicle.FeetToMeters
	return &Vehicle{
		latDeg:  cfg.LatDeg,
		lonDeg:  cfg.LonDeg,
		altM:    alt,
		groundM: alt - initialAGL,
		yaw:     geo.WrapPi(geo.Radians(cfg.HeadingDeg)),
		fuelPct: cfg.FuelPct,
	}
}

// Apply stores the actuator command the next Step integrates.
func (v *Vehicle) Apply(cmd vehicle.Command) {
	v.mu.Lock()
	v.cmd = cmd.Clamp()
	v.mu.Unlock()
}

// Step advances the model by dt seconds, stamping the sample with now.
func (v *Vehicle) Step(dt float64, now time.Time) {
	if dt <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	cmd := v.cmd
	v.throttle = cmd.Throttle

	// Body rates follow the surfaces directly; bank is limited.
	v.rollRate = cmd.Aileron * maxRollRate
	v.pitchRate = cmd.Elevator * maxRollRate
	v.yawRate = cmd.Rudder * maxYawRate

	v.roll = clamp(v.roll+v.rollRate*dt, -maxBank, maxBank)
	v.pitch = clamp(v.pitch+v.pitchRate*dt, -maxBank, maxBank)
	v.yaw = geo.WrapPi(v.yaw + v.yawRate*dt)

	// Tilt accelerates the horizontal velocity: nose down pulls forward,
	// right bank pulls right.
	aFwd := -gravity * math.Sin(v.pitch)
	aRight := gravity * math.Sin(v.roll)
	sin, cos := math.Sin(v.yaw), math.Cos(v.yaw)
	aN := aFwd*cos - aRight*sin
	aE := aFwd*sin + aRight*cos

	v.velN += (aN - dragCoeff*v.velN) * dt
	v.velE += (aE - dragCoeff*v.velE) * dt

	// Throttle around the midpoint commands a climb rate.
	climbTarget := (cmd.Throttle - 0.5) * 2 * maxClimb
	v.climb += (climbTarget - v.climb) * math.Min(1, dt/climbTau)

	if v.onGround {
		if climbTarget > 0.1 {
			v.onGround = false
		} else {
			v.velN, v.velE, v.climb = 0, 0, 0
		}
	}

	north := v.velN * dt
	east := v.velE * dt
	v.latDeg, v.lonDeg = geo.FromLocalTangentPlane(v.latDeg, v.lonDeg, north, east)
	v.altM += v.climb * dt

	if v.altM <= v.groundM && v.climb <= 0 {
		v.altM = v.groundM
		v.climb = 0
		v.onGround = true
	}

	if v.fuelPct > 0 {
		v.fuelPct = math.Max(0, v.fuelPct-(0.2+0.8*cmd.Throttle)*burnRate*dt)
	}

	v.lastStep = now
}

// Sample returns the current state in the vehicle interface's native
// units. ok is false until the first Step.
func (v *Vehicle) Sample() (vehicle.Sample, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.lastStep.IsZero() {
		return vehicle.Sample{}, false
	}

	gs := math.Hypot(v.velN, v.velE)
	track := 0.0
	if gs > 0.1 {
		track = math.Atan2(v.velE, v.velN)
	}

	return vehicle.Sample{
		Time: v.lastStep,

		LatDeg:   v.latDeg,
		LonDeg:   v.lonDeg,
		AltMSLFt: v.altM / vehicle.FeetToMeters,
		AltAGLFt: (v.altM - v.groundM) / vehicle.FeetToMeters,

		RollDeg:    geo.Degrees(v.roll),
		PitchDeg:   geo.Degrees(v.pitch),
		HeadingDeg: headingDeg(v.yaw),

		RollRateDps:  geo.Degrees(v.rollRate),
		PitchRateDps: geo.Degrees(v.pitchRate),
		YawRateDps:   geo.Degrees(v.yawRate),

		AirspeedKt:       gs / vehicle.KnotsToMps,
		GroundSpeedKt:    gs / vehicle.KnotsToMps,
		GroundTrackDeg:   headingDeg(track),
		VerticalSpeedFpm: v.climb / vehicle.FpmToMps,

		ThrottlePct:   v.throttle * 100,
		EngineRunning: v.fuelPct > 0,
		FuelPct:       v.fuelPct,
		OnGround:      v.onGround,
	}, true
}

// Run steps the model in real time until the context is done.
func (v *Vehicle) Run(done <-chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			v.Step(now.Sub(last).Seconds(), now)
			last = now
		}
	}
}

func headingDeg(yaw float64) float64 {
	deg := geo.Degrees(yaw)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
