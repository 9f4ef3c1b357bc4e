// Package vehicle defines the state snapshot the control loop runs on, the
// interface to the simulated vehicle, and the normalized actuator command
// written back to it each tick.
package vehicle

import (
	"math"
	"time"
)

// Unit conversions from the vehicle interface's native aviation units.
const (
	FeetToMeters    = 0.3048
	KnotsToMps      = 0.514444
	FpmToMps        = FeetToMeters / 60.0
	DegreesToRadian = math.Pi / 180.0
)

// Sample is one raw reading from the vehicle interface, in its native
// units: degrees, feet, knots, feet per minute.
type Sample struct {
	Time time.Time

	LatDeg   float64
	LonDeg   float64
	AltMSLFt float64
	AltAGLFt float64

	RollDeg  float64
	PitchDeg float64
	// HeadingDeg is true heading, 0..360.
	HeadingDeg float64

	RollRateDps  float64
	PitchRateDps float64
	YawRateDps   float64

	AirspeedKt    float64
	GroundSpeedKt float64
	// GroundTrackDeg is the direction of travel over ground, 0..360.
	GroundTrackDeg   float64
	VerticalSpeedFpm float64

	ThrottlePct   float64
	EngineRunning bool
	FuelPct       float64
	OnGround      bool
}

// State is the per-tick capture the rest of the core reads: attitude in
// radians, speeds in m/s, altitudes in meters. Immutable once constructed;
// the control loop driver replaces it wholesale each tick.
type State struct {
	Time time.Time

	LatDeg float64
	LonDeg float64
	AltMSL float64 // meters
	AltAGL float64 // meters

	Roll  float64 // radians
	Pitch float64 // radians
	Yaw   float64 // radians, wrapped to [-pi, pi]

	RollRate  float64 // rad/s
	PitchRate float64 // rad/s
	YawRate   float64 // rad/s

	Airspeed    float64 // m/s
	GroundSpeed float64 // m/s
	ClimbRate   float64 // m/s, positive up

	// North/east/down velocity, derived from ground track, ground speed
	// and vertical speed.
	VelNorth float64
	VelEast  float64
	VelDown  float64

	ThrottlePct   float64
	EngineRunning bool
	FuelPct       float64
	OnGround      bool

	// Stale is set when the sample this state was built from exceeded the
	// staleness timeout and the last-known value was reused.
	Stale bool
}

// StateFromSample converts a raw sample into SI units and radians.
func StateFromSample(s Sample) State {
	track := s.GroundTrackDeg * DegreesToRadian
	gs := s.GroundSpeedKt * KnotsToMps
	climb := s.VerticalSpeedFpm * FpmToMps

	return State{
		Time: s.Time,

		LatDeg: s.LatDeg,
		LonDeg: s.LonDeg,
		AltMSL: s.AltMSLFt * FeetToMeters,
		AltAGL: s.AltAGLFt * FeetToMeters,

		Roll:  s.RollDeg * DegreesToRadian,
		Pitch: s.PitchDeg * DegreesToRadian,
		Yaw:   wrapPi(s.HeadingDeg * DegreesToRadian),

		RollRate:  s.RollRateDps * DegreesToRadian,
		PitchRate: s.PitchRateDps * DegreesToRadian,
		YawRate:   s.YawRateDps * DegreesToRadian,

		Airspeed:    s.AirspeedKt * KnotsToMps,
		GroundSpeed: gs,
		ClimbRate:   climb,

		VelNorth: gs * math.Cos(track),
		VelEast:  gs * math.Sin(track),
		VelDown:  -climb,

		ThrottlePct:   s.ThrottlePct,
		EngineRunning: s.EngineRunning,
		FuelPct:       s.FuelPct,
		OnGround:      s.OnGround,
	}
}

// Home is the geodetic point captured at the first valid state. Immutable
// thereafter; the return-to-launch target and projection origin.
type Home struct {
	LatDeg float64
	LonDeg float64
	AltMSL float64 // meters
}

func wrapPi(rad float64) float64 {
	for rad > math.Pi {
		rad -= 2 * math.Pi
	}
	for rad < -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}
