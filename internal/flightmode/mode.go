// Package flightmode owns the active flight mode, validates transitions,
// and runs the per-tick control computation for whichever mode is active.
package flightmode

import "fmt"

// Mode is the closed set of flight modes. Exactly one is active at a time.
type Mode int

const (
	Stabilize Mode = iota
	AltitudeHold
	Loiter
	Guided
	Auto
	ReturnToLaunch
	Land
)

func (m Mode) String() string {
	switch m {
	case Stabilize:
		return "STABILIZE"
	case AltitudeHold:
		return "ALTITUDE_HOLD"
	case Loiter:
		return "LOITER"
	case Guided:
		return "GUIDED"
	case Auto:
		return "AUTO"
	case ReturnToLaunch:
		return "RETURN_TO_LAUNCH"
	case Land:
		return "LAND"
	}
	return fmt.Sprintf("MODE(%d)", int(m))
}

// Valid reports whether m is one of the seven defined modes.
func (m Mode) Valid() bool {
	return m >= Stabilize && m <= Land
}

// RCInput is the operator's normalized stick input: roll/pitch in [-1,1]
// scaled to the configured maximum tilt, yaw in [-1,1] scaled to the
// maximum yaw rate, throttle in [0,1].
type RCInput struct {
	Roll     float64
	Pitch    float64
	Yaw      float64
	Throttle float64
}

// GuidedTarget is the externally commanded point consumed by GUIDED.
type GuidedTarget struct {
	LatDeg float64
	LonDeg float64
	AltMSL float64

	Yaw    float64 // radians, desired heading
	HasYaw bool
}
