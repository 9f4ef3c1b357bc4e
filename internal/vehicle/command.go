package vehicle

// Command is the normalized actuator output produced fresh each tick.
// Attitude axes are in [-1, 1], throttle and collective in [0, 1].
type Command struct {
	Aileron  float64
	Elevator float64
	Rudder   float64
	Throttle float64

	// Collective is only meaningful for rotary/VTOL profiles; fixed-wing
	// consumers ignore it.
	Collective float64
}

// Clamp returns the command with every axis forced into its declared range.
func (c Command) Clamp() Command {
	c.Aileron = clamp(c.Aileron, -1, 1)
	c.Elevator = clamp(c.Elevator, -1, 1)
	c.Rudder = clamp(c.Rudder, -1, 1)
	c.Throttle = clamp(c.Throttle, 0, 1)
	c.Collective = clamp(c.Collective, 0, 1)
	return c
}

// SafeFallback is the command written when a tick fails or the vehicle is
// disarmed: zero deflection, minimum throttle.
func SafeFallback() Command {
	return Command{}
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

// Source is the simulated vehicle interface. It produces state samples at
// its own native rate and applies one command per control-loop tick.
type Source interface {
	// Sample returns the latest reading. ok is false before the first
	// sample is available.
	Sample() (s Sample, ok bool)

	// Apply writes a normalized actuator command. The vehicle applies it
	// within one of its own ticks.
	Apply(cmd Command)
}
