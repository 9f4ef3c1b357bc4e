// Package pid implements the single-axis feedback controller shared by the
// attitude and position cascades.
package pid

// Config holds the gains and bounds for one controlled axis. All values
// come from configuration; nothing here is tuned for a particular vehicle.
type Config struct {
	KP float64
	KI float64
	KD float64

	// IntegralBound clamps the integrator accumulator to
	// [-IntegralBound, IntegralBound] (anti-windup by clamping, not by
	// disabling integration). Zero disables the integrator entirely.
	IntegralBound float64

	OutMin float64
	OutMax float64
}

// Controller is a PID controller operating on an externally computed error.
//
// We keep this self-contained to avoid extra dependencies.
//
// Not safe for concurrent use.
type Controller struct {
	cfg Config

	integral  float64
	prevError float64
	havePrev  bool
}

func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

// Update advances the controller by dt seconds and returns the clamped
// control output. The derivative term is zero on the first call after New
// or Reset, since no previous error exists.
func (c *Controller) Update(err, dt float64) float64 {
	if dt <= 0 {
		// Keep behavior deterministic: no time => no update.
		return 0
	}

	if c.cfg.IntegralBound > 0 {
		c.integral += err * dt
		if c.integral > c.cfg.IntegralBound {
			c.integral = c.cfg.IntegralBound
		}
		if c.integral < -c.cfg.IntegralBound {
			c.integral = -c.cfg.IntegralBound
		}
	}

	derivative := 0.0
	if c.havePrev {
		derivative = (err - c.prevError) / dt
	}
	c.prevError = err
	c.havePrev = true

	out := c.cfg.KP*err + c.cfg.KI*c.integral + c.cfg.KD*derivative
	if out < c.cfg.OutMin {
		out = c.cfg.OutMin
	}
	if out > c.cfg.OutMax {
		out = c.cfg.OutMax
	}
	return out
}

// Reset zeroes the accumulator and previous error. Mandatory on mode entry
// so a controller that was idle does not kick when it becomes active.
func (c *Controller) Reset() {
	c.integral = 0
	c.prevError = 0
	c.havePrev = false
}

// Integral exposes the accumulator for tests.
func (c *Controller) Integral() float64 { return c.integral }
