// Package config holds the single immutable configuration value for the
// flight controller. It is loaded once at startup and passed by reference
// into every component constructor; no component reads ambient state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Loop      LoopConfig      `yaml:"loop"`
	Link      LinkConfig      `yaml:"link"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Control   ControlConfig   `yaml:"control"`
	Failsafe  FailsafeConfig  `yaml:"failsafe"`
	Mission   MissionConfig   `yaml:"mission"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
	Sim       SimConfig       `yaml:"sim"`
}

type LoopConfig struct {
	RateHz int `yaml:"rate_hz"`
}

type LinkConfig struct {
	// Listen is the local UDP address for inbound ground-control traffic.
	Listen string `yaml:"listen"`
	// Dest is the ground-control station address for outbound telemetry.
	Dest string `yaml:"dest"`

	SystemID    uint8 `yaml:"system_id"`
	ComponentID uint8 `yaml:"component_id"`
}

// TelemetryConfig sets per-message output rates in Hz.
type TelemetryConfig struct {
	HeartbeatHz float64 `yaml:"heartbeat_hz"`
	AttitudeHz  float64 `yaml:"attitude_hz"`
	PositionHz  float64 `yaml:"position_hz"`
	GPSHz       float64 `yaml:"gps_hz"`
	HUDHz       float64 `yaml:"hud_hz"`
	SysStatusHz float64 `yaml:"sys_status_hz"`
}

// Gains is one axis worth of PID tuning. IMax bounds the integrator
// accumulator (anti-windup); zero disables the integral term.
type Gains struct {
	P    float64 `yaml:"p"`
	I    float64 `yaml:"i"`
	D    float64 `yaml:"d"`
	IMax float64 `yaml:"imax"`
}

type ControlConfig struct {
	// Limits shared by the modes and both control cascades.
	MaxTiltDeg       float64 `yaml:"max_tilt_deg"`
	MaxYawRateDps    float64 `yaml:"max_yaw_rate_dps"`
	MaxBodyRateDps   float64 `yaml:"max_body_rate_dps"`
	MaxHorizSpeedMps float64 `yaml:"max_horiz_speed_mps"`
	MaxVertSpeedMps  float64 `yaml:"max_vert_speed_mps"`

	// BaseThrottle is the nominal power the climb-rate stage adjusts
	// around (e.g. hover power), in [0,1].
	BaseThrottle float64 `yaml:"base_throttle"`

	// Inner loop: attitude error -> body rate target, rate error -> surface.
	RollAttitude  Gains `yaml:"roll_attitude"`
	PitchAttitude Gains `yaml:"pitch_attitude"`
	RollRate      Gains `yaml:"roll_rate"`
	PitchRate     Gains `yaml:"pitch_rate"`
	YawRate       Gains `yaml:"yaw_rate"`

	// Outer loop: position error -> velocity target, velocity error -> tilt,
	// climb-rate error -> throttle adjustment.
	PosHoriz  Gains `yaml:"pos_horiz"`
	PosVert   Gains `yaml:"pos_vert"`
	VelHoriz  Gains `yaml:"vel_horiz"`
	ClimbRate Gains `yaml:"climb_rate"`
}

type FailsafeConfig struct {
	LinkTimeout     time.Duration `yaml:"link_timeout"`
	CriticalFuelPct float64       `yaml:"critical_fuel_pct"`
	// GeofenceRadiusM is measured from the home position. Zero disables
	// the geofence.
	GeofenceRadiusM float64 `yaml:"geofence_radius_m"`
}

type MissionConfig struct {
	// AcceptRadiusM is applied to uploaded items that carry no acceptance
	// radius of their own, and to GUIDED/RTL arrival checks.
	AcceptRadiusM float64 `yaml:"accept_radius_m"`
	// RTLAltitudeM is the altitude above home flown during return-to-launch.
	RTLAltitudeM float64 `yaml:"rtl_altitude_m"`
	// LandDescentRateMps is the commanded descent rate in LAND.
	LandDescentRateMps float64 `yaml:"land_descent_rate_mps"`
}

type VehicleConfig struct {
	// SamplePeriod is the vehicle interface's expected sample period.
	SamplePeriod time.Duration `yaml:"sample_period"`
	// StaleTimeout marks the state stale when no fresh sample arrived.
	// Defaults to twice the sample period.
	StaleTimeout time.Duration `yaml:"stale_timeout"`
}

type SimConfig struct {
	Enable     bool    `yaml:"enable"`
	LatDeg     float64 `yaml:"lat_deg"`
	LonDeg     float64 `yaml:"lon_deg"`
	AltMSLFt   float64 `yaml:"alt_msl_ft"`
	HeadingDeg float64 `yaml:"heading_deg"`
	FuelPct    float64 `yaml:"fuel_pct"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills defaults in place and rejects values the control
// core cannot run with. Defaults are bring-up values, not tuned for any
// real vehicle.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Loop.RateHz == 0 {
		cfg.Loop.RateHz = 100
	}
	if cfg.Loop.RateHz < 0 {
		return fmt.Errorf("loop.rate_hz must be > 0")
	}

	if cfg.Link.Listen == "" {
		cfg.Link.Listen = ":14551"
	}
	if cfg.Link.Dest == "" {
		cfg.Link.Dest = "127.0.0.1:14550"
	}
	if cfg.Link.SystemID == 0 {
		cfg.Link.SystemID = 1
	}
	if cfg.Link.ComponentID == 0 {
		cfg.Link.ComponentID = 1
	}

	t := &cfg.Telemetry
	if t.HeartbeatHz == 0 {
		t.HeartbeatHz = 1
	}
	if t.AttitudeHz == 0 {
		t.AttitudeHz = 50
	}
	if t.PositionHz == 0 {
		t.PositionHz = 10
	}
	if t.GPSHz == 0 {
		t.GPSHz = 5
	}
	if t.HUDHz == 0 {
		t.HUDHz = 10
	}
	if t.SysStatusHz == 0 {
		t.SysStatusHz = 1
	}
	for name, hz := range map[string]float64{
		"telemetry.heartbeat_hz":  t.HeartbeatHz,
		"telemetry.attitude_hz":   t.AttitudeHz,
		"telemetry.position_hz":   t.PositionHz,
		"telemetry.gps_hz":        t.GPSHz,
		"telemetry.hud_hz":        t.HUDHz,
		"telemetry.sys_status_hz": t.SysStatusHz,
	} {
		if hz < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}

	c := &cfg.Control
	if c.MaxTiltDeg == 0 {
		c.MaxTiltDeg = 30
	}
	if c.MaxTiltDeg < 0 || c.MaxTiltDeg > 80 {
		return fmt.Errorf("control.max_tilt_deg must be in (0, 80]")
	}
	if c.MaxYawRateDps == 0 {
		c.MaxYawRateDps = 45
	}
	if c.MaxBodyRateDps == 0 {
		c.MaxBodyRateDps = 120
	}
	if c.MaxHorizSpeedMps == 0 {
		c.MaxHorizSpeedMps = 15
	}
	if c.MaxVertSpeedMps == 0 {
		c.MaxVertSpeedMps = 3
	}
	if c.BaseThrottle == 0 {
		c.BaseThrottle = 0.5
	}
	if c.BaseThrottle < 0 || c.BaseThrottle > 1 {
		return fmt.Errorf("control.base_throttle must be in [0,1]")
	}

	defaultGains(&c.RollAttitude, Gains{P: 4.0, IMax: 0.5})
	defaultGains(&c.PitchAttitude, Gains{P: 4.0, IMax: 0.5})
	defaultGains(&c.RollRate, Gains{P: 0.15, I: 0.05, D: 0.003, IMax: 0.3})
	defaultGains(&c.PitchRate, Gains{P: 0.15, I: 0.05, D: 0.003, IMax: 0.3})
	defaultGains(&c.YawRate, Gains{P: 0.2, I: 0.02, IMax: 0.3})
	defaultGains(&c.PosHoriz, Gains{P: 0.8, IMax: 5})
	defaultGains(&c.PosVert, Gains{P: 1.0, IMax: 3})
	defaultGains(&c.VelHoriz, Gains{P: 0.12, I: 0.02, IMax: 2})
	defaultGains(&c.ClimbRate, Gains{P: 0.12, I: 0.06, IMax: 2})

	f := &cfg.Failsafe
	if f.LinkTimeout == 0 {
		f.LinkTimeout = 5 * time.Second
	}
	if f.LinkTimeout < 0 {
		return fmt.Errorf("failsafe.link_timeout must be > 0")
	}
	if f.CriticalFuelPct == 0 {
		f.CriticalFuelPct = 10
	}
	if f.CriticalFuelPct < 0 || f.CriticalFuelPct >= 100 {
		return fmt.Errorf("failsafe.critical_fuel_pct must be in [0, 100)")
	}
	if f.GeofenceRadiusM < 0 {
		return fmt.Errorf("failsafe.geofence_radius_m must be >= 0")
	}

	m := &cfg.Mission
	if m.AcceptRadiusM == 0 {
		m.AcceptRadiusM = 50
	}
	if m.AcceptRadiusM < 0 {
		return fmt.Errorf("mission.accept_radius_m must be > 0")
	}
	if m.RTLAltitudeM == 0 {
		m.RTLAltitudeM = 100
	}
	if m.RTLAltitudeM < 0 {
		return fmt.Errorf("mission.rtl_altitude_m must be > 0")
	}
	if m.LandDescentRateMps == 0 {
		m.LandDescentRateMps = 1.5
	}
	if m.LandDescentRateMps < 0 {
		return fmt.Errorf("mission.land_descent_rate_mps must be > 0")
	}

	v := &cfg.Vehicle
	if v.SamplePeriod == 0 {
		v.SamplePeriod = 10 * time.Millisecond
	}
	if v.SamplePeriod < 0 {
		return fmt.Errorf("vehicle.sample_period must be > 0")
	}
	if v.StaleTimeout == 0 {
		v.StaleTimeout = 2 * v.SamplePeriod
	}
	if v.StaleTimeout < v.SamplePeriod {
		return fmt.Errorf("vehicle.stale_timeout must be >= vehicle.sample_period")
	}

	s := &cfg.Sim
	if s.Enable {
		if s.LatDeg == 0 && s.LonDeg == 0 {
			s.LatDeg = 47.3769
			s.LonDeg = 8.5417
		}
		if s.AltMSLFt == 0 {
			s.AltMSLFt = 1500
		}
		if s.FuelPct == 0 {
			s.FuelPct = 100
		}
	}

	return nil
}

func defaultGains(g *Gains, def Gains) {
	if g.P == 0 && g.I == 0 && g.D == 0 {
		*g = def
	}
	if g.IMax == 0 && g.I != 0 {
		g.IMax = def.IMax
	}
}
