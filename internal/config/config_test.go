package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Loop.RateHz != 100 {
		t.Fatalf("rate=%d want 100", cfg.Loop.RateHz)
	}
	if cfg.Telemetry.AttitudeHz != 50 {
		t.Fatalf("attitude_hz=%v want 50", cfg.Telemetry.AttitudeHz)
	}
	if cfg.Failsafe.LinkTimeout != 5*time.Second {
		t.Fatalf("link_timeout=%v want 5s", cfg.Failsafe.LinkTimeout)
	}
	if cfg.Vehicle.StaleTimeout != 2*cfg.Vehicle.SamplePeriod {
		t.Fatalf("stale_timeout=%v want 2x sample period", cfg.Vehicle.StaleTimeout)
	}
	if cfg.Control.RollRate.P == 0 {
		t.Fatalf("roll rate gains not defaulted")
	}
	if cfg.Link.SystemID != 1 || cfg.Link.ComponentID != 1 {
		t.Fatalf("ids=%d/%d want 1/1", cfg.Link.SystemID, cfg.Link.ComponentID)
	}
}

func TestLoad_OverridesKept(t *testing.T) {
	cfg, err := Load(writeTemp(t, `
loop:
  rate_hz: 50
control:
  max_tilt_deg: 20
  roll_rate:
    p: 0.5
    i: 0.1
    imax: 0.7
failsafe:
  critical_fuel_pct: 15
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Loop.RateHz != 50 {
		t.Fatalf("rate=%d want 50", cfg.Loop.RateHz)
	}
	if cfg.Control.MaxTiltDeg != 20 {
		t.Fatalf("tilt=%v want 20", cfg.Control.MaxTiltDeg)
	}
	if cfg.Control.RollRate.P != 0.5 || cfg.Control.RollRate.IMax != 0.7 {
		t.Fatalf("roll rate gains not preserved: %+v", cfg.Control.RollRate)
	}
	if cfg.Failsafe.CriticalFuelPct != 15 {
		t.Fatalf("fuel=%v want 15", cfg.Failsafe.CriticalFuelPct)
	}
}

func TestDefaultAndValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative loop rate", func(c *Config) { c.Loop.RateHz = -1 }},
		{"tilt too large", func(c *Config) { c.Control.MaxTiltDeg = 85 }},
		{"base throttle out of range", func(c *Config) { c.Control.BaseThrottle = 1.5 }},
		{"fuel pct out of range", func(c *Config) { c.Failsafe.CriticalFuelPct = 100 }},
		{"negative geofence", func(c *Config) { c.Failsafe.GeofenceRadiusM = -1 }},
		{"negative accept radius", func(c *Config) { c.Mission.AcceptRadiusM = -5 }},
		{"stale timeout below sample period", func(c *Config) {
			c.Vehicle.SamplePeriod = 20 * time.Millisecond
			c.Vehicle.StaleTimeout = 10 * time.Millisecond
		}},
	}
	for _, tc := range cases {
		var cfg Config
		tc.mutate(&cfg)
		if err := DefaultAndValidate(&cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
