// Package failsafe watches link health, fuel and the geofence, and emits
// edge-triggered events the mode state machine turns into forced
// transitions.
package failsafe

import (
	"fmt"
	"time"

	"mavbridge/internal/config"
	"mavbridge/internal/geo"
	"mavbridge/internal/vehicle"
)

// Event identifies one failsafe condition. Ordering is the arbitration
// priority when several conditions rise in the same tick: critical fuel
// first, then geofence breach, then link loss.
type Event int

const (
	EventCriticalFuel Event = iota
	EventGeofenceBreach
	EventLinkLost
)

func (e Event) String() string {
	switch e {
	case EventCriticalFuel:
		return "critical_fuel"
	case EventGeofenceBreach:
		return "geofence_breach"
	case EventLinkLost:
		return "link_lost"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Monitor evaluates the failsafe conditions once per tick. Each condition
// emits exactly one event on its rising edge; a condition must clear
// before it can fire again. Owned by the control loop driver.
type Monitor struct {
	cfg config.FailsafeConfig

	lastLink time.Time
	haveLink bool

	fuelLow  bool
	breached bool
	linkLost bool
}

func NewMonitor(cfg config.FailsafeConfig) *Monitor {
	return &Monitor{cfg: cfg}
}

// NoteLinkActivity records a successfully decoded inbound message. Link
// timeout is wall-clock gap since this instant, independent of queue
// occupancy.
func (m *Monitor) NoteLinkActivity(t time.Time) {
	m.lastLink = t
	m.haveLink = true
}

// Update evaluates all conditions for this tick and returns newly risen
// events in priority order.
func (m *Monitor) Update(now time.Time, st vehicle.State, home vehicle.Home, haveHome bool) []Event {
	var events []Event

	fuelLow := st.FuelPct < m.cfg.CriticalFuelPct
	if fuelLow && !m.fuelLow {
		events = append(events, EventCriticalFuel)
	}
	m.fuelLow = fuelLow

	breached := false
	if m.cfg.GeofenceRadiusM > 0 && haveHome {
		d := geo.Distance(st.LatDeg, st.LonDeg, home.LatDeg, home.LonDeg)
		breached = d > m.cfg.GeofenceRadiusM
	}
	if breached && !m.breached {
		events = append(events, EventGeofenceBreach)
	}
	m.breached = breached

	// Link loss only starts counting once the first message arrived;
	// before a GCS ever connects there is nothing to lose.
	linkLost := m.haveLink && now.Sub(m.lastLink) > m.cfg.LinkTimeout
	if linkLost && !m.linkLost {
		events = append(events, EventLinkLost)
	}
	m.linkLost = linkLost

	return events
}

// LinkHealthy reports whether inbound traffic has been seen within the
// timeout. Used by the telemetry path for system status.
func (m *Monitor) LinkHealthy(now time.Time) bool {
	return m.haveLink && now.Sub(m.lastLink) <= m.cfg.LinkTimeout
}
