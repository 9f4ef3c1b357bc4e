// Package driver runs the fixed-rate control loop: read state, drain
// inbound messages, evaluate failsafes, update the active mode, write the
// actuator command, emit telemetry. The loop itself never blocks; the two
// link goroutines talk to it only through bounded queues.
package driver

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"mavbridge/internal/config"
	"mavbridge/internal/failsafe"
	"mavbridge/internal/flightmode"
	"mavbridge/internal/gateway"
	"mavbridge/internal/mavlink"
	"mavbridge/internal/mission"
	"mavbridge/internal/vehicle"
)

const (
	inboundQueue  = 64
	outboundQueue = 256
	recvBufSize   = 2048
)

// Link is the ground-control endpoint the driver reads and writes.
type Link interface {
	Send(payload []byte) error
	Receive(buf []byte) ([]byte, error)
	Close() error
}

// Driver owns the per-tick sequencing. Everything except Run's goroutines
// executes on the loop goroutine.
type Driver struct {
	cfg config.Config

	src     vehicle.Source
	snap    *vehicle.Snapshotter
	gw      *gateway.Gateway
	nav     *mission.Navigator
	machine *flightmode.Machine
	mon     *failsafe.Monitor
	ep      Link

	inbound  chan []byte
	outbound chan []byte

	lastCmd        vehicle.Command
	failsafeActive bool
	staleLogged    bool
	outDropped     int
}

func New(cfg config.Config, src vehicle.Source, gw *gateway.Gateway, nav *mission.Navigator, machine *flightmode.Machine, mon *failsafe.Monitor, ep Link) *Driver {
	return &Driver{
		cfg:      cfg,
		src:      src,
		snap:     vehicle.NewSnapshotter(src, cfg.Vehicle.StaleTimeout),
		gw:       gw,
		nav:      nav,
		machine:  machine,
		mon:      mon,
		ep:       ep,
		inbound:  make(chan []byte, inboundQueue),
		outbound: make(chan []byte, outboundQueue),
	}
}

// Run drives the loop at the configured rate until the context is done.
func (d *Driver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return d.ep.Close()
	})

	g.Go(func() error { return d.receive(ctx) })
	g.Go(func() error { return d.send(ctx) })

	g.Go(func() error {
		period := time.Second / time.Duration(d.cfg.Loop.RateHz)
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		log.Printf("driver: control loop started rate_hz=%d", d.cfg.Loop.RateHz)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				d.tick(now)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Driver) receive(ctx context.Context) error {
	buf := make([]byte, recvBufSize)
	for {
		data, err := d.ep.Receive(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case d.inbound <- append([]byte(nil), data...):
		default:
			// Queue full: the loop is behind; newest traffic loses.
		}
	}
}

func (d *Driver) send(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-d.outbound:
			if err := d.ep.Send(frame); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("driver: send failed err=%v", err)
			}
		}
	}
}

// tick is one full pass of the control loop. Any panic anywhere in the
// tick is caught at this boundary, logged, and replaced with the safe
// fallback command for this tick only; the loop keeps running.
func (d *Driver) tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("driver: tick panic recovered err=%v", r)
			d.lastCmd = vehicle.SafeFallback()
			// The vehicle write itself may be the failing component.
			defer func() { _ = recover() }()
			d.src.Apply(d.lastCmd)
		}
	}()
	d.runTick(now)
}

func (d *Driver) runTick(now time.Time) {
	st, err := d.snap.Take(now)
	switch {
	case errors.Is(err, vehicle.ErrNoState):
		// Nothing to control yet; still service the link.
	case errors.Is(err, vehicle.ErrStaleState):
		if !d.staleLogged {
			log.Printf("driver: vehicle state stale age>%v", d.cfg.Vehicle.StaleTimeout)
			d.staleLogged = true
		}
	default:
		d.staleLogged = false
		if !d.machine.HasHome() {
			home := vehicle.Home{LatDeg: st.LatDeg, LonDeg: st.LonDeg, AltMSL: st.AltMSL}
			d.machine.SetHome(home)
			d.gw.SetHomeAltitude(home.AltMSL)
			log.Printf("driver: home captured lat=%.6f lon=%.6f alt_msl=%.1f", home.LatDeg, home.LonDeg, home.AltMSL)
		}
	}

	d.drainInbound(now, st)

	for _, frame := range d.gw.Tick(now) {
		d.out(frame)
	}

	haveState := !errors.Is(err, vehicle.ErrNoState)
	if haveState {
		for _, ev := range d.mon.Update(now, st, d.machine.Home(), d.machine.HasHome()) {
			mode, changed := d.machine.Force(ev, st)
			if changed {
				d.failsafeActive = true
				log.Printf("driver: failsafe override cause=%s mode=%s", ev, mode)
				d.out(d.gw.StatusText(mavlink.SeverityError, "failsafe "+ev.String()+": "+mode.String()))
			}
		}

		d.lastCmd = d.safeUpdate(st)
		d.src.Apply(d.lastCmd)
	}

	status := gateway.Status{
		Mode:         d.machine.Mode(),
		Armed:        d.machine.Armed(),
		Failsafe:     d.failsafeActive,
		HaveState:    haveState,
		MissionIndex: d.missionIndex(),
		ThrottlePct:  d.lastCmd.Throttle * 100,
	}
	for _, frame := range d.gw.Telemetry(now, st, status) {
		d.out(frame)
	}
}

// safeUpdate runs the mode computation behind its own recover barrier: a
// fault confined to the mode update degrades to the fallback command
// while the rest of the tick (failsafe, telemetry) still completes.
func (d *Driver) safeUpdate(st vehicle.State) (cmd vehicle.Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("driver: tick panic recovered err=%v", r)
			cmd = vehicle.SafeFallback()
		}
	}()
	dt := 1.0 / float64(d.cfg.Loop.RateHz)
	return d.machine.Update(st, dt)
}

// drainInbound empties the datagram queue and dispatches every decoded
// event in arrival order. Later events of the same kind supersede earlier
// ones (the setters overwrite), so only the most recent matters.
func (d *Driver) drainInbound(now time.Time, st vehicle.State) {
	for {
		select {
		case datagram := <-d.inbound:
			events, replies, ok := d.gw.HandleDatagram(now, datagram)
			if ok {
				d.mon.NoteLinkActivity(now)
			}
			for _, frame := range replies {
				d.out(frame)
			}
			for _, ev := range events {
				d.dispatch(ev, st)
			}
		default:
			return
		}
	}
}

func (d *Driver) dispatch(ev gateway.Event, st vehicle.State) {
	switch e := ev.(type) {
	case gateway.ModeRequest:
		if err := d.machine.Request(e.Mode, st); err != nil {
			log.Printf("driver: mode rejected mode=%s err=%v", e.Mode, err)
			d.out(d.gw.Ack(e.AckCommand, mavlink.ResultDenied))
			d.out(d.gw.StatusText(mavlink.SeverityWarning, err.Error()))
			return
		}
		d.failsafeActive = false
		log.Printf("driver: mode set mode=%s", e.Mode)
		d.out(d.gw.Ack(e.AckCommand, mavlink.ResultAccepted))

	case gateway.ArmRequest:
		if err := d.machine.SetArmed(e.Arm, st.OnGround); err != nil {
			log.Printf("driver: arm rejected arm=%v err=%v", e.Arm, err)
			d.out(d.gw.Ack(mavlink.CmdComponentArmDisarm, mavlink.ResultDenied))
			d.out(d.gw.StatusText(mavlink.SeverityWarning, err.Error()))
			return
		}
		log.Printf("driver: armed=%v", e.Arm)
		d.out(d.gw.Ack(mavlink.CmdComponentArmDisarm, mavlink.ResultAccepted))

	case gateway.RCUpdate:
		d.machine.SetRCInput(e.RC)

	case gateway.TargetUpdate:
		d.machine.SetGuidedTarget(e.Target)

	case gateway.MissionLoaded:
		if len(e.Mission.Items) == 0 {
			d.nav.Clear()
			log.Printf("driver: mission cleared")
			return
		}
		d.nav.Load(e.Mission)
		log.Printf("driver: mission loaded items=%d", len(e.Mission.Items))

	case gateway.MissionJump:
		if err := d.nav.SetCurrent(e.Seq); err != nil {
			log.Printf("driver: waypoint jump rejected seq=%d err=%v", e.Seq, err)
			d.out(d.gw.StatusText(mavlink.SeverityWarning, err.Error()))
		}
	}
}

func (d *Driver) missionIndex() int {
	if !d.nav.HasMission() || d.nav.Complete() {
		return -1
	}
	return d.nav.CurrentIndex()
}

// out enqueues a frame for the sender; a full queue drops telemetry
// rather than stalling the loop.
func (d *Driver) out(frame []byte) {
	select {
	case d.outbound <- frame:
	default:
		d.outDropped++
		if d.outDropped%100 == 1 {
			log.Printf("driver: outbound queue full dropped=%d", d.outDropped)
		}
	}
}
