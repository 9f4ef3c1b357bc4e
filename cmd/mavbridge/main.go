package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mavbridge/internal/config"
	"mavbridge/internal/driver"
	"mavbridge/internal/failsafe"
	"mavbridge/internal/flightmode"
	"mavbridge/internal/gateway"
	"mavbridge/internal/link"
	"mavbridge/internal/mission"
	"mavbridge/internal/sim"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if !cfg.Sim.Enable {
		log.Fatalf("no vehicle source configured: set sim.enable")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ep, err := link.New(cfg.Link.Listen, cfg.Link.Dest)
	if err != nil {
		log.Fatalf("ground link init failed: %v", err)
	}

	veh := sim.New(cfg.Sim)
	nav := mission.NewNavigator()
	machine := flightmode.NewMachine(cfg, nav)
	gw := gateway.New(cfg, time.Now())
	mon := failsafe.NewMonitor(cfg.Failsafe)

	log.Printf("mavbridge starting")
	log.Printf("link listen=%s dest=%s sysid=%d", cfg.Link.Listen, cfg.Link.Dest, cfg.Link.SystemID)
	log.Printf("sim lat=%.4f lon=%.4f alt_msl_ft=%.0f", cfg.Sim.LatDeg, cfg.Sim.LonDeg, cfg.Sim.AltMSLFt)

	go veh.Run(ctx.Done(), cfg.Vehicle.SamplePeriod)

	d := driver.New(cfg, veh, gw, nav, machine, mon, ep)
	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("control loop stopped: %v", err)
	}
	log.Printf("mavbridge stopping")
}
