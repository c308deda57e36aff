package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/openreef/aquamon/controller"
	"github.com/openreef/aquamon/controller/modules/calibration"
	"github.com/openreef/aquamon/controller/modules/health"
	"github.com/openreef/aquamon/controller/modules/probe"
	"github.com/openreef/aquamon/controller/modules/quality"
	"github.com/openreef/aquamon/controller/storage"
	"github.com/openreef/aquamon/controller/telemetry"
)

func main() {
	configPath := flag.String("config", "", "yaml configuration file")
	flag.Parse()

	settings := controller.DefaultSettings
	if *configPath != "" {
		s, err := controller.LoadSettings(*configPath)
		if err != nil {
			log.Fatal("failed to load config: ", err)
		}
		settings = s
	}

	store, err := storage.NewStore(settings.Database)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}

	d := controller.New(settings, store, telemetry.Initialize(settings.Telemetry))

	cal := calibration.New(d)
	d.AddSubsystem("calibration", cal)

	p, err := probe.New(settings.DevMode, settings.ProbeI2CAddr, d, cal)
	if err != nil {
		log.Fatal("failed to initialize probe: ", err)
	}
	d.AddSubsystem("probe", p)

	q := quality.New(d, p, cal, time.Duration(settings.SamplePeriod)*time.Second)
	d.AddSubsystem("quality", q)

	if settings.HealthCheck {
		d.AddSubsystem("health", health.New(d))
	}

	if err := d.Setup(); err != nil {
		log.Fatal("failed to setup subsystems: ", err)
	}
	if err := d.Start(); err != nil {
		log.Fatal("failed to start: ", err)
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Println("ERROR: sd_notify:", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Println("shutting down")
	d.Stop()
}
