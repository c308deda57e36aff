package controller

import (
	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller/storage"
	"github.com/openreef/aquamon/controller/telemetry"
)

// Subsystem is one functional unit of the controller (probe glue,
// calibration, water-quality evaluation, health). The daemon drives the
// lifecycle: Setup once, Start/Stop around the serving period.
type Subsystem interface {
	Setup() error
	Start()
	Stop()
	LoadAPI(r *mux.Router)
}

// Controller is the narrow surface subsystems get to the daemon.
type Controller interface {
	Store() storage.Store
	Telemetry() telemetry.Telemetry
	LogError(subsystem, msg string) error
}
