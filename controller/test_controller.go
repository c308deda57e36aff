package controller

import (
	"log"

	"github.com/openreef/aquamon/controller/storage"
	"github.com/openreef/aquamon/controller/telemetry"
)

type testController struct {
	store storage.Store
	t     telemetry.Telemetry
}

// NewTestController wires a store to noop telemetry for module tests.
func NewTestController(store storage.Store) Controller {
	return &testController{store: store, t: telemetry.NoopTelemetry()}
}

func (c *testController) Store() storage.Store           { return c.store }
func (c *testController) Telemetry() telemetry.Telemetry { return c.t }

func (c *testController) LogError(subsystem, msg string) error {
	log.Println("ERROR:", subsystem+":", msg)
	return nil
}
