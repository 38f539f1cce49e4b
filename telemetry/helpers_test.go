package telemetry

import (
	"context"
	"testing"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/sim"
)

// runCity runs a small city to completion with the given observers.
func runCity(t *testing.T, steps int, observers ...sim.Observer) *sim.City {
	t.Helper()
	cfg := config.Default()
	cfg.Run.Steps = steps
	cfg.Run.Seed = 17

	params := sim.ParamsFromConfig(cfg.Params)
	params.NumPatients = 12
	params.ProbInfected = 0.2
	params.ProbVaccine = 0.1
	params.PromiscuityPopulation = 0.3

	c, err := sim.NewCity(sim.OptionsFromConfig(cfg), params)
	if err != nil {
		t.Fatalf("NewCity: %v", err)
	}
	for _, o := range observers {
		c.AddObserver(o)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return c
}
