package sim

import (
	"fmt"

	"github.com/pthm-cable/contagion/components"
	"github.com/pthm-cable/contagion/systems"
)

// Patient is one simulated individual. Its position lives in the City's
// field and its contacts in the City's network, both keyed by ID.
type Patient struct {
	ID int64
	components.Identity
	components.Epidemic
	components.Influence
}

func newPatient(i int, sex bool) *Patient {
	return &Patient{
		ID:       int64(i),
		Identity: components.Identity{Name: fmt.Sprintf("Patient_%d", i), Sex: sex},
	}
}

// Step runs the agent's pipeline for the current tick:
// network change, movement, vaccination roll, infection roll, interference.
func (p *Patient) Step(c *City) {
	net := c.network

	if c.tick == 0 && c.opts.SeedOnFirstTick {
		net.Rewire(p.ID, c.ids, c.params.Lambda, c.rng)
	}
	p.Degree, _ = net.ChangeNetwork(p.ID, c.ids, c.params.Lambda, c.params.PromiscuityPopulation, c.rng)

	systems.Move(c.field, net, p.ID, c.forces, c.rng)

	systems.RollVaccine(&p.Epidemic, p.Sex, c.epidemic, c.rng)
	systems.RollInfection(&p.Epidemic, p.Sex, p.IndirectInterference, c.epidemic, c.rng)

	p.updateInterference(c)
}

// updateInterference recomputes the distance aggregates from the current
// positions and states of every other patient.
func (p *Patient) updateInterference(c *City) {
	in := systems.NewInterference(c.epidemic)
	for _, alter := range c.patients {
		if alter.ID == p.ID {
			continue
		}
		in.Add(c.field.Distance(p.ID, alter.ID), alter.Epidemic)
	}
	in.Apply(&p.Influence)
}
