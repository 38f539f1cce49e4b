package sim

// Observer receives the population state after every tick.
// ObserveTick errors are logged and the run continues.
type Observer interface {
	ObserveTick(step int, c *City) error
	Close() error
}

type taskKind uint8

const (
	taskAgent taskKind = iota // one patient's update
	taskFlush                 // degree sync and observer notification
)

// task is one scheduled unit. The schedule is a fixed list built by Start:
// every patient in insertion order, then a single flush.
type task struct {
	kind    taskKind
	patient *Patient
}

func (c *City) buildSchedule() {
	c.schedule = c.schedule[:0]
	for _, p := range c.patients {
		c.schedule = append(c.schedule, task{kind: taskAgent, patient: p})
	}
	c.schedule = append(c.schedule, task{kind: taskFlush})
}

func (c *City) runTask(t task) {
	switch t.kind {
	case taskAgent:
		t.patient.Step(c)
	case taskFlush:
		c.flush()
	}
}

// flush brings every reported degree in line with the live network, since
// later agents' rewires change earlier agents' edges, then notifies observers.
func (c *City) flush() {
	for _, p := range c.patients {
		p.Degree = c.network.IncidentCount(p.ID)
	}
	for _, o := range c.observers {
		if err := o.ObserveTick(c.tick, c); err != nil {
			c.logger.Error("observer failed", "tick", c.tick, "error", err)
		}
	}
}
