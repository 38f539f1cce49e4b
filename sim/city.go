// Package sim runs the epidemic: a City owns the field, the contact network
// and the patients, and advances them one tick at a time.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/systems"
)

// Options holds the run settings that are not swept.
type Options struct {
	Width, Height   float64
	InitialSpread   float64
	CenterForce     float64
	Steps           int
	Seed            int64
	SeedOnFirstTick bool
}

// OptionsFromConfig builds Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Width:           cfg.World.Width,
		Height:          cfg.World.Height,
		InitialSpread:   cfg.World.InitialSpread,
		CenterForce:     cfg.Forces.Center,
		Steps:           cfg.Run.Steps,
		Seed:            cfg.Run.Seed,
		SeedOnFirstTick: cfg.Network.SeedOnFirstTick,
	}
}

// City is the simulation context for one run.
type City struct {
	opts   Options
	params Params

	forces   systems.ForceParams
	epidemic systems.EpidemicParams

	rng     *RandomSource
	field   *systems.Field
	network *systems.Network

	patients  []*Patient
	ids       []int64
	schedule  []task
	observers []Observer

	tick     int
	started  bool
	finished bool

	logger *slog.Logger
}

// NewCity creates a city for one run. Invalid parameters are rejected
// with every violation joined into the error.
func NewCity(opts Options, params Params) (*City, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("field size must be positive, got %gx%g", opts.Width, opts.Height)
	}
	if opts.Steps < 0 {
		return nil, fmt.Errorf("steps must not be negative, got %d", opts.Steps)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	c := &City{
		opts:    opts,
		params:  params,
		rng:     NewRandomSource(opts.Seed),
		field:   systems.NewField(opts.Width, opts.Height),
		network: systems.NewNetwork(),
		logger:  slog.Default(),
	}
	c.derive()
	return c, nil
}

// derive refreshes the coefficient bundles handed to the update rules.
func (c *City) derive() {
	c.forces = c.params.Forces(c.opts.CenterForce)
	c.epidemic = c.params.Epidemic()
}

// AddObserver registers o to be notified after every tick and closed when
// the run finishes.
func (c *City) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// SetParam changes one parameter. Out-of-range values keep the previous
// value and return an error wrapping ErrOutOfRange. numPatients takes
// effect on the next Start.
func (c *City) SetParam(name string, v float64) error {
	if err := c.params.Set(name, v); err != nil {
		return err
	}
	c.derive()
	return nil
}

// Start resets the run: reseeds the random source, empties the field and
// network, creates the patients around the field centre and builds the
// schedule.
func (c *City) Start() {
	c.rng.Reseed(c.opts.Seed)
	c.field.Clear()
	c.network.Clear()

	n := c.params.NumPatients
	c.patients = make([]*Patient, 0, n)
	c.ids = make([]int64, 0, n)

	center := c.field.Center()
	spread := c.opts.InitialSpread
	for i := 0; i < n; i++ {
		p := newPatient(i, c.rng.Bool())
		x := center.X + spread*c.rng.Float64() - spread*0.5
		y := center.Y + spread*c.rng.Float64() - spread*0.5

		c.field.Place(p.ID, r2.Vec{X: x, Y: y})
		c.network.AddNode(p.ID)
		c.patients = append(c.patients, p)
		c.ids = append(c.ids, p.ID)
	}

	c.buildSchedule()
	c.tick = 0
	c.started = true
	c.finished = false

	c.logger.Debug("city started", "patients", n, "seed", c.opts.Seed, "steps", c.opts.Steps)
}

// Step advances one tick. It returns false once the step bound is reached
// and the run has been finished.
func (c *City) Step() bool {
	if !c.started || c.finished {
		return false
	}
	if c.tick >= c.opts.Steps {
		c.Finish()
		return false
	}

	for _, t := range c.schedule {
		c.runTask(t)
	}
	c.tick++

	if c.tick >= c.opts.Steps {
		c.Finish()
		return false
	}
	return true
}

// Run starts the city and steps it to the bound. Cancelling ctx stops the
// run between ticks; observers are closed either way.
func (c *City) Run(ctx context.Context) error {
	c.Start()
	for !c.finished {
		if err := ctx.Err(); err != nil {
			c.Finish()
			return err
		}
		c.Step()
	}
	return nil
}

// Finish stops scheduling and closes all observers. Safe to call twice.
func (c *City) Finish() {
	if c.finished {
		return
	}
	c.finished = true

	var errs []error
	for _, o := range c.observers {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.Error("closing observers", "error", err)
	}
	c.logger.Debug("city finished", "tick", c.tick)
}

// Done reports whether the run has finished.
func (c *City) Done() bool { return c.finished }

// Tick returns the number of completed ticks.
func (c *City) Tick() int { return c.tick }

// Params returns the current parameter set.
func (c *City) Params() Params { return c.params }

// Options returns the run settings.
func (c *City) Options() Options { return c.opts }

// Field returns the spatial field.
func (c *City) Field() *systems.Field { return c.field }

// Network returns the contact network.
func (c *City) Network() *systems.Network { return c.network }

// Draws returns how many random values the run has consumed.
func (c *City) Draws() int64 { return c.rng.Draws() }

// Patients returns the patients in insertion order. The slice is shared;
// callers must not modify it.
func (c *City) Patients() []*Patient { return c.patients }

// Infections returns each patient's infected flag.
func (c *City) Infections() []bool {
	out := make([]bool, len(c.patients))
	for i, p := range c.patients {
		out[i] = p.Infected
	}
	return out
}

// Vaccinations returns each patient's vaccinated flag.
func (c *City) Vaccinations() []bool {
	out := make([]bool, len(c.patients))
	for i, p := range c.patients {
		out[i] = p.Vaccinated
	}
	return out
}

// Degrees returns each patient's degree.
func (c *City) Degrees() []int {
	out := make([]int, len(c.patients))
	for i, p := range c.patients {
		out[i] = p.Degree
	}
	return out
}

// Interferences returns each patient's indirect interference.
func (c *City) Interferences() []float64 {
	out := make([]float64, len(c.patients))
	for i, p := range c.patients {
		out[i] = p.IndirectInterference
	}
	return out
}

// ContagionDistances returns each patient's distance-weighted infected count.
func (c *City) ContagionDistances() []float64 {
	out := make([]float64, len(c.patients))
	for i, p := range c.patients {
		out[i] = p.ContagionDistance
	}
	return out
}

// InfectiousnessDistances returns each patient's distance-weighted vaccinated count.
func (c *City) InfectiousnessDistances() []float64 {
	out := make([]float64, len(c.patients))
	for i, p := range c.patients {
		out[i] = p.InfectiousnessDistance
	}
	return out
}

// InfectedCount returns the number of infected patients.
func (c *City) InfectedCount() int {
	n := 0
	for _, p := range c.patients {
		if p.Infected {
			n++
		}
	}
	return n
}

// VaccinatedCount returns the number of vaccinated patients.
func (c *City) VaccinatedCount() int {
	n := 0
	for _, p := range c.patients {
		if p.Vaccinated {
			n++
		}
	}
	return n
}
