package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/components"
)

func testOptions(steps int, seed int64) Options {
	return Options{
		Width:           80,
		Height:          80,
		InitialSpread:   40,
		CenterForce:     0.0005,
		Steps:           steps,
		Seed:            seed,
		SeedOnFirstTick: true,
	}
}

func newTestCity(t *testing.T, opts Options, mutate func(*Params)) *City {
	t.Helper()
	p := defaultParams()
	p.NumPatients = 40
	p.ProbInfected = 0.05
	p.ProbVaccine = 0.05
	p.PromiscuityPopulation = 0.2
	if mutate != nil {
		mutate(&p)
	}
	c, err := NewCity(opts, p)
	if err != nil {
		t.Fatalf("NewCity: %v", err)
	}
	return c
}

// traceObserver renders every tick's observable state as text.
type traceObserver struct {
	b      strings.Builder
	closed int
}

func (o *traceObserver) ObserveTick(step int, c *City) error {
	for _, p := range c.Patients() {
		fmt.Fprintf(&o.b, "%d,%s,%t,%t,%t,%d,%v,%v,%v\n",
			step, p.Name, p.Sex, p.Vaccinated, p.Infected, p.Degree,
			p.ContagionDistance, p.InfectiousnessDistance, p.IndirectInterference)
	}
	return nil
}

func (o *traceObserver) Close() error {
	o.closed++
	return nil
}

// checkObserver asserts invariants after every tick.
type checkObserver struct {
	t    *testing.T
	prev []components.Epidemic
}

func (o *checkObserver) ObserveTick(step int, c *City) error {
	net := c.Network()
	for i, p := range c.Patients() {
		if p.Degree != net.IncidentCount(p.ID) {
			o.t.Errorf("tick %d: %s degree %d, incident %d", step, p.Name, p.Degree, net.IncidentCount(p.ID))
		}
		if p.Degree != net.Degree(p.ID) {
			o.t.Errorf("tick %d: %s degree %d, counter %d", step, p.Name, p.Degree, net.Degree(p.ID))
		}
		if o.prev != nil {
			if o.prev[i].Infected && !p.Infected {
				o.t.Errorf("tick %d: %s lost infection", step, p.Name)
			}
			if o.prev[i].Vaccinated && !p.Vaccinated {
				o.t.Errorf("tick %d: %s lost vaccination", step, p.Name)
			}
		}
		if !c.Field().Has(p.ID) || !net.HasNode(p.ID) {
			o.t.Errorf("tick %d: %s missing from field or network", step, p.Name)
		}
	}

	seen := make(map[[2]int64]bool)
	for _, e := range net.Edges() {
		if e.A == e.B {
			o.t.Errorf("tick %d: self edge on %d", step, e.A)
		}
		k := [2]int64{e.A, e.B}
		if seen[k] {
			o.t.Errorf("tick %d: duplicate edge %v", step, k)
		}
		seen[k] = true
	}

	o.prev = o.prev[:0]
	for _, p := range c.Patients() {
		o.prev = append(o.prev, p.Epidemic)
	}
	return nil
}

func (o *checkObserver) Close() error { return nil }

type failingObserver struct{ calls int }

func (o *failingObserver) ObserveTick(int, *City) error {
	o.calls++
	return errors.New("disk full")
}

func (o *failingObserver) Close() error { return nil }

func TestNewCityRejectsInvalidParams(t *testing.T) {
	p := defaultParams()
	p.ProbVaccine = -1
	if _, err := NewCity(testOptions(10, 1), p); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("NewCity error = %v, want ErrOutOfRange", err)
	}
	p = defaultParams()
	p.RandomForce = math.Inf(1)
	if _, err := NewCity(testOptions(10, 1), p); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("NewCity with infinite random force: error = %v, want ErrOutOfRange", err)
	}
	if _, err := NewCity(Options{Width: 0, Height: 10}, defaultParams()); err == nil {
		t.Error("NewCity accepted zero-width field")
	}
}

func TestDeterminism(t *testing.T) {
	run := func() (string, int64) {
		c := newTestCity(t, testOptions(15, 42), nil)
		tr := &traceObserver{}
		c.AddObserver(tr)
		if err := c.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return tr.b.String(), c.Draws()
	}

	a, drawsA := run()
	b, drawsB := run()
	if a != b {
		t.Error("two runs with the same seed produced different state")
	}
	if drawsA != drawsB {
		t.Errorf("draw counts differ: %d vs %d", drawsA, drawsB)
	}

	c := newTestCity(t, testOptions(15, 43), nil)
	tr := &traceObserver{}
	c.AddObserver(tr)
	_ = c.Run(context.Background())
	if tr.b.String() == a {
		t.Error("different seeds produced identical state")
	}
}

func TestRestartReproduces(t *testing.T) {
	c := newTestCity(t, testOptions(5, 9), nil)
	tr := &traceObserver{}
	c.AddObserver(tr)

	_ = c.Run(context.Background())
	first := tr.b.String()
	tr.b.Reset()
	_ = c.Run(context.Background())

	if tr.b.String() != first {
		t.Error("restarting the city did not reproduce the run")
	}
	if tr.closed != 2 {
		t.Errorf("observer closed %d times, want 2", tr.closed)
	}
}

func TestInvariantsHoldEveryTick(t *testing.T) {
	c := newTestCity(t, testOptions(30, 7), func(p *Params) {
		p.PromiscuityPopulation = 0.5
		p.Lambda = 3
	})
	c.AddObserver(&checkObserver{t: t})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Tick() != 30 || !c.Done() {
		t.Errorf("tick = %d, done = %v; want 30, true", c.Tick(), c.Done())
	}
}

func TestZeroProbabilitiesNeverTransition(t *testing.T) {
	c := newTestCity(t, testOptions(50, 3), func(p *Params) {
		p.ProbInfected = 0
		p.ProbVaccine = 0
		p.Contagion = 100
	})
	_ = c.Run(context.Background())

	if n := c.InfectedCount(); n != 0 {
		t.Errorf("infected = %d, want 0", n)
	}
	if n := c.VaccinatedCount(); n != 0 {
		t.Errorf("vaccinated = %d, want 0", n)
	}
	for _, v := range c.Interferences() {
		if v != 0 {
			t.Fatalf("interference %v with nobody infected", v)
		}
	}
}

func TestSinglePatient(t *testing.T) {
	opts := testOptions(20, 5)
	c := newTestCity(t, opts, func(p *Params) {
		p.NumPatients = 1
		p.ProbInfected = 1
		p.PromiscuityPopulation = 1
	})
	c.Start()

	// Replay the stream: sex, x, y at start; then per tick the network gate,
	// two jitter draws, and the two rolls.
	ref := rand.New(rand.NewSource(opts.Seed))
	ref.Float64()
	spread := opts.InitialSpread
	pos := r2.Vec{
		X: 40 + spread*ref.Float64() - spread*0.5,
		Y: 40 + spread*ref.Float64() - spread*0.5,
	}
	if got := c.Field().Location(0); got != pos {
		t.Fatalf("start position = %v, want %v", got, pos)
	}

	m := c.Params().RandomForce
	k := opts.CenterForce
	for !c.Done() {
		c.Step()

		ref.Float64() // network gate
		jx := m*ref.Float64() - m*0.5
		jy := m*ref.Float64() - m*0.5
		ref.Float64() // vaccine
		ref.Float64() // infection

		pos = r2.Vec{
			X: pos.X + (k*(40-pos.X) + jx),
			Y: pos.Y + (k*(40-pos.Y) + jy),
		}
		got := c.Field().Location(0)
		if math.Abs(got.X-pos.X) > 1e-9 || math.Abs(got.Y-pos.Y) > 1e-9 {
			t.Fatalf("tick %d: position %v, want %v", c.Tick(), got, pos)
		}

		p := c.Patients()[0]
		if p.Degree != 0 || p.ContagionDistance != 0 || p.InfectiousnessDistance != 0 || p.IndirectInterference != 0 {
			t.Fatalf("tick %d: non-zero aggregates %+v", c.Tick(), p.Influence)
		}
	}
	if c.Draws() != int64(3+5*opts.Steps) {
		t.Errorf("draws = %d, want %d", c.Draws(), 3+5*opts.Steps)
	}
}

func TestThreePatientFirstRewire(t *testing.T) {
	opts := testOptions(1, 1234)
	opts.SeedOnFirstTick = false
	c := newTestCity(t, opts, func(p *Params) {
		p.NumPatients = 3
		p.Lambda = 1
		p.PromiscuityPopulation = 1
	})
	c.Start()

	ref := rand.New(rand.NewSource(opts.Seed))
	for i := 0; i < 9; i++ {
		ref.Float64() // sex, x, y per patient
	}
	ref.Float64() // gate, always below promiscuity 1

	// Combined degree 0: CDF_left is 0, attachment is certain.
	ref.Float64()
	w1 := ref.Float64()
	// Combined degree 1: attachment 1 - e^-1.
	u2 := ref.Float64()
	wantDegree := 1
	if u2 < 1-math.Exp(-1) {
		wantDegree = 2
	}

	p0 := c.Patients()[0]
	p0.Step(c)

	if p0.Degree != wantDegree {
		t.Errorf("degree = %d, want %d (u2 = %v)", p0.Degree, wantDegree, u2)
	}
	if w, ok := c.Network().Weight(0, 1); !ok || w != w1 {
		t.Errorf("weight(0,1) = %v, %v; want %v", w, ok, w1)
	}
	_, linked := c.Network().Weight(0, 2)
	if linked != (wantDegree == 2) {
		t.Errorf("edge(0,2) = %v, want %v", linked, wantDegree == 2)
	}
}

func TestObserverErrorsDoNotStopRun(t *testing.T) {
	c := newTestCity(t, testOptions(4, 1), nil)
	f := &failingObserver{}
	c.AddObserver(f)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.calls != 4 {
		t.Errorf("observer called %d times, want 4", f.calls)
	}
}

func TestRunCancelled(t *testing.T) {
	c := newTestCity(t, testOptions(100, 1), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if c.Tick() != 0 || !c.Done() {
		t.Errorf("tick = %d, done = %v", c.Tick(), c.Done())
	}
}

func TestSetParamOnCity(t *testing.T) {
	c := newTestCity(t, testOptions(1, 1), nil)
	if err := c.SetParam("randomForce", -3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetParam error = %v", err)
	}
	if c.Params().RandomForce != 10 {
		t.Errorf("randomForce = %v, want retained 10", c.Params().RandomForce)
	}
	if err := c.SetParam("randomForce", 2); err != nil {
		t.Fatal(err)
	}
	if c.forces.Random != 2 {
		t.Errorf("force bundle not refreshed: %v", c.forces.Random)
	}
}
