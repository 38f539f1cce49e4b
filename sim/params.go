package sim

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/systems"
)

// ErrOutOfRange is returned when a parameter value falls outside its domain.
var ErrOutOfRange = errors.New("parameter out of range")

// ErrUnknownParam is returned for names not in ParamSpecs.
var ErrUnknownParam = errors.New("unknown parameter")

// ParamSpec describes the domain of one tunable parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64 // +Inf when unbounded
	Integer bool
}

// ParamSpecs lists every tunable in canonical column order.
var ParamSpecs = []ParamSpec{
	{Name: "numPatients", Min: 1, Max: 5000, Integer: true},
	{Name: "probInfected", Min: 0, Max: 1},
	{Name: "probVaccine", Min: 0, Max: 1},
	{Name: "lambda", Min: 0, Max: math.Inf(1)},
	{Name: "contagion", Min: 0, Max: math.Inf(1)},
	{Name: "infectiousness", Min: 0, Max: math.Inf(1)},
	{Name: "sexOnInfection", Min: 0, Max: math.Inf(1)},
	{Name: "sexOnVaccine", Min: 0, Max: math.Inf(1)},
	{Name: "vaccineOnInfection", Min: 0, Max: math.Inf(1)},
	{Name: "promiscuityPopulation", Min: 0, Max: 1},
	{Name: "maxPartnerForce", Min: 0, Max: math.Inf(1)},
	{Name: "randomForce", Min: 0, Max: math.Inf(1)},
	{Name: "partnerForce", Min: 0, Max: math.Inf(1)},
}

// Check reports whether v lies in the parameter's domain. Unbounded domains
// are half-open, so infinities are rejected everywhere.
func (s ParamSpec) Check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < s.Min || v > s.Max {
		return fmt.Errorf("%s=%v not in [%v, %v]: %w", s.Name, v, s.Min, s.Max, ErrOutOfRange)
	}
	if s.Integer && v != math.Trunc(v) {
		return fmt.Errorf("%s=%v is not an integer: %w", s.Name, v, ErrOutOfRange)
	}
	return nil
}

// LookupSpec returns the spec for name.
func LookupSpec(name string) (ParamSpec, bool) {
	for _, s := range ParamSpecs {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Params is one complete set of tunables for a run.
type Params struct {
	NumPatients           int
	ProbInfected          float64
	ProbVaccine           float64
	Lambda                float64
	Contagion             float64
	Infectiousness        float64
	SexOnInfection        float64
	SexOnVaccine          float64
	VaccineOnInfection    float64
	PromiscuityPopulation float64
	MaxPartnerForce       float64
	RandomForce           float64
	PartnerForce          float64
}

// ParamsFromConfig copies the configured defaults.
func ParamsFromConfig(c config.ParamsConfig) Params {
	return Params{
		NumPatients:           c.NumPatients,
		ProbInfected:          c.ProbInfected,
		ProbVaccine:           c.ProbVaccine,
		Lambda:                c.Lambda,
		Contagion:             c.Contagion,
		Infectiousness:        c.Infectiousness,
		SexOnInfection:        c.SexOnInfection,
		SexOnVaccine:          c.SexOnVaccine,
		VaccineOnInfection:    c.VaccineOnInfection,
		PromiscuityPopulation: c.PromiscuityPopulation,
		MaxPartnerForce:       c.MaxPartnerForce,
		RandomForce:           c.RandomForce,
		PartnerForce:          c.PartnerForce,
	}
}

// Config converts the parameters back to their configuration form.
func (p Params) Config() config.ParamsConfig {
	return config.ParamsConfig{
		NumPatients:           p.NumPatients,
		ProbInfected:          p.ProbInfected,
		ProbVaccine:           p.ProbVaccine,
		Lambda:                p.Lambda,
		Contagion:             p.Contagion,
		Infectiousness:        p.Infectiousness,
		SexOnInfection:        p.SexOnInfection,
		SexOnVaccine:          p.SexOnVaccine,
		VaccineOnInfection:    p.VaccineOnInfection,
		PromiscuityPopulation: p.PromiscuityPopulation,
		MaxPartnerForce:       p.MaxPartnerForce,
		RandomForce:           p.RandomForce,
		PartnerForce:          p.PartnerForce,
	}
}

// field returns a pointer to the float-valued parameter called name.
// numPatients is handled separately by Get and Set.
func (p *Params) field(name string) *float64 {
	switch name {
	case "probInfected":
		return &p.ProbInfected
	case "probVaccine":
		return &p.ProbVaccine
	case "lambda":
		return &p.Lambda
	case "contagion":
		return &p.Contagion
	case "infectiousness":
		return &p.Infectiousness
	case "sexOnInfection":
		return &p.SexOnInfection
	case "sexOnVaccine":
		return &p.SexOnVaccine
	case "vaccineOnInfection":
		return &p.VaccineOnInfection
	case "promiscuityPopulation":
		return &p.PromiscuityPopulation
	case "maxPartnerForce":
		return &p.MaxPartnerForce
	case "randomForce":
		return &p.RandomForce
	case "partnerForce":
		return &p.PartnerForce
	}
	return nil
}

// Get returns the value of the named parameter.
func (p Params) Get(name string) (float64, error) {
	if name == "numPatients" {
		return float64(p.NumPatients), nil
	}
	if f := p.field(name); f != nil {
		return *f, nil
	}
	return 0, fmt.Errorf("get %q: %w", name, ErrUnknownParam)
}

// Set assigns v to the named parameter. An out-of-range value is rejected
// and the previous value kept.
func (p *Params) Set(name string, v float64) error {
	spec, ok := LookupSpec(name)
	if !ok {
		return fmt.Errorf("set %q: %w", name, ErrUnknownParam)
	}
	if err := spec.Check(v); err != nil {
		return err
	}
	if name == "numPatients" {
		p.NumPatients = int(v)
		return nil
	}
	*p.field(name) = v
	return nil
}

// Values returns every parameter in canonical order.
func (p Params) Values() []float64 {
	out := make([]float64, len(ParamSpecs))
	for i, s := range ParamSpecs {
		out[i], _ = p.Get(s.Name)
	}
	return out
}

// Validate checks every parameter and joins all violations.
func (p Params) Validate() error {
	var errs []error
	for i, v := range p.Values() {
		if err := ParamSpecs[i].Check(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// String renders the parameters as "name=value,..." in canonical order.
// The format is stable and feeds run keys.
func (p Params) String() string {
	var b strings.Builder
	for i, v := range p.Values() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(ParamSpecs[i].Name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}

// Forces extracts the movement coefficients.
func (p Params) Forces(center float64) systems.ForceParams {
	return systems.ForceParams{
		Center:          center,
		Random:          p.RandomForce,
		Partner:         p.PartnerForce,
		MaxPartnerForce: p.MaxPartnerForce,
	}
}

// Epidemic extracts the roll and interference coefficients.
func (p Params) Epidemic() systems.EpidemicParams {
	return systems.EpidemicParams{
		ProbInfected:       p.ProbInfected,
		ProbVaccine:        p.ProbVaccine,
		SexOnInfection:     p.SexOnInfection,
		SexOnVaccine:       p.SexOnVaccine,
		VaccineOnInfection: p.VaccineOnInfection,
		Contagion:          p.Contagion,
		Infectiousness:     p.Infectiousness,
	}
}
