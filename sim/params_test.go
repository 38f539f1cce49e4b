package sim

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/pthm-cable/contagion/config"
)

func defaultParams() Params {
	return ParamsFromConfig(config.Default().Params)
}

func TestDefaultParamsValid(t *testing.T) {
	if err := defaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
}

func TestSetRejectsAndKeepsPrevious(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value float64
	}{
		{"probability above one", "probInfected", 1.5},
		{"negative lambda", "lambda", -0.1},
		{"nan", "contagion", math.NaN()},
		{"infinite lambda", "lambda", math.Inf(1)},
		{"infinite random force", "randomForce", math.Inf(1)},
		{"infinite contagion", "contagion", math.Inf(1)},
		{"negative infinite partner force", "partnerForce", math.Inf(-1)},
		{"too many patients", "numPatients", 5001},
		{"zero patients", "numPatients", 0},
		{"fractional patients", "numPatients", 10.5},
		{"promiscuity above one", "promiscuityPopulation", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := defaultParams()
			before, _ := p.Get(tt.param)

			err := p.Set(tt.param, tt.value)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("Set(%s, %v) error = %v, want ErrOutOfRange", tt.param, tt.value, err)
			}
			after, _ := p.Get(tt.param)
			if after != before {
				t.Errorf("%s changed from %v to %v", tt.param, before, after)
			}
		})
	}
}

func TestSetAccepts(t *testing.T) {
	p := defaultParams()
	if err := p.Set("numPatients", 3); err != nil {
		t.Fatalf("Set numPatients: %v", err)
	}
	if err := p.Set("lambda", 1e6); err != nil {
		t.Fatalf("Set lambda: %v", err)
	}
	if p.NumPatients != 3 || p.Lambda != 1e6 {
		t.Errorf("params = %+v", p)
	}
}

func TestUnknownParam(t *testing.T) {
	p := defaultParams()
	if err := p.Set("transmissionEffect", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Set unknown error = %v", err)
	}
	if _, err := p.Get("transmissionEffect"); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Get unknown error = %v", err)
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	p := defaultParams()
	p.ProbInfected = 2
	p.RandomForce = -1

	err := p.Validate()
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("Validate error = %v, want ErrOutOfRange", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "probInfected") || !strings.Contains(msg, "randomForce") {
		t.Errorf("Validate error %q should name both fields", msg)
	}
}

func TestParamsStringCanonical(t *testing.T) {
	p := Params{
		NumPatients:           3,
		ProbInfected:          0.5,
		ProbVaccine:           0.25,
		Lambda:                1,
		Contagion:             2,
		Infectiousness:        0,
		SexOnInfection:        3,
		SexOnVaccine:          3,
		VaccineOnInfection:    3,
		PromiscuityPopulation: 0.01,
		MaxPartnerForce:       20,
		RandomForce:           10,
		PartnerForce:          1,
	}
	want := "numPatients=3,probInfected=0.5,probVaccine=0.25,lambda=1,contagion=2,infectiousness=0," +
		"sexOnInfection=3,sexOnVaccine=3,vaccineOnInfection=3,promiscuityPopulation=0.01," +
		"maxPartnerForce=20,randomForce=10,partnerForce=1"
	if got := p.String(); got != want {
		t.Errorf("String =\n%s\nwant\n%s", got, want)
	}
}
