// Package sweep loads parameter sweep files and runs one simulation per row.
package sweep

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/contagion/sim"
)

// Sweep input errors. Both are fatal for the whole sweep.
var (
	ErrEmptySweep    = errors.New("sweep has no rows")
	ErrMissingColumn = errors.New("sweep header is missing a column")
)

// Value is one sweep cell. Text that does not parse as a number becomes
// NaN, so it is rejected by the parameter check for that field alone
// instead of failing the whole file.
type Value float64

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (v *Value) UnmarshalCSV(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		f = math.NaN()
	}
	*v = Value(f)
	return nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (v Value) MarshalCSV() (string, error) {
	return strconv.FormatFloat(float64(v), 'g', -1, 64), nil
}

// Row is one line of a sweep file. Columns follow the canonical parameter order.
type Row struct {
	NumPatients           Value `csv:"numPatients"`
	ProbInfected          Value `csv:"probInfected"`
	ProbVaccine           Value `csv:"probVaccine"`
	Lambda                Value `csv:"lambda"`
	Contagion             Value `csv:"contagion"`
	Infectiousness        Value `csv:"infectiousness"`
	SexOnInfection        Value `csv:"sexOnInfection"`
	SexOnVaccine          Value `csv:"sexOnVaccine"`
	VaccineOnInfection    Value `csv:"vaccineOnInfection"`
	PromiscuityPopulation Value `csv:"promiscuityPopulation"`
	MaxPartnerForce       Value `csv:"maxPartnerForce"`
	RandomForce           Value `csv:"randomForce"`
	PartnerForce          Value `csv:"partnerForce"`
}

// RowFromParams builds a row holding p's values.
func RowFromParams(p sim.Params) Row {
	var r Row
	r.setValues(p.Values())
	return r
}

func (r *Row) fields() []*Value {
	return []*Value{
		&r.NumPatients, &r.ProbInfected, &r.ProbVaccine, &r.Lambda,
		&r.Contagion, &r.Infectiousness, &r.SexOnInfection, &r.SexOnVaccine,
		&r.VaccineOnInfection, &r.PromiscuityPopulation, &r.MaxPartnerForce,
		&r.RandomForce, &r.PartnerForce,
	}
}

func (r *Row) setValues(vals []float64) {
	for i, f := range r.fields() {
		*f = Value(vals[i])
	}
}

// Values returns the row's cells in canonical order.
func (r Row) Values() []float64 {
	fs := r.fields()
	out := make([]float64, len(fs))
	for i, f := range fs {
		out[i] = float64(*f)
	}
	return out
}

// Apply sets every field of the row on p. Each field is checked on its own;
// a rejected field keeps p's previous value and all rejections are joined
// into the returned error.
func (r Row) Apply(p *sim.Params) error {
	var errs []error
	for i, v := range r.Values() {
		if err := p.Set(sim.ParamSpecs[i].Name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Load reads a sweep CSV. The header must name every parameter column.
// A missing, unreadable or empty file is an error.
func Load(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sweep: %w", err)
	}
	return Parse(data)
}

// Parse decodes sweep CSV content.
func Parse(data []byte) ([]Row, error) {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err == io.EOF {
		return nil, ErrEmptySweep
	}
	if err != nil {
		return nil, fmt.Errorf("reading sweep header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var rows []Row
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing sweep: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySweep
	}
	return rows, nil
}

func checkHeader(header []string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, s := range sim.ParamSpecs {
		if !have[s.Name] {
			missing = append(missing, s.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Write encodes rows as CSV with a header.
func Write(w io.Writer, rows []Row) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("writing sweep: %w", err)
	}
	return nil
}
