package sweep

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm-cable/contagion/sim"
)

// Axis is one parameter varied over a list of values.
type Axis struct {
	Name   string
	Values []float64
}

// ParseAxis parses "name=v1,v2,...".
func ParseAxis(s string) (Axis, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok {
		return Axis{}, fmt.Errorf("axis %q: want name=v1,v2,...", s)
	}
	name = strings.TrimSpace(name)
	spec, ok := sim.LookupSpec(name)
	if !ok {
		return Axis{}, fmt.Errorf("axis %q: %w", name, sim.ErrUnknownParam)
	}

	ax := Axis{Name: name}
	for _, part := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %q: %w", name, err)
		}
		if err := spec.Check(v); err != nil {
			return Axis{}, fmt.Errorf("axis %q: %w", name, err)
		}
		ax.Values = append(ax.Values, v)
	}
	return ax, nil
}

// Grid expands the cartesian product of axes over base. The first axis
// varies slowest. With no axes the result is the single base row.
func Grid(base sim.Params, axes []Axis) ([]Row, error) {
	rows := []sim.Params{base}
	for _, ax := range axes {
		if len(ax.Values) == 0 {
			return nil, fmt.Errorf("axis %q has no values", ax.Name)
		}
		next := make([]sim.Params, 0, len(rows)*len(ax.Values))
		for _, p := range rows {
			for _, v := range ax.Values {
				q := p
				if err := q.Set(ax.Name, v); err != nil {
					return nil, err
				}
				next = append(next, q)
			}
		}
		rows = next
	}

	out := make([]Row, len(rows))
	for i, p := range rows {
		out[i] = RowFromParams(p)
	}
	return out, nil
}
