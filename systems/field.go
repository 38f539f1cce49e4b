// Package systems implements the simulation rules: the spatial field, the
// contact network and its rewiring gate, the force model and the epidemic rolls.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/components"
)

// Field is a bounded continuous 2D space holding one position per agent.
// Positions live on ECS entities; nothing is clipped or wrapped, so agents
// may drift outside the nominal extent.
type Field struct {
	width  float64
	height float64

	world    *ecs.World
	posMap   *ecs.Map1[components.Position]
	filter   *ecs.Filter1[components.Position]
	entities map[int64]ecs.Entity
}

// NewField creates an empty field of the given size.
func NewField(width, height float64) *Field {
	f := &Field{width: width, height: height}
	f.Clear()
	return f
}

// Clear removes every agent from the field.
func (f *Field) Clear() {
	f.world = ecs.NewWorld()
	f.posMap = ecs.NewMap1[components.Position](f.world)
	f.filter = ecs.NewFilter1[components.Position](f.world)
	f.entities = make(map[int64]ecs.Entity)
}

// Width returns the nominal field width.
func (f *Field) Width() float64 { return f.width }

// Height returns the nominal field height.
func (f *Field) Height() float64 { return f.height }

// Center returns the midpoint of the nominal extent.
func (f *Field) Center() r2.Vec {
	return r2.Vec{X: f.width * 0.5, Y: f.height * 0.5}
}

// Len returns the number of agents in the field.
func (f *Field) Len() int { return len(f.entities) }

// Has reports whether the agent has a position.
func (f *Field) Has(id int64) bool {
	_, ok := f.entities[id]
	return ok
}

// Place adds an agent at p, or moves it there if already present.
func (f *Field) Place(id int64, p r2.Vec) {
	if _, ok := f.entities[id]; ok {
		f.SetLocation(id, p)
		return
	}
	pos := components.PositionOf(p)
	f.entities[id] = f.posMap.NewEntity(&pos)
}

// Location returns the agent's position, or the zero vector for unknown agents.
func (f *Field) Location(id int64) r2.Vec {
	e, ok := f.entities[id]
	if !ok {
		return r2.Vec{}
	}
	return f.posMap.Get(e).Vec()
}

// SetLocation moves a known agent to p. Unknown agents are ignored.
func (f *Field) SetLocation(id int64, p r2.Vec) {
	e, ok := f.entities[id]
	if !ok {
		return
	}
	*f.posMap.Get(e) = components.PositionOf(p)
}

// Extent returns the bounding box of all positions. An empty field yields
// the nominal extent.
func (f *Field) Extent() (min, max r2.Vec) {
	if len(f.entities) == 0 {
		return r2.Vec{}, r2.Vec{X: f.width, Y: f.height}
	}
	min = r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	max = r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}

	query := f.filter.Query()
	for query.Next() {
		pos := query.Get()
		min.X = math.Min(min.X, pos.X)
		min.Y = math.Min(min.Y, pos.Y)
		max.X = math.Max(max.X, pos.X)
		max.Y = math.Max(max.Y, pos.Y)
	}
	return min, max
}

// Distance returns the Euclidean distance between two agents.
func (f *Field) Distance(a, b int64) float64 {
	return r2.Norm(r2.Sub(f.Location(b), f.Location(a)))
}
