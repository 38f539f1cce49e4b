// Package components defines the plain data carried by simulation agents.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Position represents an agent's location in the field.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// PositionOf converts a vector to a Position.
func PositionOf(v r2.Vec) Position {
	return Position{X: v.X, Y: v.Y}
}
