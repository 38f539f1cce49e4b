package systems

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Source is the random stream the update rules draw from.
type Source interface {
	Float64() float64
}

// ForceParams holds the movement coefficients.
type ForceParams struct {
	Center          float64 // centre-pull coefficient; 0 disables the pull
	Random          float64 // jitter width per axis
	Partner         float64 // scales edge weights into peership
	MaxPartnerForce float64
}

// CenterForce pulls pos toward center in proportion to the offset.
func CenterForce(center, pos r2.Vec, k float64) r2.Vec {
	if k == 0 {
		return r2.Vec{}
	}
	return r2.Scale(k, r2.Sub(center, pos))
}

// RandomForce draws a jitter uniform in [-magnitude/2, magnitude/2) on each
// axis, x first.
func RandomForce(rng Source, magnitude float64) r2.Vec {
	x := magnitude*rng.Float64() - magnitude*0.5
	y := magnitude*rng.Float64() - magnitude*0.5
	return r2.Vec{X: x, Y: y}
}

// PartnerForce is the force one contact exerts on pos.
//
// Non-negative peership attracts along the offset and is clamped to
// maxForce. Negative peership takes the mirrored offset; past maxForce it
// vanishes, otherwise it is resized to maxForce minus its own length.
func PartnerForce(pos, other r2.Vec, peership, maxForce float64) r2.Vec {
	delta := r2.Sub(other, pos)
	if peership >= 0 {
		f := r2.Scale(peership, delta)
		if r2.Norm(f) > maxForce {
			f = resize(f, maxForce)
		}
		return f
	}

	f := r2.Scale(-peership, delta)
	length := r2.Norm(f)
	switch {
	case length > maxForce:
		return r2.Vec{}
	case length > 0:
		return resize(f, maxForce-length)
	}
	return f
}

// resize scales v to the given length, leaving zero vectors untouched.
func resize(v r2.Vec, length float64) r2.Vec {
	norm := r2.Norm(v)
	if norm == 0 {
		return v
	}
	return r2.Scale(length/norm, v)
}

// Move sums the centre, random and partner forces acting on id and writes
// the new position back to the field. Contacts are visited in ascending id so
// the floating-point sum is reproducible. Returns the new position.
func Move(field *Field, net *Network, id int64, p ForceParams, rng Source) r2.Vec {
	pos := field.Location(id)

	center := CenterForce(field.Center(), pos, p.Center)
	random := RandomForce(rng, p.Random)

	var partner r2.Vec
	for _, other := range net.Neighbors(id) {
		w, _ := net.Weight(id, other)
		partner = r2.Add(partner, PartnerForce(pos, field.Location(other), w*p.Partner, p.MaxPartnerForce))
	}

	next := r2.Add(pos, r2.Add(center, r2.Add(random, partner)))
	field.SetLocation(id, next)
	return next
}
