// Package scene holds the ordered collection of primitives that a frame is
// marched against.
package scene

import (
	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/sdf"
)

// ClosestResult is the nearest primitive to a point and its signed distance.
type ClosestResult struct {
	Index    int
	Distance float64
}

// Scene exclusively owns an insertion-ordered list of primitives. It is
// built before the first frame and only read while marching, so concurrent
// Closest calls are safe as long as nothing calls Add during a frame.
type Scene struct {
	prims []sdf.Primitive
}

// New returns a scene holding prims in order.
func New(prims ...sdf.Primitive) *Scene {
	s := &Scene{}
	for _, p := range prims {
		s.Add(p)
	}
	return s
}

// Add appends p and returns its index. Duplicates are allowed.
func (s *Scene) Add(p sdf.Primitive) int {
	s.prims = append(s.prims, p)
	return len(s.prims) - 1
}

// Len returns the number of primitives.
func (s *Scene) Len() int {
	return len(s.prims)
}

// At returns the primitive at index i.
func (s *Scene) At(i int) sdf.Primitive {
	return s.prims[i]
}

// Closest evaluates every primitive at p and returns the minimum distance
// with the index that produced it. On exact ties the lowest index wins.
//
// Closest panics on an empty scene: marching a scene with nothing in it is
// a caller bug, not a runtime condition.
func (s *Scene) Closest(p geom.Vec3) ClosestResult {
	if len(s.prims) == 0 {
		panic("scene: closest query on empty scene")
	}
	best := ClosestResult{Index: 0, Distance: s.prims[0].SignedDistance(p)}
	for i := 1; i < len(s.prims); i++ {
		if d := s.prims[i].SignedDistance(p); d < best.Distance {
			best = ClosestResult{Index: i, Distance: d}
		}
	}
	return best
}

// SignedDistance is the scene-wide distance field: the minimum over all
// primitives. It makes a Scene usable wherever an sdf.Primitive is.
func (s *Scene) SignedDistance(p geom.Vec3) float64 {
	return s.Closest(p).Distance
}

var _ sdf.Primitive = (*Scene)(nil)
