// Package sdf defines the distance-field primitive contract and the
// analytic primitives implemented directly on geom.Vec3.
//
// A Primitive must be continuous and must never overestimate the distance
// to its nearest surface point; the march engine steps along a ray by the
// returned value and would overshoot a surface otherwise. New shapes are
// added by implementing Primitive, with no change to the scene or the
// march engine. CSG shapes and boxes live behind the kernel package.
package sdf

import (
	"fmt"

	"github.com/chazu/sdfmarch/pkg/geom"
)

// Primitive is anything with a signed distance to its surface:
// negative inside, zero on the surface, positive outside.
type Primitive interface {
	SignedDistance(p geom.Vec3) float64
}

// Func adapts an ordinary function into a Primitive.
type Func func(p geom.Vec3) float64

// SignedDistance calls f(p).
func (f Func) SignedDistance(p geom.Vec3) float64 {
	return f(p)
}

// Compile-time interface checks.
var (
	_ Primitive = Sphere{}
	_ Primitive = Plane{}
	_ Primitive = Func(nil)
)

// Sphere is the exact distance field of a sphere. It is 1-Lipschitz.
type Sphere struct {
	Center geom.Vec3
	Radius float64
}

// SignedDistance returns |p - center| - radius.
func (s Sphere) SignedDistance(p geom.Vec3) float64 {
	return p.Sub(s.Center).Length() - s.Radius
}

func (s Sphere) String() string {
	return fmt.Sprintf("Sphere(center = %v, radius = %g)", s.Center, s.Radius)
}

// Plane is an infinite plane through Point; the positive half-space lies
// on the side Normal points to.
type Plane struct {
	Point  geom.Vec3
	Normal geom.Vec3 // unit length
}

// NewPlane normalizes normal. A zero normal is rejected because the
// resulting NaN would poison every distance query.
func NewPlane(point, normal geom.Vec3) (Plane, error) {
	if normal.LengthSquared() == 0 {
		return Plane{}, fmt.Errorf("sdf: plane normal must be non-zero")
	}
	return Plane{Point: point, Normal: normal.Normalize()}, nil
}

// SignedDistance projects p - point onto the normal.
func (pl Plane) SignedDistance(p geom.Vec3) float64 {
	return p.Sub(pl.Point).Dot(pl.Normal)
}

func (pl Plane) String() string {
	return fmt.Sprintf("Plane(point = %v, normal = %v)", pl.Point, pl.Normal)
}
