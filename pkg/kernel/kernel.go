// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx) build distance-field solids such as boxes,
// cylinders and their boolean combinations behind this interface, so the
// scene description layer never depends on a specific backend.
package kernel

import (
	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/sdf"
)

// Solid is a bounded distance-field primitive produced by a kernel.
// Every Solid can be added to a scene directly.
type Solid interface {
	sdf.Primitive

	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max geom.Vec3)
}

// Kernel is the abstract geometry kernel interface.
// Primitives are centered on the origin; use Translate to place them.
// Constructors reject non-positive dimensions with an error.
type Kernel interface {
	// Primitives
	Sphere(radius float64) (Solid, error)
	Box(x, y, z float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error) // axis along Z

	// Boolean operations
	Union(a Solid, rest ...Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, offset geom.Vec3) Solid
	Rotate(s Solid, degrees geom.Vec3) Solid // Euler angles, applied X then Y then Z
}
