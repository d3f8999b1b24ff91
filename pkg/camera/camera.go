// Package camera implements a pinhole camera that turns raster pixel
// coordinates into world-space rays.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/sdfmarch/pkg/geom"
)

// basisTolerance bounds how far the basis may drift from orthonormal
// before Validate rejects it.
const basisTolerance = 1e-6

// Camera is a viewpoint with a right-handed orthonormal view basis
// (Right × Up = Forward) and horizontal/vertical fields of view in radians.
type Camera struct {
	Position geom.Vec3
	Forward  geom.Vec3
	Right    geom.Vec3
	Up       geom.Vec3
	FovX     float64
	FovY     float64
}

// Degrees converts an angle in degrees to radians.
func Degrees(deg float64) float64 {
	return deg * math.Pi / 180
}

// LookAt builds a camera at position aimed at target. worldUp picks the roll
// and must not be parallel to the view direction.
func LookAt(position, target, worldUp geom.Vec3, fovX, fovY float64) (Camera, error) {
	fwd := target.Sub(position)
	if fwd.LengthSquared() == 0 {
		return Camera{}, errors.New("camera: target coincides with position")
	}
	fwd = fwd.Normalize()

	right := worldUp.Cross(fwd)
	if right.LengthSquared() < basisTolerance {
		return Camera{}, fmt.Errorf("camera: up %v is parallel to view direction %v", worldUp, fwd)
	}
	right = right.Normalize()
	up := fwd.Cross(right)

	c := Camera{
		Position: position,
		Forward:  fwd,
		Right:    right,
		Up:       up,
		FovX:     fovX,
		FovY:     fovY,
	}
	if err := c.Validate(); err != nil {
		return Camera{}, err
	}
	return c, nil
}

// Validate checks that the basis is unit length, mutually orthogonal and
// right-handed, and that both fields of view lie in (0, π).
func (c Camera) Validate() error {
	for _, b := range []struct {
		name string
		v    geom.Vec3
	}{{"forward", c.Forward}, {"right", c.Right}, {"up", c.Up}} {
		if !b.v.IsFinite() {
			return fmt.Errorf("camera: %s %v is not finite", b.name, b.v)
		}
		if math.Abs(b.v.Length()-1) > basisTolerance {
			return fmt.Errorf("camera: %s %v is not unit length", b.name, b.v)
		}
	}
	if math.Abs(c.Forward.Dot(c.Right)) > basisTolerance ||
		math.Abs(c.Forward.Dot(c.Up)) > basisTolerance ||
		math.Abs(c.Right.Dot(c.Up)) > basisTolerance {
		return errors.New("camera: basis vectors are not mutually orthogonal")
	}
	if c.Right.Cross(c.Up).Dot(c.Forward) < 0 {
		return errors.New("camera: basis is left-handed")
	}
	if !(c.FovX > 0 && c.FovX < math.Pi) {
		return fmt.Errorf("camera: fov_x %g outside (0, pi)", c.FovX)
	}
	if !(c.FovY > 0 && c.FovY < math.Pi) {
		return fmt.Errorf("camera: fov_y %g outside (0, pi)", c.FovY)
	}
	if !c.Position.IsFinite() {
		return fmt.Errorf("camera: position %v is not finite", c.Position)
	}
	return nil
}

// Ray returns the origin and unit direction of the ray through the center
// of pixel (x, y) in a w×h raster. Raster y grows downward, so the top row
// maps to +Up.
//
// The offsets u, v ∈ [-1, 1] are scaled by tan(fov/2), which fans the rays
// over exactly the declared field of view whatever the raster aspect.
// For a camera that passes Validate the direction is never degenerate,
// since Forward is orthogonal to both offsets.
func (c Camera) Ray(x, y, w, h int) (origin, dir geom.Vec3) {
	u := 2*(float64(x)+0.5)/float64(w) - 1
	v := 1 - 2*(float64(y)+0.5)/float64(h)
	return c.Position, c.direction(u, v)
}

func (c Camera) direction(u, v float64) geom.Vec3 {
	sx := u * math.Tan(c.FovX/2)
	sy := v * math.Tan(c.FovY/2)
	return c.Forward.Add(c.Right.Scale(sx)).Add(c.Up.Scale(sy)).Normalize()
}

// Translate returns a copy of c moved by delta expressed in the camera's
// own basis: X along Right, Y along Up, Z along Forward.
func (c Camera) Translate(delta geom.Vec3) Camera {
	move := c.Right.Scale(delta.X).Add(c.Up.Scale(delta.Y)).Add(c.Forward.Scale(delta.Z))
	c.Position = c.Position.Add(move)
	return c
}

// Yaw returns a copy of c rotated by angle radians about its Up axis.
// Positive angles turn toward Right.
func (c Camera) Yaw(angle float64) Camera {
	sin, cos := math.Sincos(angle)
	fwd := c.Forward.Scale(cos).Add(c.Right.Scale(sin))
	right := c.Right.Scale(cos).Sub(c.Forward.Scale(sin))
	c.Forward = fwd.Normalize()
	c.Right = right.Normalize()
	return c
}

func (c Camera) String() string {
	return fmt.Sprintf("Camera(\n"+
		"  position = %v,\n"+
		"  forward  = %v,\n"+
		"  right    = %v,\n"+
		"  up       = %v\n"+
		")", c.Position, c.Forward, c.Right, c.Up)
}
