package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/chazu/sdfmarch/pkg/march"
	"github.com/chazu/sdfmarch/pkg/scene"
)

const tol = 1e-6

// must unwraps a constructor result, failing the test on error:
// must(t)(k.Sphere(5)).
func must(t *testing.T) func(kernel.Solid, error) kernel.Solid {
	return func(s kernel.Solid, err error) kernel.Solid {
		t.Helper()
		if err != nil {
			t.Fatalf("constructor failed: %v", err)
		}
		return s
	}
}

func checkDistance(t *testing.T, s kernel.Solid, p geom.Vec3, want float64) {
	t.Helper()
	if got := s.SignedDistance(p); math.Abs(got-want) > tol {
		t.Errorf("SignedDistance(%v) = %f, want %f", p, got, want)
	}
}

func TestSphere(t *testing.T) {
	k := New()
	s := must(t)(k.Sphere(5))
	checkDistance(t, s, geom.V(0, 0, 0), -5)
	checkDistance(t, s, geom.V(10, 0, 0), 5)
	checkDistance(t, s, geom.V(0, -3, 4), 0)
}

func TestBox(t *testing.T) {
	k := New()
	box := must(t)(k.Box(10, 20, 30))
	checkDistance(t, box, geom.V(10, 0, 0), 5)
	checkDistance(t, box, geom.V(0, 0, 0), -5)
	checkDistance(t, box, geom.V(0, 0, 15), 0)
}

func TestCylinder(t *testing.T) {
	k := New()
	cyl := must(t)(k.Cylinder(50, 10))
	checkDistance(t, cyl, geom.V(20, 0, 0), 10)
	checkDistance(t, cyl, geom.V(0, 0, 35), 10)
	min, max := cyl.BoundingBox()
	if max.Z-min.Z < 50-tol {
		t.Errorf("cylinder height extent = %f, want 50", max.Z-min.Z)
	}
}

func TestInvalidDimensions(t *testing.T) {
	k := New()
	tests := []struct {
		name string
		fn   func() (kernel.Solid, error)
	}{
		{"zero sphere", func() (kernel.Solid, error) { return k.Sphere(0) }},
		{"negative box", func() (kernel.Solid, error) { return k.Box(1, -1, 1) }},
		{"flat cylinder", func() (kernel.Solid, error) { return k.Cylinder(0, 1) }},
		{"nan sphere", func() (kernel.Solid, error) { return k.Sphere(math.NaN()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUnion(t *testing.T) {
	k := New()
	a := must(t)(k.Sphere(1))
	b := k.Translate(must(t)(k.Sphere(1)), geom.V(10, 0, 0))
	c := k.Translate(must(t)(k.Sphere(1)), geom.V(-10, 0, 0))
	u := k.Union(a, b, c)

	checkDistance(t, u, geom.V(0, 5, 0), 4)
	checkDistance(t, u, geom.V(10, 0, 0), -1)
	checkDistance(t, u, geom.V(-12, 0, 0), 1)

	if k.Union(a) != a {
		t.Error("Union of a single solid should return it unchanged")
	}
}

func TestDifference(t *testing.T) {
	k := New()
	box := must(t)(k.Box(100, 100, 100))
	cyl := must(t)(k.Cylinder(120, 20))
	diff := k.Difference(box, cyl)

	// The center is drilled out: outside the solid.
	if d := diff.SignedDistance(geom.V(0, 0, 0)); d <= 0 {
		t.Errorf("center of drilled box: distance %f, want > 0", d)
	}
	// Material between hole and outer wall is still inside.
	if d := diff.SignedDistance(geom.V(35, 0, 0)); d >= 0 {
		t.Errorf("wall point: distance %f, want < 0", d)
	}
}

func TestIntersection(t *testing.T) {
	k := New()
	box1 := must(t)(k.Box(100, 100, 100))
	box2 := k.Translate(must(t)(k.Box(100, 100, 100)), geom.V(50, 0, 0))
	inter := k.Intersection(box1, box2)

	// The overlap spans x in [0, 50].
	if d := inter.SignedDistance(geom.V(25, 0, 0)); d >= 0 {
		t.Errorf("overlap center: distance %f, want < 0", d)
	}
	if d := inter.SignedDistance(geom.V(-25, 0, 0)); d <= 0 {
		t.Errorf("box1-only point: distance %f, want > 0", d)
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := must(t)(k.Box(10, 10, 10))
	translated := k.Translate(box, geom.V(100, 200, 300))

	min, max := translated.BoundingBox()

	// Translated box(10,10,10) by (100,200,300) should be centered at (100,200,300).
	const bbTol = 0.5
	expectMin := geom.V(95, 195, 295)
	expectMax := geom.V(105, 205, 305)
	if !min.ApproxEqual(expectMin, bbTol) {
		t.Errorf("min = %v, expected ~%v", min, expectMin)
	}
	if !max.ApproxEqual(expectMax, bbTol) {
		t.Errorf("max = %v, expected ~%v", max, expectMax)
	}
	checkDistance(t, translated, geom.V(100, 200, 300), -5)
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := must(t)(k.Box(100, 50, 25))
	min, max := box.BoundingBox()

	const bbTol = 0.01
	if !min.ApproxEqual(geom.V(-50, -25, -12.5), bbTol) {
		t.Errorf("min = %v", min)
	}
	if !max.ApproxEqual(geom.V(50, 25, 12.5), bbTol) {
		t.Errorf("max = %v", max)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := must(t)(k.Box(100, 10, 10))

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Rotate(box, geom.V(0, 0, 90))
	min, max := rotated.BoundingBox()

	xExtent := max.X - min.X
	yExtent := max.Y - min.Y

	const bbTol = 1.0
	if math.Abs(xExtent-10) > bbTol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > bbTol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
	checkDistance(t, rotated, geom.V(0, 60, 0), 10)
	checkDistance(t, rotated, geom.V(60, 0, 0), 55)
}

// foreignSolid is a Solid that did not come from this kernel.
type foreignSolid struct {
	r float64
}

func (f foreignSolid) SignedDistance(p geom.Vec3) float64 { return p.Length() - f.r }
func (f foreignSolid) BoundingBox() (min, max geom.Vec3) {
	return geom.V(-f.r, -f.r, -f.r), geom.V(f.r, f.r, f.r)
}

func TestForeignSolidsCombine(t *testing.T) {
	k := New()
	moved := k.Translate(foreignSolid{r: 2}, geom.V(0, 0, 10))
	checkDistance(t, moved, geom.V(0, 0, 10), -2)
	checkDistance(t, moved, geom.V(0, 0, 0), 8)

	min, max := moved.BoundingBox()
	if !min.ApproxEqual(geom.V(-2, -2, 8), tol) || !max.ApproxEqual(geom.V(2, 2, 12), tol) {
		t.Errorf("bounding box = %v..%v", min, max)
	}
}

func TestSolidsMarchInScene(t *testing.T) {
	k := New()
	box := k.Translate(must(t)(k.Box(20, 20, 20)), geom.V(0, 0, 30))
	cyl := k.Rotate(must(t)(k.Cylinder(40, 3)), geom.V(90, 0, 0))
	s := scene.New(k.Difference(box, k.Translate(cyl, geom.V(0, 0, 30))))

	e, err := march.New(s, march.Config{MaxSteps: 64, Epsilon: 1e-4})
	if err != nil {
		t.Fatal(err)
	}

	// Head-on into the front face at z = 20.
	res := e.March(geom.V(5, 5, -20), geom.V(0, 0, 1))
	if res.Outcome != march.Hit {
		t.Fatalf("front face: %s after %d steps", res.Outcome, res.Steps)
	}
	if math.Abs(res.Point.Z-20) > 1e-3 {
		t.Errorf("front face hit at %v, want z = 20", res.Point)
	}

	// Off to the side, parallel to the box.
	res = e.March(geom.V(50, 0, -20), geom.V(0, 0, 1))
	if res.Outcome != march.Miss {
		t.Errorf("side ray: %s, want miss", res.Outcome)
	}
}
