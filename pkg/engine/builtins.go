package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/sdfmarch/pkg/camera"
	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/chazu/sdfmarch/pkg/sdf"
	zygo "github.com/glycerine/zygomys/zygo"
)

// Camera defaults for (camera ...) forms that omit them.
var (
	defaultUp   = geom.V(0, 1, 0)
	defaultFovX = 60.0 // degrees
	defaultFovY = 34.0 // degrees
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec3.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a bounded kernel solid. Solids can be combined and
// transformed.
type sexpSolid struct {
	solid kernel.Solid
	kind  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", s.kind)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpPrimitive wraps an unbounded analytic primitive such as a plane.
// It can be placed in the scene but not combined.
type sexpPrimitive struct {
	prim sdf.Primitive
}

func (p *sexpPrimitive) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("%v", p.prim)
}
func (p *sexpPrimitive) Type() *zygo.RegisteredType { return nil }

// sexpObject is returned by (object ...) and names a scene entry.
type sexpObject struct {
	index int
	name  string
}

func (o *sexpObject) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(object %q #%d)", o.name, o.index)
}
func (o *sexpObject) Type() *zygo.RegisteredType { return nil }

// sexpCamera is returned by (camera ...).
type sexpCamera struct {
	cam camera.Camera
}

func (c *sexpCamera) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(camera :position %v)", c.cam.Position)
}
func (c *sexpCamera) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Trailing keyword with no value.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// float returns the keyword value named key, or def when it is absent.
func (a kwArgs) float(key string, def float64) (float64, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// requireFloat is float for keywords without a default.
func (a kwArgs) requireFloat(key string) (float64, error) {
	if _, ok := a.kw[key]; !ok {
		return 0, fmt.Errorf(":%s is required", key)
	}
	return a.float(key, 0)
}

// vec returns the keyword value named key as a vector, or def when absent.
func (a kwArgs) vec(key string, def geom.Vec3) (geom.Vec3, error) {
	v, ok := a.kw[key]
	if !ok {
		return def, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("%s: %w", key, err)
	}
	return vec, nil
}

// requireVec is vec for keywords without a default.
func (a kwArgs) requireVec(key string) (geom.Vec3, error) {
	if _, ok := a.kw[key]; !ok {
		return geom.Vec3{}, fmt.Errorf(":%s is required", key)
	}
	return a.vec(key, geom.Vec3{})
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3 or from a list or array of three
// numbers, so (vec3 0 0 30) and [0 0 30] are interchangeable.
func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 3 {
		return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
	}
	var xyz [3]float64
	for i, item := range items {
		if xyz[i], err = toFloat64(item); err != nil {
			return geom.Vec3{}, fmt.Errorf("vec3 component %d: %w", i, err)
		}
	}
	return geom.V(xyz[0], xyz[1], xyz[2]), nil
}

// toSolid extracts a combinable kernel solid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	switch v := s.(type) {
	case *sexpSolid:
		return v.solid, nil
	case *sexpPrimitive:
		return nil, fmt.Errorf("%s is unbounded and cannot be combined or transformed", v.SexpString(nil))
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toPrimitive extracts anything that can be placed in the scene.
func toPrimitive(s zygo.Sexp) (sdf.Primitive, error) {
	switch v := s.(type) {
	case *sexpSolid:
		return v.solid, nil
	case *sexpPrimitive:
		return v.prim, nil
	}
	return nil, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// solids extracts every argument as a combinable solid.
func solids(op string, args []zygo.Sexp) ([]kernel.Solid, error) {
	out := make([]kernel.Solid, 0, len(args))
	for i, a := range args {
		s, err := toSolid(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", op, i+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtinFunc is the signature zygomys expects for Go builtins.
type builtinFunc = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the scene DSL builtins into a zygomys
// environment. Shapes are built with k; objects, the camera and march
// settings are recorded into d as the program runs.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k kernel.Kernel, d *Description) {
	// centered moves a freshly built solid to its :center keyword, if any.
	centered := func(op string, pa kwArgs, s kernel.Solid) (zygo.Sexp, error) {
		c, err := pa.vec("center", geom.Vec3{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		if c != (geom.Vec3{}) {
			s = k.Translate(s, c)
		}
		return &sexpSolid{solid: s, kind: op}, nil
	}

	builtins := map[string]builtinFunc{

		// -------------------------------------------------------------------
		// (vec3 1 2 3)
		// -------------------------------------------------------------------
		"vec3": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 3 {
				return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
			}
			var xyz [3]float64
			for i, axis := range []string{"x", "y", "z"} {
				f, err := toFloat64(args[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
				}
				xyz[i] = f
			}
			return &sexpVec3{vec: geom.V(xyz[0], xyz[1], xyz[2])}, nil
		},

		// -------------------------------------------------------------------
		// (sphere :radius 20 :center (vec3 0 0 30))
		// -------------------------------------------------------------------
		"sphere": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			r, err := pa.requireFloat("radius")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
			}
			s, err := k.Sphere(r)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
			}
			return centered("sphere", pa, s)
		},

		// -------------------------------------------------------------------
		// (box :size (vec3 10 20 30) [:center v])
		// -------------------------------------------------------------------
		"box": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			size, err := pa.requireVec("size")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
			s, err := k.Box(size.X, size.Y, size.Z)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: %w", err)
			}
			return centered("box", pa, s)
		},

		// -------------------------------------------------------------------
		// (cylinder :height 50 :radius 10 [:center v])
		// -------------------------------------------------------------------
		"cylinder": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			h, err := pa.requireFloat("height")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
			}
			r, err := pa.requireFloat("radius")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
			}
			s, err := k.Cylinder(h, r)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
			}
			return centered("cylinder", pa, s)
		},

		// -------------------------------------------------------------------
		// (plane :point (vec3 0 -10 0) :normal (vec3 0 1 0))
		// -------------------------------------------------------------------
		"plane": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			pt, err := pa.vec("point", geom.Vec3{})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
			n, err := pa.requireVec("normal")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
			pl, err := sdf.NewPlane(pt, n)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: %w", err)
			}
			return &sexpPrimitive{prim: pl}, nil
		},

		// -------------------------------------------------------------------
		// (union a b ...)
		// -------------------------------------------------------------------
		"union": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 1 {
				return zygo.SexpNull, fmt.Errorf("union requires at least one shape")
			}
			ss, err := solids("union", args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpSolid{solid: k.Union(ss[0], ss[1:]...), kind: "union"}, nil
		},

		// -------------------------------------------------------------------
		// (difference a b)
		// -------------------------------------------------------------------
		"difference": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("difference requires exactly 2 shapes, got %d", len(args))
			}
			ss, err := solids("difference", args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpSolid{solid: k.Difference(ss[0], ss[1]), kind: "difference"}, nil
		},

		// -------------------------------------------------------------------
		// (intersection a b ...)
		// -------------------------------------------------------------------
		"intersection": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("intersection requires at least 2 shapes, got %d", len(args))
			}
			ss, err := solids("intersection", args)
			if err != nil {
				return zygo.SexpNull, err
			}
			acc := ss[0]
			for _, s := range ss[1:] {
				acc = k.Intersection(acc, s)
			}
			return &sexpSolid{solid: acc, kind: "intersection"}, nil
		},

		// -------------------------------------------------------------------
		// (translate shape (vec3 0 0 30))
		// -------------------------------------------------------------------
		"translate": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			s, v, err := shapeAndVec("translate", args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpSolid{solid: k.Translate(s.solid, v), kind: s.kind}, nil
		},

		// -------------------------------------------------------------------
		// (rotate shape (vec3 0 0 90))   ; Euler degrees
		// -------------------------------------------------------------------
		"rotate": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			s, v, err := shapeAndVec("rotate", args)
			if err != nil {
				return zygo.SexpNull, err
			}
			return &sexpSolid{solid: k.Rotate(s.solid, v), kind: s.kind}, nil
		},

		// -------------------------------------------------------------------
		// (object "name" shape) or (object shape)
		// -------------------------------------------------------------------
		"object": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			var objName string
			switch len(args) {
			case 1:
				objName = fmt.Sprintf("object-%d", d.Scene.Len())
			case 2:
				n, err := toString(args[0])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("object: name: %w", err)
				}
				objName = n
				args = args[1:]
			default:
				return zygo.SexpNull, fmt.Errorf("object requires an optional name and a shape, got %d arguments", len(args))
			}
			for _, existing := range d.Names {
				if existing == objName {
					return zygo.SexpNull, fmt.Errorf("object: duplicate name %q", objName)
				}
			}
			p, err := toPrimitive(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("object %q: %w", objName, err)
			}
			idx := d.Scene.Add(p)
			d.Names = append(d.Names, objName)
			return &sexpObject{index: idx, name: objName}, nil
		},

		// -------------------------------------------------------------------
		// (camera :position (vec3 0 0 -20) :look-at (vec3 0 0 0)
		//         :up (vec3 0 1 0) :fov-x 60 :fov-y 34)
		//
		// Note: keywords keep their hyphens; only bare identifiers are
		// rewritten to underscore form.
		// -------------------------------------------------------------------
		"camera": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			pos, err := pa.requireVec("position")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			target, err := pa.requireVec("look-at")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			up, err := pa.vec("up", defaultUp)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			fovX, err := pa.float("fov-x", defaultFovX)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			fovY, err := pa.float("fov-y", defaultFovY)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("camera: %w", err)
			}
			cam, err := camera.LookAt(pos, target, up, camera.Degrees(fovX), camera.Degrees(fovY))
			if err != nil {
				return zygo.SexpNull, err
			}
			d.Camera = &cam
			return &sexpCamera{cam: cam}, nil
		},

		// -------------------------------------------------------------------
		// (march :max-steps 64 :epsilon 0.0001)
		// -------------------------------------------------------------------
		"march": func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			cfg := d.March
			if v, ok := pa.kw["max-steps"]; ok {
				n, err := toInt(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("march: max-steps: %w", err)
				}
				cfg.MaxSteps = n
			}
			eps, err := pa.float("epsilon", cfg.Epsilon)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("march: %w", err)
			}
			cfg.Epsilon = eps
			if err := cfg.Validate(); err != nil {
				return zygo.SexpNull, err
			}
			d.March = cfg
			return zygo.SexpNull, nil
		},
	}

	for name, fn := range builtins {
		env.AddFunction(name, fn)
	}
}

// shapeAndVec parses the (op shape vec) argument form shared by the
// transforms.
func shapeAndVec(op string, args []zygo.Sexp) (*sexpSolid, geom.Vec3, error) {
	if len(args) != 2 {
		return nil, geom.Vec3{}, fmt.Errorf("%s requires a shape and a vec3, got %d arguments", op, len(args))
	}
	if _, err := toSolid(args[0]); err != nil {
		return nil, geom.Vec3{}, fmt.Errorf("%s: %w", op, err)
	}
	v, err := toVec3(args[1])
	if err != nil {
		return nil, geom.Vec3{}, fmt.Errorf("%s: %w", op, err)
	}
	return args[0].(*sexpSolid), v, nil
}
