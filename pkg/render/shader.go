package render

import (
	"math"

	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/march"
	"github.com/chazu/sdfmarch/pkg/scene"
)

// Shader turns the outcome of a march into a pixel color. It must be safe
// for concurrent use; the renderer calls it from many goroutines.
type Shader interface {
	Shade(s *scene.Scene, dir geom.Vec3, res march.Result) ARGB
}

// ShaderFunc adapts a function into a Shader.
type ShaderFunc func(s *scene.Scene, dir geom.Vec3, res march.Result) ARGB

// Shade calls f.
func (f ShaderFunc) Shade(s *scene.Scene, dir geom.Vec3, res march.Result) ARGB {
	return f(s, dir, res)
}

var (
	_ Shader = Binary{}
	_ Shader = Palette{}
	_ Shader = Normal{}
	_ Shader = ShaderFunc(nil)
)

// DefaultPalette assigns distinct colors to primitives by index.
var DefaultPalette = []ARGB{
	MustParseHex("#4A90D9"), MustParseHex("#E67E22"), MustParseHex("#2ECC71"), MustParseHex("#9B59B6"),
	MustParseHex("#E74C3C"), MustParseHex("#1ABC9C"), MustParseHex("#F39C12"), MustParseHex("#3498DB"),
}

// Binary paints hits opaque white and misses opaque black.
type Binary struct{}

func (Binary) Shade(_ *scene.Scene, _ geom.Vec3, res march.Result) ARGB {
	if res.Outcome == march.Hit {
		return White
	}
	return Black
}

// Palette paints each hit with the color of the primitive it landed on.
type Palette struct {
	Colors []ARGB // DefaultPalette when empty
}

func (p Palette) Shade(_ *scene.Scene, _ geom.Vec3, res march.Result) ARGB {
	if res.Outcome != march.Hit {
		return Black
	}
	return p.color(res.Index)
}

func (p Palette) color(i int) ARGB {
	colors := p.Colors
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	return colors[i%len(colors)]
}

// ambient is the brightness floor of surfaces facing away from the viewer.
const ambient = 0.15

// Normal shades hits with a headlight gradient: the palette color scaled by
// how directly the surface normal faces back along the ray.
type Normal struct {
	Palette Palette
	// Step is the central-difference offset for the gradient estimate.
	Step float64
}

func (n Normal) Shade(s *scene.Scene, dir geom.Vec3, res march.Result) ARGB {
	if res.Outcome != march.Hit {
		return Black
	}
	base := n.Palette.color(res.Index)
	h := n.Step
	if !(h > 0) {
		h = 1e-4
	}
	normal, ok := EstimateNormal(s, res.Point, h)
	if !ok {
		return base
	}
	facing := math.Max(0, -normal.Dot(dir))
	return base.Scale(ambient + (1-ambient)*facing)
}

// EstimateNormal returns the normalized gradient of the scene's distance
// field at p by central differences. ok is false where the gradient
// vanishes or is not finite.
func EstimateNormal(s *scene.Scene, p geom.Vec3, h float64) (n geom.Vec3, ok bool) {
	dx := geom.V(h, 0, 0)
	dy := geom.V(0, h, 0)
	dz := geom.V(0, 0, h)
	g := geom.V(
		s.SignedDistance(p.Add(dx))-s.SignedDistance(p.Sub(dx)),
		s.SignedDistance(p.Add(dy))-s.SignedDistance(p.Sub(dy)),
		s.SignedDistance(p.Add(dz))-s.SignedDistance(p.Sub(dz)),
	)
	if g.LengthSquared() == 0 || !g.IsFinite() {
		return geom.Vec3{}, false
	}
	return g.Normalize(), true
}

// ShaderByName maps a command-line shader name to a Shader.
func ShaderByName(name string) (Shader, bool) {
	switch name {
	case "", "binary":
		return Binary{}, true
	case "palette":
		return Palette{}, true
	case "normal":
		return Normal{}, true
	}
	return nil, false
}
