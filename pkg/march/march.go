// Package march implements sphere tracing: stepping a ray through a scene's
// distance field until it lands on a surface or runs out of steps.
package march

import (
	"fmt"

	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/scene"
)

// Reference tunables.
const (
	DefaultMaxSteps = 10
	DefaultEpsilon  = 0.001
)

// Config holds the engine tunables. Smaller Epsilon and larger MaxSteps buy
// accuracy at per-pixel cost.
type Config struct {
	// A ray that has taken this many steps without converging has missed.
	MaxSteps int
	// A sample within Epsilon of a surface counts as a hit.
	Epsilon float64
}

// DefaultConfig returns {MaxSteps: 10, Epsilon: 0.001}.
func DefaultConfig() Config {
	return Config{MaxSteps: DefaultMaxSteps, Epsilon: DefaultEpsilon}
}

// Validate rejects configs that would never converge or never step.
func (c Config) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("march: max steps must be positive, got %d", c.MaxSteps)
	}
	if !(c.Epsilon > 0) {
		return fmt.Errorf("march: epsilon must be positive, got %g", c.Epsilon)
	}
	return nil
}

// Outcome is the terminal state of a march.
type Outcome int

const (
	Miss Outcome = iota
	Hit
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "unknown"
	}
}

// Result describes how a single ray terminated.
type Result struct {
	Outcome Outcome
	// Steps taken after the initial query at the origin.
	Steps int
	// Index of the closest primitive at the last sample.
	Index int
	// Accumulated distance t along the ray.
	Distance float64
	// Last sample point; on a hit this lies within Epsilon of the surface.
	Point geom.Vec3
}

// Engine marches rays through a read-only scene. It holds no per-ray state,
// so one Engine may serve any number of goroutines.
type Engine struct {
	scene *scene.Scene
	cfg   Config
}

// New returns an engine over s. The scene must hold at least one primitive
// and cfg must be valid.
func New(s *scene.Scene, cfg Config) (*Engine, error) {
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("march: scene has no primitives")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{scene: s, cfg: cfg}, nil
}

// Scene returns the scene the engine marches against.
func (e *Engine) Scene() *scene.Scene {
	return e.scene
}

// Config returns the engine tunables.
func (e *Engine) Config() Config {
	return e.cfg
}

// March traces the ray origin + t·dir. dir must be unit length.
//
// The accumulated distance starts at the field value at the origin rather
// than zero, so the first sample is already one safe step down the ray.
// Each iteration samples at origin + dir·t, and the distance found there is
// added to t. The march is a hit as soon as a sample is within Epsilon and
// a miss once MaxSteps samples have been taken without converging.
func (e *Engine) March(origin, dir geom.Vec3) Result {
	q := e.scene.Closest(origin)
	t := q.Distance
	p := origin

	step := 0
	for ; step < e.cfg.MaxSteps && q.Distance > e.cfg.Epsilon; step++ {
		p = origin.Add(dir.Scale(t))
		q = e.scene.Closest(p)
		t += q.Distance
	}

	res := Result{
		Outcome:  Miss,
		Steps:    step,
		Index:    q.Index,
		Distance: t,
		Point:    p,
	}
	if q.Distance <= e.cfg.Epsilon {
		res.Outcome = Hit
	}
	return res
}
