// Package render drives the per-pixel march over a frame and packs the
// results into ARGB8888 pixels.
//
// Every pixel reads only the immutable scene and the camera snapshot taken
// at the start of the frame and writes exactly one slot of the frame, so
// rows are marched in parallel with no locking inside the pass. Camera
// updates between frames go through SetCamera and become visible, whole,
// at the next Render call.
package render

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/sdfmarch/pkg/camera"
	"github.com/chazu/sdfmarch/pkg/march"
	"github.com/chazu/sdfmarch/pkg/scene"
	"golang.org/x/sync/errgroup"
)

// bandsPerWorker splits the frame finer than the worker count so uneven
// rows (sky vs. surface) balance out.
const bandsPerWorker = 4

// Stats summarizes one rendered frame.
type Stats struct {
	Hits    int64
	Misses  int64
	Steps   int64 // march steps summed over all pixels
	Elapsed time.Duration
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithShader replaces the default Binary shader.
func WithShader(s Shader) Option {
	return func(r *Renderer) {
		if s != nil {
			r.shader = s
		}
	}
}

// WithWorkers bounds the number of goroutines marching a frame.
// Values below 1 mean runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(r *Renderer) {
		r.workers = n
	}
}

// Renderer renders frames of a fixed scene from a movable camera.
type Renderer struct {
	engine  *march.Engine
	shader  Shader
	workers int

	mu  sync.RWMutex
	cam camera.Camera
}

// New builds a renderer. It fails fast on an empty scene, an invalid march
// config or a camera whose basis is not a right-handed orthonormal frame,
// so no frame is ever marched over bad inputs.
func New(s *scene.Scene, cam camera.Camera, cfg march.Config, opts ...Option) (*Renderer, error) {
	eng, err := march.New(s, cfg)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if err := cam.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	r := &Renderer{
		engine: eng,
		shader: Binary{},
		cam:    cam,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}
	return r, nil
}

// Engine returns the march engine.
func (r *Renderer) Engine() *march.Engine {
	return r.engine
}

// Camera returns the camera the next frame will use.
func (r *Renderer) Camera() camera.Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cam
}

// SetCamera installs c for subsequent frames. A frame already in progress
// keeps the camera it started with.
func (r *Renderer) SetCamera(c camera.Camera) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	r.mu.Lock()
	r.cam = c
	r.mu.Unlock()
	return nil
}

// UpdateCamera replaces the camera with fn's result in one step, so
// concurrent updates compose instead of overwriting each other. The camera
// is unchanged when the result is invalid.
func (r *Renderer) UpdateCamera(fn func(camera.Camera) camera.Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := fn(r.cam)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	r.cam = c
	return nil
}

// Pixel marches the single pixel (x, y) of a w×h raster seen from cam.
func (r *Renderer) Pixel(cam camera.Camera, x, y, w, h int) (ARGB, march.Result) {
	origin, dir := cam.Ray(x, y, w, h)
	res := r.engine.March(origin, dir)
	return r.shader.Shade(r.engine.Scene(), dir, res), res
}

// Render fills f with one frame. It returns early with ctx's error if ctx is
// cancelled; rows finished before that are left in place.
func (r *Renderer) Render(ctx context.Context, f *Frame) (Stats, error) {
	if f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pix) != f.Width*f.Height {
		return Stats{}, fmt.Errorf("render: malformed frame")
	}
	start := time.Now()
	cam := r.Camera()

	var hits, misses, steps atomic.Int64

	bands := r.workers * bandsPerWorker
	rowsPerBand := (f.Height + bands - 1) / bands
	if rowsPerBand < 1 {
		rowsPerBand = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for y0 := 0; y0 < f.Height; y0 += rowsPerBand {
		y1 := min(y0+rowsPerBand, f.Height)
		g.Go(func() error {
			var h, m, s int64
			for y := y0; y < y1; y++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				row := f.Pix[y*f.Width : (y+1)*f.Width]
				for x := range row {
					c, res := r.Pixel(cam, x, y, f.Width, f.Height)
					row[x] = c
					s += int64(res.Steps)
					if res.Outcome == march.Hit {
						h++
					} else {
						m++
					}
				}
			}
			hits.Add(h)
			misses.Add(m)
			steps.Add(s)
			return nil
		})
	}
	err := g.Wait()

	return Stats{
		Hits:    hits.Load(),
		Misses:  misses.Load(),
		Steps:   steps.Load(),
		Elapsed: time.Since(start),
	}, err
}
