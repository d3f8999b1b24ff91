package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/chazu/sdfmarch/pkg/camera"
	"github.com/chazu/sdfmarch/pkg/engine"
	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/kernel"
	"github.com/chazu/sdfmarch/pkg/kernel/sdfx"
	"github.com/chazu/sdfmarch/pkg/march"
	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/chazu/sdfmarch/pkg/scene"
	"github.com/chazu/sdfmarch/pkg/sdf"
)

// errNoScene is returned by operations that need a loaded scene.
var errNoScene = errors.New("no scene loaded")

// Options configures an App. Zero MaxSteps and Epsilon defer to the scene
// source (or the march defaults); nil Shader means render.Binary.
type Options struct {
	Width, Height int
	MaxSteps      int
	Epsilon       float64
	Shader        render.Shader
	Workers       int
}

// App owns the evaluation engine, the current renderer and the frame it
// renders into. Evaluate swaps the renderer; RenderFrame and MoveCamera
// use whichever renderer is current.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	opts   Options

	mu       sync.Mutex
	renderer *render.Renderer
	names    []string
	frame    *render.Frame
}

// EvalErrorData is a user-facing eval error.
type EvalErrorData struct {
	Line    int
	Col     int
	Message string
}

// EvalResult is the outcome of loading a scene source. Errors is empty on
// success, in which case Objects lists the scene's objects in index order.
type EvalResult struct {
	Objects []string
	Errors  []EvalErrorData
}

// NewApp creates an App with an engine, the sdfx kernel and a frame of the
// configured size.
func NewApp(opts Options) (*App, error) {
	f, err := render.NewFrame(opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	k := sdfx.New()
	return &App{
		engine: engine.NewEngine(k),
		kernel: k,
		opts:   opts,
		frame:  f,
	}, nil
}

// DefaultCamera sits 20 units behind the origin looking down +Z with a
// 60°×34° field of view.
func DefaultCamera() camera.Camera {
	cam, err := camera.LookAt(geom.V(0, 0, -20), geom.V(0, 0, 0), geom.V(0, 1, 0),
		camera.Degrees(60), camera.Degrees(34))
	if err != nil {
		panic(err)
	}
	return cam
}

// DefaultDescription is the scene shown when no source is given: a single
// sphere of radius 20 centered at (0, 0, 30), seen from DefaultCamera.
func DefaultDescription() *engine.Description {
	cam := DefaultCamera()
	return &engine.Description{
		Scene:  scene.New(sdf.Sphere{Center: geom.V(0, 0, 30), Radius: 20}),
		Names:  []string{"sphere"},
		Camera: &cam,
		March:  march.DefaultConfig(),
	}
}

// Evaluate takes scene source and, on success, makes it the scene that
// subsequent frames render. On failure the previous scene stays loaded.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Objects: []string{},
		Errors:  []EvalErrorData{},
	}

	// Step 1: Evaluate the source into a scene description.
	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the user-facing format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Build a renderer for the description.
	if err := a.Load(d); err != nil {
		log.Printf("Load error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	result.Objects = append(result.Objects, d.Names...)
	return result
}

// Load installs d as the current scene. Options override d's march
// settings; a description without a camera gets DefaultCamera.
func (a *App) Load(d *engine.Description) error {
	if d.Scene == nil || d.Scene.Len() == 0 {
		return errors.New("scene defines no objects")
	}

	cfg := d.March
	if a.opts.MaxSteps > 0 {
		cfg.MaxSteps = a.opts.MaxSteps
	}
	if a.opts.Epsilon > 0 {
		cfg.Epsilon = a.opts.Epsilon
	}
	cam := DefaultCamera()
	if d.Camera != nil {
		cam = *d.Camera
	}

	r, err := render.New(d.Scene, cam, cfg,
		render.WithShader(a.opts.Shader),
		render.WithWorkers(a.opts.Workers))
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.renderer = r
	a.names = d.Names
	a.mu.Unlock()

	log.Printf("Loaded scene: %d objects, max steps %d, epsilon %g", d.Scene.Len(), cfg.MaxSteps, cfg.Epsilon)
	return nil
}

func (a *App) current() *render.Renderer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renderer
}

// Frame returns the frame RenderFrame draws into.
func (a *App) Frame() *render.Frame {
	return a.frame
}

// Objects returns the names of the current scene's objects.
func (a *App) Objects() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.names...)
}

// RenderFrame renders the current scene into Frame. Callers must not
// render concurrently; the frame is reused.
func (a *App) RenderFrame(ctx context.Context) (render.Stats, error) {
	r := a.current()
	if r == nil {
		return render.Stats{}, errNoScene
	}
	return r.Render(ctx, a.frame)
}

// Camera returns the camera the next frame will use.
func (a *App) Camera() (camera.Camera, error) {
	r := a.current()
	if r == nil {
		return camera.Camera{}, errNoScene
	}
	return r.Camera(), nil
}

// MoveCamera moves the camera by delta in its own basis, then yaws it by
// yaw radians. The change takes effect at the next frame.
func (a *App) MoveCamera(delta geom.Vec3, yaw float64) error {
	r := a.current()
	if r == nil {
		return errNoScene
	}
	err := r.UpdateCamera(func(cam camera.Camera) camera.Camera {
		cam = cam.Translate(delta)
		if yaw != 0 {
			cam = cam.Yaw(yaw)
		}
		return cam
	})
	if err != nil {
		return fmt.Errorf("move camera: %w", err)
	}
	return nil
}
