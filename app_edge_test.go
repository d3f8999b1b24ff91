package main

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/chazu/sdfmarch/pkg/march"
	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/chazu/sdfmarch/pkg/scene"
)

// ---------------------------------------------------------------------------
// 1. Result shape: slices are non-nil on every path.
// ---------------------------------------------------------------------------

func TestE2EResultSlicesNonNil(t *testing.T) {
	app := newTestApp(t, Options{})

	for _, source := range []string{"", `(object (sphere :radius 1))`, `(object`} {
		result := app.Evaluate(source)
		if result.Objects == nil {
			t.Errorf("%q: Objects should be non-nil", source)
		}
		if result.Errors == nil {
			t.Errorf("%q: Errors should be non-nil", source)
		}
	}
}

// ---------------------------------------------------------------------------
// 2. Syntax error on a later line: error has a message, maybe a line.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp(t, Options{})

	source := "(def r 2)\n(object \"test\""
	result := app.Evaluate(source)

	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	if e.Line > 0 {
		t.Logf("syntax error line=%d message=%q", e.Line, e.Message)
	}
}

// ---------------------------------------------------------------------------
// 3. Comments and whitespace only: no objects is an error.
// ---------------------------------------------------------------------------

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp(t, Options{})

	for _, source := range []string{
		";; just a comment",
		"  \n\t\n  ",
		";; header\n\n  ; another\n",
	} {
		result := app.Evaluate(source)
		if len(result.Errors) != 1 {
			t.Fatalf("%q: expected 1 error, got %v", source, result.Errors)
		}
		if !strings.Contains(result.Errors[0].Message, "no objects") {
			t.Errorf("%q: message = %q", source, result.Errors[0].Message)
		}
	}
}

// ---------------------------------------------------------------------------
// 4. Failed evaluation keeps the previous scene.
// ---------------------------------------------------------------------------

func TestE2EErrorKeepsPreviousScene(t *testing.T) {
	app := newTestApp(t, Options{})

	if r := app.Evaluate(`(object "keep" (sphere :radius 20 :center [0 0 30]))`); len(r.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	for _, bad := range []string{`(object "broken"`, ``, `(object (sphere :radius -1))`} {
		if r := app.Evaluate(bad); len(r.Errors) == 0 {
			t.Fatalf("%q: expected errors", bad)
		}
	}
	if got := app.Objects(); len(got) != 1 || got[0] != "keep" {
		t.Errorf("objects = %v, want [keep]", got)
	}
	if _, err := app.RenderFrame(context.Background()); err != nil {
		t.Errorf("RenderFrame after failed evaluations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 5. Rapid evaluation: sequential calls alternate success and failure.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// zygomys keeps global state that is not safe for concurrent sandbox
	// creation, so calls are sequential, as in the window's reload path.
	app := newTestApp(t, Options{})

	sources := []struct {
		source string
		ok     bool
	}{
		{`(object "a" (sphere :radius 1))`, true},
		{`(object "broken"`, false},
		{``, false},
		{`(object "b" (box :size [1 2 3]))`, true},
		{`(+ 1 2)`, false},
		{`;; just a comment`, false},
		{`(object "c" (cylinder :height 2 :radius 1))`, true},
		{`(undefined-func 1 2 3)`, false},
		{`(object "d" (plane :normal [0 1 0]))`, true},
	}

	for i, tt := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, tt.source, r)
				}
			}()
			result := app.Evaluate(tt.source)
			if ok := len(result.Errors) == 0; ok != tt.ok {
				t.Errorf("iteration %d (%q): ok = %v, want %v (errors %v)", i, tt.source, ok, tt.ok, result.Errors)
			}
		}()
	}
}

// ---------------------------------------------------------------------------
// 6. Options override in-scene march settings.
// ---------------------------------------------------------------------------

func TestE2EOptionsOverrideMarch(t *testing.T) {
	source := `
(object (sphere :radius 20 :center [0 0 30]))
(march :max-steps 3 :epsilon 0.5)
`
	tests := []struct {
		name string
		opts Options
		want march.Config
	}{
		{"scene values", Options{}, march.Config{MaxSteps: 3, Epsilon: 0.5}},
		{"steps flag", Options{MaxSteps: 40}, march.Config{MaxSteps: 40, Epsilon: 0.5}},
		{"both flags", Options{MaxSteps: 40, Epsilon: 1e-4}, march.Config{MaxSteps: 40, Epsilon: 1e-4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, tt.opts)
			if r := app.Evaluate(source); len(r.Errors) > 0 {
				t.Fatalf("errors: %v", r.Errors)
			}
			if got := app.current().Engine().Config(); got != tt.want {
				t.Errorf("config = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 7. Scene without a camera gets the default camera.
// ---------------------------------------------------------------------------

func TestE2EMissingCameraUsesDefault(t *testing.T) {
	app := newTestApp(t, Options{})
	if r := app.Evaluate(`(object (sphere :radius 20 :center [0 0 30]))`); len(r.Errors) > 0 {
		t.Fatalf("errors: %v", r.Errors)
	}
	cam, err := app.Camera()
	if err != nil {
		t.Fatal(err)
	}
	if cam != DefaultCamera() {
		t.Errorf("camera = %v, want default %v", cam, DefaultCamera())
	}
}

// ---------------------------------------------------------------------------
// 8. Load rejects descriptions the renderer cannot use.
// ---------------------------------------------------------------------------

func TestE2ELoadRejects(t *testing.T) {
	app := newTestApp(t, Options{})

	empty := DefaultDescription()
	empty.Scene = scene.New()
	if err := app.Load(empty); err == nil {
		t.Error("expected error for empty scene")
	}

	badMarch := DefaultDescription()
	badMarch.March = march.Config{MaxSteps: 0, Epsilon: 0.001}
	if err := app.Load(badMarch); err == nil {
		t.Error("expected error for zero max steps")
	}

	badCam := DefaultDescription()
	badCam.Camera.Up = geom.V(0, 0, 1) // the degenerate up vector: not orthogonal to forward
	if err := app.Load(badCam); err == nil {
		t.Error("expected error for degenerate camera basis")
	}

	if got := app.Objects(); len(got) != 0 {
		t.Errorf("objects after rejected loads = %v, want none", got)
	}
}

// ---------------------------------------------------------------------------
// 9. Operations before any scene is loaded.
// ---------------------------------------------------------------------------

func TestE2ENoSceneLoaded(t *testing.T) {
	app := newTestApp(t, Options{})

	if _, err := app.RenderFrame(context.Background()); err != errNoScene {
		t.Errorf("RenderFrame error = %v, want %v", err, errNoScene)
	}
	if _, err := app.Camera(); err != errNoScene {
		t.Errorf("Camera error = %v, want %v", err, errNoScene)
	}
	if err := app.MoveCamera(geom.V(1, 0, 0), 0); err != errNoScene {
		t.Errorf("MoveCamera error = %v, want %v", err, errNoScene)
	}
}

// ---------------------------------------------------------------------------
// 10. Invalid frame sizes.
// ---------------------------------------------------------------------------

func TestE2EInvalidFrameSize(t *testing.T) {
	for _, opts := range []Options{{Width: 0, Height: 10}, {Width: 10, Height: -1}} {
		if _, err := NewApp(opts); err == nil {
			t.Errorf("NewApp(%+v): expected error", opts)
		}
	}
}

// ---------------------------------------------------------------------------
// 11. Palette shader: colors follow object definition order and wrap.
// ---------------------------------------------------------------------------

func TestE2EColorPaletteWrapping(t *testing.T) {
	app := newTestApp(t, Options{Width: 4, Height: 4, MaxSteps: 64, Shader: render.Palette{}})

	// Nine tiny spheres far away, then one large sphere filling the view.
	// The large one is object 9, which wraps to palette slot 1.
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteString(`(object (sphere :radius 1 :center [1000 0 0]))` + "\n")
	}
	b.WriteString(`(object (sphere :radius 25 :center [0 0 20]))`)

	if r := app.Evaluate(b.String()); len(r.Errors) > 0 {
		t.Fatalf("errors: %v", r.Errors)
	}
	if _, err := app.RenderFrame(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := render.DefaultPalette[9%len(render.DefaultPalette)]
	for i, c := range app.Frame().Pix {
		if c != want {
			t.Fatalf("pixel %d = %v, want %v", i, c, want)
		}
	}
}

// ---------------------------------------------------------------------------
// 12. Camera moves from several goroutines are all applied.
// ---------------------------------------------------------------------------

func TestE2EConcurrentMoveCamera(t *testing.T) {
	app := newTestApp(t, Options{})
	if err := app.Load(DefaultDescription()); err != nil {
		t.Fatal(err)
	}

	// One goroutine per stream viewer, each stepping right.
	const viewers, moves = 4, 50
	var wg sync.WaitGroup
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < moves; j++ {
				if err := app.MoveCamera(geom.V(0.5, 0, 0), 0); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	cam, err := app.Camera()
	if err != nil {
		t.Fatal(err)
	}
	if want := geom.V(viewers*moves*0.5, 0, -20); !cam.Position.ApproxEqual(want, 1e-9) {
		t.Errorf("position = %v, want %v", cam.Position, want)
	}
}
