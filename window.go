//go:build !headless

package main

import (
	"context"
	"log"
	"math"
	"os"

	"github.com/chazu/sdfmarch/pkg/geom"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Camera motion per tick.
const (
	moveStep = 0.5
	turnStep = 2 * math.Pi / 180
)

// runWindow opens a desktop window that shows the rendered frame and
// forwards keyboard input to the camera. It blocks until the window closes.
//
// Keys: W/S forward and back, A/D strafe, Q/E turn, R reloads scenePath,
// Escape quits.
func runWindow(app *App, scenePath string) error {
	f := app.Frame()
	g := &windowGame{app: app, scenePath: scenePath}
	ebiten.SetWindowTitle("Raymarching Demo")
	ebiten.SetWindowSize(f.Width, f.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type windowGame struct {
	app       *App
	scenePath string
	img       *ebiten.Image
	scratch   []byte
}

func (g *windowGame) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if g.scenePath != "" && inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.reload()
	}

	var delta geom.Vec3
	var yaw float64
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		delta.Z += moveStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		delta.Z -= moveStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		delta.X += moveStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		delta.X -= moveStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) {
		yaw += turnStep
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) {
		yaw -= turnStep
	}
	if delta == (geom.Vec3{}) && yaw == 0 {
		return nil
	}
	return g.app.MoveCamera(delta, yaw)
}

func (g *windowGame) reload() {
	src, err := os.ReadFile(g.scenePath)
	if err != nil {
		log.Printf("reload: %v", err)
		return
	}
	result := g.app.Evaluate(string(src))
	for _, e := range result.Errors {
		log.Printf("%s:%d: %s", g.scenePath, e.Line, e.Message)
	}
}

func (g *windowGame) Draw(screen *ebiten.Image) {
	f := g.app.Frame()
	if g.img == nil {
		g.img = ebiten.NewImage(f.Width, f.Height)
	}
	if _, err := g.app.RenderFrame(context.Background()); err != nil {
		log.Printf("render: %v", err)
		return
	}
	g.scratch = f.RGBA(g.scratch)
	g.img.WritePixels(g.scratch)
	screen.DrawImage(g.img, nil)
}

func (g *windowGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	f := g.app.Frame()
	return f.Width, f.Height
}
