package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/chazu/sdfmarch/pkg/render"
	"github.com/chazu/sdfmarch/pkg/stream"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "scene source file (default: one sphere ahead of the camera)")
		width     = flag.Int("width", 800, "frame width in pixels")
		height    = flag.Int("height", 600, "frame height in pixels")
		maxSteps  = flag.Int("max-steps", 0, "march step limit (0: from scene, default 10)")
		epsilon   = flag.Float64("epsilon", 0, "hit distance (0: from scene, default 0.001)")
		shader    = flag.String("shader", "binary", "pixel shader: binary, palette or normal")
		workers   = flag.Int("workers", 0, "render goroutines (0: GOMAXPROCS)")
		headless  = flag.Bool("headless", false, "render without a window and log frame stats")
		frames    = flag.Int("frames", 1, "frames to render in headless mode")
		serve     = flag.String("serve", "", "stream frames to websocket viewers on this address (e.g. :8080)")
		codec     = flag.String("codec", "snappy", "streamed frame compression: raw, snappy or zstd")
		fps       = flag.Int("fps", 30, "frames per second when streaming")
	)
	flag.Parse()

	sh, ok := render.ShaderByName(*shader)
	if !ok {
		log.Fatalf("unknown shader %q", *shader)
	}

	app, err := NewApp(Options{
		Width:    *width,
		Height:   *height,
		MaxSteps: *maxSteps,
		Epsilon:  *epsilon,
		Shader:   sh,
		Workers:  *workers,
	})
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if *scenePath == "" {
		if err := app.Load(DefaultDescription()); err != nil {
			log.Fatalf("default scene: %v", err)
		}
	} else {
		src, err := os.ReadFile(*scenePath)
		if err != nil {
			log.Fatalf("read scene: %v", err)
		}
		result := app.Evaluate(string(src))
		if len(result.Errors) > 0 {
			for _, e := range result.Errors {
				log.Printf("%s:%d: %s", *scenePath, e.Line, e.Message)
			}
			os.Exit(1)
		}
	}

	if *serve != "" {
		c, err := stream.ParseCodec(*codec)
		if err != nil {
			log.Fatal(err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runServe(ctx, app, *serve, c, *fps); err != nil {
			log.Fatalf("serve: %v", err)
		}
		return
	}

	if *headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runHeadless(ctx, app, *frames); err != nil {
			log.Fatalf("headless: %v", err)
		}
		return
	}

	if err := runWindow(app, *scenePath); err != nil {
		log.Fatalf("window: %v", err)
	}
}

// runHeadless renders n frames and logs per-frame stats.
func runHeadless(ctx context.Context, app *App, n int) error {
	var total time.Duration
	for i := 0; i < n; i++ {
		stats, err := app.RenderFrame(ctx)
		if err != nil {
			return err
		}
		total += stats.Elapsed
		log.Printf("frame %d: %d hits, %d misses, %d steps in %s",
			i, stats.Hits, stats.Misses, stats.Steps, stats.Elapsed)
	}
	if n > 0 {
		log.Printf("rendered %d frames, mean %s", n, total/time.Duration(n))
	}
	return nil
}

// runServe renders at fps while viewers are connected and streams each
// frame to them over a websocket at /ws. Viewer control messages move the
// camera. It returns when ctx is done.
func runServe(ctx context.Context, app *App, addr string, codec stream.Codec, fps int) error {
	if fps <= 0 {
		return errors.New("fps must be positive")
	}
	srv, err := stream.NewServer(codec, func(c stream.Control) {
		if err := app.MoveCamera(c.Move, c.Yaw); err != nil {
			log.Printf("control: %v", err)
		}
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	hs := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		log.Printf("streaming %s frames on %s/ws", codec, addr)
		errc <- hs.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		case err := <-errc:
			return err
		case <-ticker.C:
			if srv.Clients() == 0 {
				continue
			}
			if _, err := app.RenderFrame(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				return err
			}
			if _, err := srv.Publish(app.Frame()); err != nil {
				return err
			}
		}
	}
}
