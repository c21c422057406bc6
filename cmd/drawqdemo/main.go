// Command drawqdemo renders the drawq demo scene on the headless noop
// backend and reports what each frame drew.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/drawq"
	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/text"
)

func main() {
	var (
		width   = flag.Int("width", 800, "surface width")
		height  = flag.Int("height", 600, "surface height")
		frames  = flag.Int("frames", 3, "number of frames to render")
		spirv   = flag.Bool("spirv", false, "compile shaders to SPIR-V with naga")
		pan     = flag.Float64("pan", 0, "horizontal camera pan per frame in pixels")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		drawq.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(uint32(*width), uint32(*height), *frames, float32(*pan), *spirv); err != nil { //nolint:gosec // flag values
		log.Fatalf("drawqdemo: %v", err)
	}
}

func run(width, height uint32, frames int, pan float32, spirv bool) error {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no adapters")
	}
	adapter := adapters[0].Adapter
	opened, err := adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer opened.Device.Destroy()

	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	defer surface.Destroy()

	r, err := drawq.New(opened.Device, opened.Queue, surface, width, height,
		drawq.WithAdapter(adapter),
		drawq.WithSPIRVShaders(spirv),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	legend, err := r.CreateCachedText("Rectangle | Square | Circle", 16)
	if err != nil {
		return err
	}
	counter, err := r.CreateCachedText("", 14)
	if err != nil {
		return err
	}

	camera := r.CreateCamera()
	for i := range frames {
		camera.SetPosition(pan*float32(i), 0)
		if err := r.SetCamera(camera); err != nil {
			return err
		}
		if err := drawScene(r, legend, counter, i); err != nil {
			return err
		}
		if err := r.RenderFrame(); err != nil {
			if drawq.IsRecoverable(err) {
				log.Printf("frame %d skipped: %v", i, err)
				continue
			}
			return err
		}
		s := r.FrameStats()
		log.Printf("frame %d: camera x=%.0f, %d vertices, %d indices, %d text areas, %d glyphs",
			i, camera.X, s.Vertices, s.Indices, s.TextAreas, s.Glyphs)
	}
	return nil
}

func drawScene(r *drawq.Renderer, legend, counter text.Handle, frame int) error {
	if err := r.QueueRectangle(50, 50, 100, 80, geom.Red); err != nil {
		return err
	}
	if err := r.QueueSquare(300, 100, 60, geom.Green); err != nil {
		return err
	}
	if err := r.QueueCircle(600, 150, 40, geom.Blue); err != nil {
		return err
	}
	if err := r.QueueText("Hello, WGPU!", text.Pt(100, 300), 32, geom.White); err != nil {
		return err
	}
	r.QueueCachedText(legend, text.Pt(350, 350), geom.Yellow, 1)

	if _, err := r.UpdateCachedText(counter, fmt.Sprintf("frame %d", frame), nil); err != nil {
		return err
	}
	r.QueueCachedText(counter, text.Pt(10, 10), geom.White, 1)
	return nil
}
