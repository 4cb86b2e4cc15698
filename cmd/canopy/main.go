// canopy - scene-graph culling driver
// Loads a YAML scene description or a glTF file, animates it and reports which
// leaves survive view-frustum culling each frame.
//
// Controls (-view):
//
//	W/S         - Move forward/back
//	A/D         - Strafe left/right
//	Q/E         - Move down/up
//	Arrows      - Look around
//	Space       - Pause animation
//	B           - Toggle bounds of visible meshes
//	Esc         - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/pkg/errors"
	"github.com/taigrr/canopy/pkg/loader"
	"github.com/taigrr/canopy/pkg/math3d"
	"github.com/taigrr/canopy/pkg/render"
	"github.com/taigrr/canopy/pkg/scene"
)

var (
	frames    = flag.Int("frames", 1, "Frames to simulate in headless mode")
	targetFPS = flag.Int("fps", 30, "Frames per second of application time")
	view      = flag.Bool("view", false, "Interactive terminal view")
	debug     = flag.Bool("debug", false, "Log every culling pass and visible leaf")
	snapshot  = flag.String("snapshot", "", "Write a PNG wireframe of the last headless frame")
	size      = flag.String("size", "320x180", "Snapshot size (WxH)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "canopy - scene-graph culling driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: canopy [options] <scene.yaml|scene.glb|scene.gltf>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls (-view):\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Move camera\n")
		fmt.Fprintf(os.Stderr, "  Q/E         - Move down/up\n")
		fmt.Fprintf(os.Stderr, "  Arrows      - Look around\n")
		fmt.Fprintf(os.Stderr, "  Space       - Pause animation\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle bounds of visible meshes\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if flag.NArg() < 1 || *targetFPS <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	s, err := loadScene(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *view {
		err = runView(s, logger)
	} else {
		err = runHeadless(s, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadScene reads a YAML scene, or wraps a glTF file with a camera framing its
// bound.
func loadScene(path string) (*loader.Scene, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err := loader.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		return cfg.Build()
	case ".glb", ".gltf":
		root, err := loader.LoadGLTF(path)
		if err != nil {
			return nil, err
		}
		root.Update(0, true)
		return &loader.Scene{Root: root, Camera: frameCamera(root.WorldBound())}, nil
	default:
		return nil, errors.Errorf("unsupported format: %s (use .yaml, .glb or .gltf)", ext)
	}
}

// frameCamera places a perspective camera on +Z looking at the whole bound.
func frameCamera(b scene.BoundingSphere) *render.Camera {
	cam := render.NewCamera()
	r := math.Max(b.Radius, 1)
	dist := r / math.Sin(cam.FOV/2)
	cam.SetClipPlanes(0.1, math.Max(1000, dist+2*r))
	cam.SetPosition(b.Center.Add(math3d.V3(0, 0, dist)))
	cam.LookAt(b.Center)
	return cam
}

func runHeadless(s *loader.Scene, logger *slog.Logger) error {
	culler, err := s.NewCuller(scene.WithLogger(logger))
	if err != nil {
		return err
	}

	step := 1 / float64(*targetFPS)
	for frame := range *frames {
		appTime := float64(frame) * step
		s.Root.Update(appTime, true)
		culler.ComputeVisibleSet(s.Camera, s.Root)

		st := culler.Stats()
		logger.Info("frame",
			"n", frame,
			"time", appTime,
			"visible", culler.VisibleSet().Len(),
			"tested", st.Tested,
			"culled", st.Culled,
			"plane_tests", st.PlaneTests,
		)
		if logger.Enabled(context.Background(), slog.LevelDebug) {
			for leaf := range culler.VisibleSet().All() {
				logger.Debug("visible", "frame", frame, "name", leaf.Name(), "center", scene.WorldPosition(leaf))
			}
		}
	}

	if *snapshot == "" {
		return nil
	}
	var w, h int
	if _, err := fmt.Sscanf(*size, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return errors.Errorf("bad -size %q, want WxH", *size)
	}
	fb := render.NewFramebuffer(w, h)
	s.Camera.SetAspectRatio(float64(w) / float64(h))
	drawFrame(fb, render.NewWireframe(s.Camera, fb), culler, false)
	if err := fb.SavePNG(*snapshot); err != nil {
		return err
	}
	logger.Info("wrote snapshot", "path", *snapshot, "width", w, "height", h)
	return nil
}

var background = render.RGB(20, 22, 30)

// drawFrame draws the ground grid and the visible set. With bounds, every
// visible leaf also gets its world bounding sphere.
func drawFrame(fb *render.Framebuffer, w *render.Wireframe, c *scene.Culler, bounds bool) {
	fb.Clear(background)
	w.DrawGrid(20, 1, render.RGB(50, 55, 70))
	w.DrawAxes(1)
	if bounds {
		for leaf := range c.VisibleSet().All() {
			w.DrawBound(leaf.WorldBound(), render.ColorCyan)
		}
	}
	w.DrawVisibleSet(c.VisibleSet(), render.RGB(0, 255, 128), render.ColorYellow)
}

func runView(s *loader.Scene, logger *slog.Logger) error {
	// Logging to stderr would tear the alternate screen.
	culler, err := s.NewCuller(scene.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return err
	}

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return errors.Wrap(err, "get terminal size")
	}
	if err := term.Start(); err != nil {
		return errors.Wrap(err, "start terminal")
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	fb := render.NewFramebuffer(fbWidth, fbHeight)
	camera := s.Camera
	camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
	wire := render.NewWireframe(camera, fb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	events := make(chan uv.Event, 16)
	go func() {
		for ev := range term.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	cleanup := func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	const (
		moveSpeed = 0.5
		lookSpeed = 0.05
	)
	var (
		appTime    float64
		paused     bool
		showBounds bool
	)

	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				termRenderer = render.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				fb = render.NewFramebuffer(fbWidth, fbHeight)
				wire = render.NewWireframe(camera, fb)
				camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "ctrl+c"):
					return nil
				case ev.MatchString("w"):
					camera.MoveForward(moveSpeed)
				case ev.MatchString("s"):
					camera.MoveForward(-moveSpeed)
				case ev.MatchString("a"):
					camera.MoveRight(-moveSpeed)
				case ev.MatchString("d"):
					camera.MoveRight(moveSpeed)
				case ev.MatchString("q"):
					camera.MoveUp(-moveSpeed)
				case ev.MatchString("e"):
					camera.MoveUp(moveSpeed)
				case ev.MatchString("up"):
					camera.Rotate(lookSpeed, 0, 0)
				case ev.MatchString("down"):
					camera.Rotate(-lookSpeed, 0, 0)
				case ev.MatchString("left"):
					camera.Rotate(0, -lookSpeed, 0)
				case ev.MatchString("right"):
					camera.Rotate(0, lookSpeed, 0)
				case ev.MatchString("space"):
					paused = !paused
				case ev.MatchString("b"):
					showBounds = !showBounds
				}
			}
			continue
		default:
		}

		now := time.Now()
		dt := min(now.Sub(lastFrame).Seconds(), 0.1)
		lastFrame = now
		if !paused {
			appTime += dt
		}

		s.Root.Update(appTime, true)
		culler.ComputeVisibleSet(camera, s.Root)

		drawFrame(fb, wire, culler, showBounds)
		termRenderer.Render(fb)
		st := culler.Stats()
		drawStatus(term, width, fmt.Sprintf(" %d visible  %d tested  %d culled  t=%.1fs ",
			culler.VisibleSet().Len(), st.Tested, st.Culled, appTime))
		if err := termRenderer.Flush(); err != nil {
			logger.Error("flush", "err", err)
			return err
		}

		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

// drawStatus writes text over the top row.
func drawStatus(scr uv.Screen, width int, text string) {
	style := uv.Style{Fg: render.ColorWhite, Bg: render.ColorBlack}
	for i, r := range []rune(text) {
		if i >= width {
			break
		}
		scr.SetCell(i, 0, &uv.Cell{Content: string(r), Width: 1, Style: style})
	}
}
