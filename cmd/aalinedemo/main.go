// Command aalinedemo renders a line scene with the aaline renderer and saves
// it as PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/aaline"
	_ "github.com/gogpu/aaline/gpu" // enable GPU acceleration
	"github.com/gogpu/aaline/internal/scene"
	"golang.org/x/image/draw"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "YAML scene file (default: built-in star)")
		width     = flag.Int("width", 0, "image width (overrides the scene)")
		height    = flag.Int("height", 0, "image height (overrides the scene)")
		output    = flag.String("output", "lines.png", "output file")
		transport = flag.String("transport", "uniform", "parameter transport: uniform or push")
		samples   = flag.Int("samples", aaline.DefaultSamples, "samples per pixel: 1 or 4")
		lineWidth = flag.Float64("linewidth", aaline.DefaultLineWidth, "rasterized line width; the GPU path needs 1")
		cpu       = flag.Bool("cpu", false, "skip the GPU accelerator")
		zoom      = flag.Int("zoom", 0, "also save a nearest-neighbor zoom of the image center at this factor")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		aaline.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	sc := scene.Default()
	if *scenePath != "" {
		s, err := scene.Load(*scenePath)
		if err != nil {
			log.Fatalf("Failed to load scene: %v", err)
		}
		sc = s
	}
	if *width > 0 {
		sc.Width = *width
	}
	if *height > 0 {
		sc.Height = *height
	}
	if sc.Width == 0 || sc.Height == 0 {
		sc.Width, sc.Height = 800, 600
	}

	tr, err := parseTransport(*transport)
	if err != nil {
		log.Fatal(err)
	}
	bg, _ := sc.ClearColor() // validated by scene.Parse

	opts := []aaline.Option{
		aaline.WithTransport(tr),
		aaline.WithSamples(*samples),
		aaline.WithLineWidth(float32(*lineWidth)),
		aaline.WithClearColor(bg),
	}
	if *cpu {
		opts = append(opts, aaline.WithoutAccelerator())
	}
	r := aaline.NewLineRenderer(opts...)
	defer r.Close()

	sc.Queue(r)
	pm, err := r.Render(context.Background(), sc.Transform.Matrix(), sc.Width, sc.Height)
	if err != nil {
		log.Fatalf("Failed to render: %v", err)
	}
	if err := pm.SavePNG(*output); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	stats := r.Stats()
	path := "cpu"
	if r.UsedGPU() {
		path = "gpu"
	}
	log.Printf("Saved %s (%dx%d, %s, %d segments, %d fragments shaded, %d discarded)",
		*output, sc.Width, sc.Height, path, stats.Segments, stats.Shaded, stats.Discarded)

	if *zoom > 1 {
		zoomPath := "zoom_" + *output
		if err := saveZoom(pm, *zoom, zoomPath); err != nil {
			log.Fatalf("Failed to save zoom: %v", err)
		}
		log.Printf("Saved %s (%dx zoom)", zoomPath, *zoom)
	}
}

func parseTransport(s string) (aaline.Transport, error) {
	switch s {
	case "uniform":
		return aaline.TransportUniform, nil
	case "push":
		return aaline.TransportPush, nil
	default:
		return 0, fmt.Errorf("%w %q (want uniform or push)", aaline.ErrInvalidTransport, s)
	}
}

// zoomImage scales the center region of pm by factor so that the result
// has pm's size and individual pixels of the falloff become visible.
func zoomImage(pm *aaline.Pixmap, factor int) *image.NRGBA {
	src := pm.ToImage()
	b := src.Bounds()
	w, h := max(b.Dx()/factor, 1), max(b.Dy()/factor, 1)
	cx, cy := b.Dx()/2, b.Dy()/2
	region := image.Rect(cx-w/2, cy-h/2, cx-w/2+w, cy-h/2+h)

	dst := image.NewNRGBA(image.Rect(0, 0, w*factor, h*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, region, draw.Src, nil)
	return dst
}

func saveZoom(pm *aaline.Pixmap, factor int, path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, zoomImage(pm, factor))
}
