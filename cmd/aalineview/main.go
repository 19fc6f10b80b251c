// Command aalineview shows a rotating line scene in a gogpu window.
//
// Every frame is rendered into an aaline.Pixmap and drawn to the window as a
// texture. The accelerator shares the window's GPU device, so frames it
// accepts never touch a second device. Space pauses the rotation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/aaline"
	aalinegpu "github.com/gogpu/aaline/gpu"
	"github.com/gogpu/aaline/internal/scene"
	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "YAML scene file (default: built-in star)")
		push      = flag.Bool("push", false, "pass parameters as push constants")
		speed     = flag.Float64("speed", 30, "rotation in degrees per second")
		lineWidth = flag.Float64("linewidth", 1, "rasterized line width; the GPU path needs 1")
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
	if sc.Width == 0 || sc.Height == 0 {
		sc.Width, sc.Height = 800, 600
	}

	transport := aaline.TransportUniform
	if *push {
		transport = aaline.TransportPush
	}
	bg, _ := sc.ClearColor() // validated by scene.Parse
	r := aaline.NewLineRenderer(
		aaline.WithTransport(transport),
		aaline.WithLineWidth(float32(*lineWidth)),
		aaline.WithClearColor(bg),
	)

	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("aaline").
		WithSize(sc.Width, sc.Height).
		WithContinuousRender(false))

	v := &viewer{scene: sc, renderer: r, spin: spinner{speed: float32(*speed)}}
	var anim *gogpu.AnimationToken
	shared := false

	app.OnDraw(func(dc *gogpu.Context) {
		if !shared {
			shared = true
			if provider := app.GPUContextProvider(); provider != nil {
				if err := aalinegpu.SetDeviceProvider(provider); err != nil {
					log.Printf("GPU device not shared: %v", err)
				}
			}
			log.Printf("Backend: %s", dc.Backend())
			anim = app.StartAnimation()
		}

		w, h := dc.Width(), dc.Height()
		if w <= 0 || h <= 0 {
			return
		}
		angle := v.spin.advance(time.Now())
		if err := v.draw(dc.AsTextureDrawer(), w, h, angle); err != nil {
			log.Printf("Frame %d: %v", v.frames, err)
		}
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		if key != gpucontext.KeySpace {
			return
		}
		v.spin.toggle(time.Now())
		if v.spin.paused {
			if anim != nil {
				anim.Stop()
				anim = nil
			}
			log.Printf("Paused (Space to resume)")
			return
		}
		anim = app.StartAnimation()
		log.Printf("Resumed")
	})

	app.OnClose(func() {
		if anim != nil {
			anim.Stop()
		}
		v.close()
		r.Close()
		// Release accelerator resources while the shared device is alive.
		aaline.CloseAccelerator()
	})

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}

// textureDestroyer is implemented by gogpu textures.
type textureDestroyer interface {
	Destroy()
}

var errNoTextureCreator = errors.New("aalineview: draw context has no texture creator")

// viewer renders the scene into a pixmap and keeps one window-sized texture
// up to date with it.
type viewer struct {
	scene    scene.Scene
	renderer *aaline.LineRenderer
	spin     spinner

	pm      *aaline.Pixmap
	texture any
	frames  int
}

func (v *viewer) draw(dc gpucontext.TextureDrawer, w, h int, angle float32) error {
	if v.pm == nil || v.pm.Width() != w || v.pm.Height() != h {
		v.pm = aaline.NewPixmap(w, h)
		v.close()
	}

	v.scene.Queue(v.renderer)
	if err := v.renderer.RenderTo(context.Background(), v.pm, frameTransform(v.scene, angle)); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	v.frames++
	if v.frames == 1 {
		stats := v.renderer.Stats()
		aaline.Logger().Debug("aalineview: first frame", "gpu", v.renderer.UsedGPU(), "segments", stats.Segments)
	}

	// Textures are top-down; the pixmap is bottom-up.
	pix := v.pm.ToImage().Pix
	if v.texture == nil {
		creator := dc.TextureCreator()
		if creator == nil {
			return errNoTextureCreator
		}
		tex, err := creator.NewTextureFromRGBA(w, h, pix)
		if err != nil {
			return fmt.Errorf("create texture: %w", err)
		}
		v.texture = tex
	} else if updater, ok := v.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(pix); err != nil {
			return fmt.Errorf("update texture: %w", err)
		}
	}

	tex, ok := v.texture.(gpucontext.Texture)
	if !ok {
		return fmt.Errorf("aalineview: unexpected texture type %T", v.texture)
	}
	return dc.DrawTexture(tex, 0, 0)
}

func (v *viewer) close() {
	if d, ok := v.texture.(textureDestroyer); ok {
		d.Destroy()
	}
	v.texture = nil
}

// frameTransform rotates the scene's own transform by angle degrees around z.
func frameTransform(sc scene.Scene, angle float32) mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(mgl32.DegToRad(angle)).Mul4(sc.Transform.Matrix())
}

// spinner integrates a rotation angle over wall-clock time and can be paused.
type spinner struct {
	speed  float32 // degrees per second
	angle  float32
	last   time.Time
	paused bool
}

// advance returns the angle for a frame drawn at now.
func (s *spinner) advance(now time.Time) float32 {
	if !s.paused && !s.last.IsZero() {
		s.angle += s.speed * float32(now.Sub(s.last).Seconds())
		for s.angle >= 360 {
			s.angle -= 360
		}
	}
	s.last = now
	return s.angle
}

func (s *spinner) toggle(now time.Time) {
	s.paused = !s.paused
	s.last = now
}
