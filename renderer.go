package aaline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/aaline/internal/parallel"
)

// LineRenderer collects line batches and renders them in one frame.
//
// Every DrawLine, DrawPolyline or DrawVertices call queues one batch; Render
// draws the queued batches in order and drains the queue. The transform
// passed to Render is composed with AspectView, so the host works in a
// square space regardless of the target size.
//
// Thread safety: LineRenderer is safe for concurrent use.
type LineRenderer struct {
	mu      sync.Mutex
	opts    options
	batches [][]Vertex

	fb   *Framebuffer
	pool *parallel.WorkerPool

	stats   Stats
	usedGPU bool
}

// NewLineRenderer creates a renderer. Call Close when done.
func NewLineRenderer(opts ...Option) *LineRenderer {
	r := &LineRenderer{opts: applyOptions(opts)}
	if r.opts.workers != 1 {
		r.pool = parallel.NewWorkerPool(r.opts.workers)
	}
	return r
}

// DrawLine queues a line-list batch: path[0]-path[1], path[2]-path[3] and
// so on, all in color c. A trailing unpaired point is ignored at draw time.
func (r *LineRenderer) DrawLine(path []mgl32.Vec3, c RGBA) {
	if len(path) == 0 {
		return
	}
	batch := make([]Vertex, len(path))
	for i, p := range path {
		batch[i] = NewVertex(p, c)
	}
	r.push(batch)
}

// DrawPolyline queues a connected strip through every point of path.
func (r *LineRenderer) DrawPolyline(path []mgl32.Vec3, c RGBA) {
	if len(path) < 2 {
		return
	}
	batch := make([]Vertex, 0, 2*(len(path)-1))
	for i := 1; i < len(path); i++ {
		batch = append(batch, NewVertex(path[i-1], c), NewVertex(path[i], c))
	}
	r.push(batch)
}

// DrawVertices queues a line-list batch with per-vertex colors. The slice
// is copied.
func (r *LineRenderer) DrawVertices(vertices []Vertex) {
	if len(vertices) == 0 {
		return
	}
	r.push(append([]Vertex(nil), vertices...))
}

func (r *LineRenderer) push(batch []Vertex) {
	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
}

// ClearLines drops every queued batch without drawing it.
func (r *LineRenderer) ClearLines() {
	r.mu.Lock()
	r.batches = nil
	r.mu.Unlock()
}

// Pending returns the number of queued batches.
func (r *LineRenderer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// Render draws the queued batches into a new width x height pixmap.
// See RenderTo.
func (r *LineRenderer) Render(ctx context.Context, transform mgl32.Mat4, width, height int) (*Pixmap, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidViewport, width, height)
	}
	pm := NewPixmap(width, height)
	if err := r.RenderTo(ctx, pm, transform); err != nil {
		return nil, err
	}
	return pm, nil
}

// RenderTo clears pm, draws the queued batches into it and drains the
// queue. The parameter block holds AspectView(w, h) * transform and the
// pixmap size.
//
// A registered accelerator is tried first; the CPU pipeline renders the
// frame when there is none or it declines. The queue is drained even when
// ctx is canceled mid-frame.
func (r *LineRenderer) RenderTo(ctx context.Context, pm *Pixmap, transform mgl32.Mat4) error {
	w, h := pm.Width(), pm.Height()

	params := NewDrawParams(AspectView(w, h).Mul4(transform), w, h)
	if err := params.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batches := r.batches
	r.batches = nil

	src, err := NewParamSource(r.opts.transport, params)
	if err != nil {
		return err
	}

	frame := &LineFrame{
		Source:    src,
		Clear:     r.opts.clear,
		Batches:   batches,
		Fragment:  r.opts.fragmentStage(),
		LineWidth: r.opts.lineWidth,
		Samples:   r.opts.samples,
	}

	r.stats = Stats{}
	r.usedGPU = false

	if err := r.tryGPU(pm, frame); err == nil {
		r.usedGPU = true
		return nil
	}

	return r.renderCPU(ctx, pm, frame)
}

// tryGPU attempts to render the frame with the registered accelerator.
func (r *LineRenderer) tryGPU(pm *Pixmap, frame *LineFrame) error {
	if r.opts.noAccel {
		return ErrFallbackToCPU
	}
	a := Accelerator()
	if a == nil {
		return ErrFallbackToCPU
	}
	if !a.CanAccelerate(frame.Ops()) {
		return ErrFallbackToCPU
	}
	err := a.DrawLines(pm.GPURenderTarget(), frame)
	if err != nil && !errors.Is(err, ErrFallbackToCPU) {
		Logger().Warn("aaline: GPU draw failed, falling back to CPU",
			"accelerator", a.Name(), "err", err)
	}
	return err
}

func (r *LineRenderer) renderCPU(ctx context.Context, pm *Pixmap, frame *LineFrame) error {
	w, h := pm.Width(), pm.Height()
	if r.fb == nil {
		r.fb = NewFramebuffer(w, h, frame.Samples)
		Logger().Debug("aaline: framebuffer created", "width", w, "height", h, "samples", r.fb.Samples())
	} else if r.fb.Resize(w, h, frame.Samples) {
		Logger().Debug("aaline: framebuffer resized", "width", w, "height", h, "samples", r.fb.Samples())
	}
	r.fb.Clear(frame.Clear)

	p, err := newPipeline(frame.Source, &r.opts, r.pool)
	if err != nil {
		return err
	}

	for i, batch := range frame.Batches {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("aaline: render canceled at batch %d of %d: %w", i, len(frame.Batches), err)
		}
		s := p.Draw(r.fb, batch)
		r.stats.Add(s)
		Logger().Debug("aaline: batch drawn", "batch", i, "vertices", s.Vertices,
			"segments", s.Segments, "shaded", s.Shaded, "discarded", s.Discarded)
	}

	return r.fb.ResolveTo(pm)
}

// Stats returns the counters of the last CPU-rendered frame. They are zero
// when the accelerator rendered it.
func (r *LineRenderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// UsedGPU reports whether the last frame was rendered by the accelerator.
func (r *LineRenderer) UsedGPU() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usedGPU
}

// Close stops the renderer's CPU workers. The global accelerator stays
// registered. It is safe to call multiple times.
func (r *LineRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pool != nil {
		r.pool.Close()
	}
}
