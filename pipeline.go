package aaline

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/aaline/internal/parallel"
	"github.com/gogpu/aaline/internal/raster"
)

// ErrSizeMismatch reports a pixmap whose size differs from the framebuffer.
var ErrSizeMismatch = errors.New("aaline: size mismatch")

// clearDepth is the value the depth attachment is cleared to.
const clearDepth = 1.0

// Framebuffer is a multisampled color and depth target for the CPU
// pipeline. Colors are stored straight-alpha in float32 and resolved to
// RGBA8 on demand.
type Framebuffer struct {
	fb *raster.Framebuffer
}

// NewFramebuffer allocates a width x height framebuffer. Sample counts other
// than 1 and 4 are rendered single-sampled.
func NewFramebuffer(width, height, samples int) *Framebuffer {
	return &Framebuffer{fb: raster.NewFramebuffer(width, height, samples)}
}

// Width returns the width in pixels.
func (f *Framebuffer) Width() int { return f.fb.Width() }

// Height returns the height in pixels.
func (f *Framebuffer) Height() int { return f.fb.Height() }

// Samples returns the sample count per pixel.
func (f *Framebuffer) Samples() int { return f.fb.Samples() }

// Resize reallocates the attachments only when the size or sample count
// changes. It reports whether they were reallocated.
func (f *Framebuffer) Resize(width, height, samples int) bool {
	return f.fb.Resize(width, height, samples)
}

// Clear sets every sample to c and the depth attachment to 1.
func (f *Framebuffer) Clear(c RGBA) {
	f.fb.Clear(c.Float32(), clearDepth)
}

// Sample returns the stored color and depth of sample s at pixel (x, y).
func (f *Framebuffer) Sample(x, y, s int) (RGBA, float32) {
	c, d := f.fb.Sample(x, y, s)
	return FromFloat32(c), d
}

// ResolveTo averages the samples of every pixel into pm.
func (f *Framebuffer) ResolveTo(pm *Pixmap) error {
	if pm.Width() != f.Width() || pm.Height() != f.Height() {
		return fmt.Errorf("%w: pixmap %dx%d, framebuffer %dx%d",
			ErrSizeMismatch, pm.Width(), pm.Height(), f.Width(), f.Height())
	}
	f.fb.Resolve(pm.Data(), pm.Stride())
	return nil
}

// Pixmap resolves the framebuffer into a new pixmap.
func (f *Framebuffer) Pixmap() *Pixmap {
	pm := NewPixmap(f.Width(), f.Height())
	f.fb.Resolve(pm.Data(), pm.Stride())
	return pm
}

// Stats counts the work done by one draw.
type Stats struct {
	Vertices  int
	Segments  int
	Shaded    int
	Discarded int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Vertices += other.Vertices
	s.Segments += other.Segments
	s.Shaded += other.Shaded
	s.Discarded += other.Discarded
}

// Pipeline is the CPU reference line pipeline: vertex stage, line
// rasterizer, fragment stage and blending into a Framebuffer.
//
// The rasterizer maps clip positions to the framebuffer size; the vertex
// stage maps centers with the viewport from the parameter block. Hosts keep
// the two equal.
type Pipeline struct {
	vertex    *VertexStage
	fragment  FragmentStage
	lineWidth float32

	pool     *parallel.WorkerPool
	ownsPool bool
}

// NewPipeline builds a pipeline that reads its parameters from src.
// WithHalfWidth, WithBlendFactor, WithLineWidth and WithWorkers apply.
// Call Close when done to stop its workers.
func NewPipeline(src ParamSource, opts ...Option) (*Pipeline, error) {
	o := applyOptions(opts)
	p, err := newPipeline(src, &o, nil)
	if err != nil {
		return nil, err
	}
	if o.workers != 1 {
		p.pool = parallel.NewWorkerPool(o.workers)
		p.ownsPool = true
	}
	return p, nil
}

// newPipeline builds a pipeline that shares pool, which may be nil.
func newPipeline(src ParamSource, o *options, pool *parallel.WorkerPool) (*Pipeline, error) {
	if src == nil {
		return nil, errors.New("aaline: nil parameter source")
	}
	vs, err := NewVertexStage(src)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		vertex:    vs,
		fragment:  o.fragmentStage(),
		lineWidth: o.lineWidth,
		pool:      pool,
	}, nil
}

// VertexStage returns the pipeline's vertex stage.
func (p *Pipeline) VertexStage() *VertexStage { return p.vertex }

// FragmentStage returns the pipeline's fragment stage.
func (p *Pipeline) FragmentStage() FragmentStage { return p.fragment }

// Draw renders vertices as a line list into fb. Consecutive pairs form one
// segment; a trailing unpaired vertex is ignored. Draw does not clear fb.
func (p *Pipeline) Draw(fb *Framebuffer, vertices []Vertex) Stats {
	stats := Stats{Vertices: len(vertices)}
	if len(vertices) < 2 || fb.Width() == 0 || fb.Height() == 0 {
		return stats
	}

	varyings := make([]raster.Varyings, len(vertices))
	for i := range vertices {
		out := p.vertex.Run(vertices[i])
		varyings[i] = raster.Varyings{
			Clip:   out.Clip,
			Color:  out.Color,
			Center: out.Center,
		}
	}

	segs := raster.PrepareLines(varyings, float32(fb.Width()), float32(fb.Height()), p.lineWidth)
	stats.Segments = len(segs)
	if len(segs) == 0 {
		return stats
	}

	shade := func(color [4]float32, center, fragCoord [2]float32) ([4]float32, bool) {
		return p.fragment.Shade(FragmentInput{Color: color, Center: center}, mgl32.Vec2(fragCoord))
	}

	var rs raster.Stats
	if p.pool == nil || fb.Height() <= parallel.BandHeight {
		rs = raster.DrawSegments(fb.fb, segs, shade, parallel.Band{Y0: 0, Y1: fb.Height()})
	} else {
		rs = p.drawBands(fb, segs, shade)
	}

	stats.Shaded = rs.Shaded
	stats.Discarded = rs.Discarded
	return stats
}

// drawBands rasterizes every band on the pool. Each band owns its rows, so
// the result matches a serial draw.
func (p *Pipeline) drawBands(fb *Framebuffer, segs []raster.Segment, shade raster.FragmentFunc) raster.Stats {
	bands := parallel.SplitRows(fb.Height(), parallel.BandHeight)
	results := make([]raster.Stats, len(bands))
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			results[i] = raster.DrawSegments(fb.fb, segs, shade, b)
		}
	}
	p.pool.ExecuteAll(work)

	var total raster.Stats
	for _, r := range results {
		total.Add(r)
	}
	return total
}

// Close stops the pipeline's workers. It is safe to call multiple times.
func (p *Pipeline) Close() {
	if p.ownsPool && p.pool != nil {
		p.pool.Close()
	}
}
