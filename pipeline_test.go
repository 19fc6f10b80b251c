package aaline

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// horizontalLine is a red line through the middle of an 800x600 target
// under the identity transform: window x 200..600, y 300.
func horizontalLine() []Vertex {
	return []Vertex{
		NewVertex(mgl32.Vec3{-0.5, 0, 0}, Red),
		NewVertex(mgl32.Vec3{0.5, 0, 0}, Red),
	}
}

func newTestPipeline(t *testing.T, tr Transport, opts ...Option) *Pipeline {
	t.Helper()
	src, err := NewParamSource(tr, NewDrawParams(mgl32.Ident4(), 800, 600))
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPipeline(src, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Close)
	return p
}

func near(got, want uint8) bool {
	d := int(got) - int(want)
	return d >= -1 && d <= 1
}

func TestPipelineHorizontalLine(t *testing.T) {
	p := newTestPipeline(t, TransportUniform, WithSamples(1), WithWorkers(1))
	fb := NewFramebuffer(800, 600, 1)
	fb.Clear(DefaultClearColor)

	stats := p.Draw(fb, horizontalLine())
	if stats.Segments != 1 {
		t.Fatalf("Segments = %d, want 1", stats.Segments)
	}
	// 400 columns by 4 rows (y 298..301) with a 3 px line.
	if stats.Shaded != 1600 || stats.Discarded != 0 {
		t.Errorf("stats = %+v, want 1600 shaded", stats)
	}

	pm := fb.Pixmap()

	// Row 299: d = 0.5, alpha = 5/6, blended over the clear color.
	got := pm.Data()[(299*800+400)*4:]
	if !near(got[0], 215) || !near(got[1], 2) || !near(got[3], 220) {
		t.Errorf("pixel (400, 299) = %v, want about [215 2 2 220]", got[:4])
	}

	// Row 298: d = 1.5, alpha = 1/2.
	got = pm.Data()[(298*800+400)*4:]
	if !near(got[0], 134) || !near(got[3], 191) {
		t.Errorf("pixel (400, 298) = %v, want about [134 6 6 191]", got[:4])
	}

	// Outside the line rectangle the clear color is untouched.
	for _, xy := range [][2]int{{400, 297}, {400, 302}, {199, 300}, {600, 300}} {
		c := pm.GetPixel(xy[0], xy[1])
		if unorm8(c.R) != 13 || unorm8(c.A) != 255 {
			t.Errorf("pixel %v = %+v, want clear color", xy, c)
		}
	}
}

func TestPipelineDiscardWritesNoColorOrDepth(t *testing.T) {
	p := newTestPipeline(t, TransportUniform, WithSamples(1), WithWorkers(1), WithHalfWidth(1))
	fb := NewFramebuffer(800, 600, 1)
	fb.Clear(DefaultClearColor)

	stats := p.Draw(fb, horizontalLine())
	// Rows 298 and 301 are at d = 1.5 > 1.
	if stats.Discarded != 800 || stats.Shaded != 800 {
		t.Errorf("stats = %+v, want 800 shaded and 800 discarded", stats)
	}

	c, depth := fb.Sample(400, 298, 0)
	if c != DefaultClearColor.asStored() || depth != 1 {
		t.Errorf("discarded sample = %+v depth %v, want clear values", c, depth)
	}
	if _, depth := fb.Sample(400, 299, 0); depth != 0 {
		t.Errorf("shaded sample depth = %v, want 0", depth)
	}
}

// asStored rounds c the way the float32 framebuffer stores it.
func (c RGBA) asStored() RGBA {
	return FromFloat32(c.Float32())
}

func TestPipelineTransportsBitIdentical(t *testing.T) {
	render := func(tr Transport) []byte {
		p := newTestPipeline(t, tr)
		fb := NewFramebuffer(800, 600, 4)
		fb.Clear(DefaultClearColor)
		p.Draw(fb, []Vertex{
			NewVertex(mgl32.Vec3{-0.9, -0.8, 0}, Red),
			NewVertex(mgl32.Vec3{0.7, 0.6, 0}, Green),
			NewVertex(mgl32.Vec3{-0.3, 0.9, 0}, NewRGBA(0, 0.5, 1, 0.7)),
			NewVertex(mgl32.Vec3{0.2, -0.95, 0}, White),
		})
		return fb.Pixmap().Data()
	}

	uniform := render(TransportUniform)
	push := render(TransportPush)
	if !bytes.Equal(uniform, push) {
		t.Error("uniform and push transports produced different images")
	}
}

func TestPipelineParallelMatchesSerial(t *testing.T) {
	verts := []Vertex{
		NewVertex(mgl32.Vec3{-1, -1, 0}, Red),
		NewVertex(mgl32.Vec3{1, 1, 0}, NewRGBA(1, 0, 0, 0.5)),
		NewVertex(mgl32.Vec3{-1, 1, 0}, NewRGBA(0, 1, 0, 0.5)),
		NewVertex(mgl32.Vec3{1, -1, 0}, Blue),
	}

	render := func(workers int) []byte {
		p := newTestPipeline(t, TransportUniform, WithWorkers(workers))
		fb := NewFramebuffer(800, 600, 4)
		fb.Clear(DefaultClearColor)
		p.Draw(fb, verts)
		return fb.Pixmap().Data()
	}

	if !bytes.Equal(render(1), render(4)) {
		t.Error("parallel rendering differs from serial rendering")
	}
}

func TestPipelineDegenerateInput(t *testing.T) {
	p := newTestPipeline(t, TransportUniform, WithWorkers(1))
	fb := NewFramebuffer(800, 600, 4)

	if s := p.Draw(fb, nil); s.Segments != 0 {
		t.Errorf("empty draw produced %d segments", s.Segments)
	}
	if s := p.Draw(fb, horizontalLine()[:1]); s.Segments != 0 || s.Vertices != 1 {
		t.Errorf("single vertex draw = %+v", s)
	}
}

func TestPipelineClipsToDepthRange(t *testing.T) {
	p := newTestPipeline(t, TransportUniform, WithWorkers(1))
	fb := NewFramebuffer(800, 600, 4)

	far := []Vertex{
		NewVertex(mgl32.Vec3{-0.5, 0, 5}, Red),
		NewVertex(mgl32.Vec3{0.5, 0, 5}, Red),
	}
	if s := p.Draw(fb, far); s.Segments != 0 || s.Shaded != 0 {
		t.Errorf("line past the far plane: %+v, want nothing drawn", s)
	}

	// Half of this line is in front of the near plane.
	straddle := []Vertex{
		NewVertex(mgl32.Vec3{-0.5, 0, -0.5}, Red),
		NewVertex(mgl32.Vec3{0.5, 0, 0.5}, Red),
	}
	s := p.Draw(fb, straddle)
	if s.Segments != 1 {
		t.Fatalf("straddling line: %+v, want one clipped segment", s)
	}
	full := p.Draw(NewFramebuffer(800, 600, 4), horizontalLine())
	if s.Shaded == 0 || s.Shaded >= full.Shaded {
		t.Errorf("straddling line shaded %d fragments, want fewer than the full line's %d", s.Shaded, full.Shaded)
	}
}

func TestNewPipelineNilSource(t *testing.T) {
	if _, err := NewPipeline(nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestFramebufferResolveToSizeMismatch(t *testing.T) {
	fb := NewFramebuffer(4, 4, 1)
	if err := fb.ResolveTo(NewPixmap(4, 5)); err == nil {
		t.Error("expected size mismatch error")
	}
}
