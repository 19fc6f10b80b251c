package aaline

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func stageFor(t *testing.T, tr Transport, p DrawParams) *VertexStage {
	t.Helper()
	src, err := NewParamSource(tr, p)
	if err != nil {
		t.Fatalf("NewParamSource(%v) error: %v", tr, err)
	}
	vs, err := NewVertexStage(src)
	if err != nil {
		t.Fatalf("NewVertexStage(%v) error: %v", tr, err)
	}
	return vs
}

func TestVertexStageIdentityCenter(t *testing.T) {
	vs := stageFor(t, TransportUniform, NewDrawParams(mgl32.Ident4(), 800, 600))

	out := vs.Run(Vertex{Position: [3]float32{0, 0, 0}, Color: [4]float32{1, 0, 0, 1}})

	if out.Clip != (mgl32.Vec4{0, 0, 0, 1}) {
		t.Errorf("Clip = %v, want (0, 0, 0, 1)", out.Clip)
	}
	if out.Center != (mgl32.Vec2{400, 300}) {
		t.Errorf("Center = %v, want (400, 300)", out.Center)
	}
	if out.Color != [4]float32{1, 0, 0, 1} {
		t.Errorf("Color = %v, want passthrough", out.Color)
	}
}

func TestVertexStageCorners(t *testing.T) {
	vs := stageFor(t, TransportUniform, NewDrawParams(mgl32.Ident4(), 800, 600))

	tests := []struct {
		pos  [3]float32
		want mgl32.Vec2
	}{
		{[3]float32{-1, -1, 0}, mgl32.Vec2{0, 0}},
		{[3]float32{1, 1, 0}, mgl32.Vec2{800, 600}},
		{[3]float32{1, -1, 0}, mgl32.Vec2{800, 0}},
		{[3]float32{-0.5, 0.5, 0}, mgl32.Vec2{200, 450}},
	}
	for _, tt := range tests {
		out := vs.Run(Vertex{Position: tt.pos})
		if out.Center != tt.want {
			t.Errorf("Run(%v).Center = %v, want %v", tt.pos, out.Center, tt.want)
		}
	}
}

func TestVertexStageNoPerspectiveDivide(t *testing.T) {
	// Scaling w by 2 leaves clip x/y untouched, so the center must not move.
	m := mgl32.Ident4()
	m.Set(3, 3, 2)
	vs := stageFor(t, TransportUniform, NewDrawParams(m, 800, 600))

	out := vs.Run(Vertex{Position: [3]float32{0.5, 0.5, 0}})
	if out.Clip[3] != 2 {
		t.Fatalf("Clip.w = %v, want 2", out.Clip[3])
	}
	if out.Center != (mgl32.Vec2{600, 450}) {
		t.Errorf("Center = %v, want (600, 450) without divide", out.Center)
	}
}

func TestVertexStageAppliesTransform(t *testing.T) {
	m := mgl32.Translate3D(0.25, -0.5, 0).Mul4(mgl32.Scale3D(2, 2, 1))
	vs := stageFor(t, TransportUniform, NewDrawParams(m, 100, 100))

	out := vs.Run(Vertex{Position: [3]float32{0.25, 0.25, 0}})
	want := mgl32.Vec4{0.75, 0, 0, 1}
	if !out.Clip.ApproxEqual(want) {
		t.Errorf("Clip = %v, want %v", out.Clip, want)
	}
	if !out.Center.ApproxEqual(mgl32.Vec2{87.5, 50}) {
		t.Errorf("Center = %v, want (87.5, 50)", out.Center)
	}
}

func TestVertexStageTransportsBitIdentical(t *testing.T) {
	m := mgl32.Perspective(mgl32.DegToRad(60), 4.0/3.0, 0.1, 100).
		Mul4(mgl32.LookAtV(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
	p := NewDrawParams(m, 1023, 577)

	uniform := stageFor(t, TransportUniform, p)
	push := stageFor(t, TransportPush, p)

	if uniform.Transport() != TransportUniform || push.Transport() != TransportPush {
		t.Fatalf("transports = %v / %v", uniform.Transport(), push.Transport())
	}

	vertices := []Vertex{
		{Position: [3]float32{0, 0, 0}, Color: [4]float32{1, 0, 0, 1}},
		{Position: [3]float32{0.1234, -5.678, 9.01}, Color: [4]float32{0.2, 0.4, 0.6, 0.8}},
		{Position: [3]float32{-3.3, 1e-3, 0.777}, Color: [4]float32{0, 0, 0, 0}},
		{Position: [3]float32{7, 7, -7}, Color: [4]float32{1, 1, 1, 1}},
	}

	a := uniform.RunAll(nil, vertices)
	b := push.RunAll(nil, vertices)
	for i := range a {
		for c := range 4 {
			if math.Float32bits(a[i].Clip[c]) != math.Float32bits(b[i].Clip[c]) {
				t.Errorf("vertex %d clip[%d]: uniform %v, push %v", i, c, a[i].Clip[c], b[i].Clip[c])
			}
		}
		for c := range 2 {
			if math.Float32bits(a[i].Center[c]) != math.Float32bits(b[i].Center[c]) {
				t.Errorf("vertex %d center[%d]: uniform %v, push %v", i, c, a[i].Center[c], b[i].Center[c])
			}
		}
	}
}

func TestScreenCenterIsAffineInClip(t *testing.T) {
	// The rasterizer interpolates centers linearly, which is only exact
	// because the mapping is affine: f(lerp(a, b, t)) == lerp(f(a), f(b), t).
	viewport := mgl32.Vec2{640, 480}
	a := mgl32.Vec4{-0.75, 0.25, 0, 1}
	b := mgl32.Vec4{0.5, -0.625, 0, 1}
	fa, fb := ScreenCenter(a, viewport), ScreenCenter(b, viewport)

	for _, tt := range []float32{0, 0.25, 0.5, 0.75, 1} {
		mid := a.Add(b.Sub(a).Mul(tt))
		got := ScreenCenter(mid, viewport)
		want := fa.Add(fb.Sub(fa).Mul(tt))
		if !got.ApproxEqualThreshold(want, 1e-3) {
			t.Errorf("t=%v: center(lerp) = %v, lerp(center) = %v", tt, got, want)
		}
	}
}

func TestNewVertexStageShortBlock(t *testing.T) {
	_, err := NewVertexStage(shortSource{})
	if err == nil {
		t.Fatal("expected error for a short parameter block")
	}
}

type shortSource struct{}

func (shortSource) Transport() Transport { return TransportPush }
func (shortSource) Block() []byte        { return make([]byte, ParamsSize-1) }
