package aaline

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexOutput holds what the vertex stage emits for one vertex.
type VertexOutput struct {
	// Clip is the clip-space position handed to the rasterizer.
	Clip mgl32.Vec4

	// Color is the input color, unchanged.
	Color [4]float32

	// Center is the screen-space center in pixels, interpolated by the
	// rasterizer.
	Center mgl32.Vec2
}

// VertexStage transforms line vertices. It is built once per draw from a
// ParamSource and is safe for concurrent use.
type VertexStage struct {
	transport Transport
	params    DrawParams
}

// NewVertexStage reads the parameter block from src.
func NewVertexStage(src ParamSource) (*VertexStage, error) {
	params, err := ReadParams(src)
	if err != nil {
		return nil, fmt.Errorf("vertex stage (%v): %w", src.Transport(), err)
	}
	return &VertexStage{transport: src.Transport(), params: params}, nil
}

// Transport reports where the stage's parameters came from.
func (s *VertexStage) Transport() Transport { return s.transport }

// Params returns the decoded parameter block.
func (s *VertexStage) Params() DrawParams { return s.params }

// Run executes the stage for one vertex.
func (s *VertexStage) Run(v Vertex) VertexOutput {
	pos := mgl32.Vec4{v.Position[0], v.Position[1], v.Position[2], 1}
	clip := s.params.Transform.Mul4x1(pos)
	return VertexOutput{
		Clip:   clip,
		Color:  v.Color,
		Center: ScreenCenter(clip, s.params.Viewport),
	}
}

// RunAll executes the stage for every vertex, appending to dst.
func (s *VertexStage) RunAll(dst []VertexOutput, vertices []Vertex) []VertexOutput {
	for i := range vertices {
		dst = append(dst, s.Run(vertices[i]))
	}
	return dst
}

// ScreenCenter maps clip x/y to pixels: 0.5 * (clip.xy + 1) * viewport.
// No perspective divide is applied. Each step is rounded to float32 so the
// result does not depend on fused multiply-add.
func ScreenCenter(clip mgl32.Vec4, viewport mgl32.Vec2) mgl32.Vec2 {
	x := float32(0.5) * float32(clip[0]+1)
	y := float32(0.5) * float32(clip[1]+1)
	return mgl32.Vec2{float32(x * viewport[0]), float32(y * viewport[1])}
}
