package aaline

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Parameter block layout. The matrix is stored column-major, 16 float32
// values, followed by the viewport width and height.
const (
	TransformOffset = 0
	ViewportOffset  = 64

	// ParamsSize is the packed size of the parameter block in bytes.
	ParamsSize = 72
)

var (
	// ErrInvalidViewport reports a viewport with a non-positive or
	// non-finite component.
	ErrInvalidViewport = errors.New("aaline: viewport must be positive")

	// ErrShortParamBlock reports a parameter block smaller than ParamsSize.
	ErrShortParamBlock = errors.New("aaline: parameter block too short")
)

// DrawParams is the per-draw parameter block read by the vertex stage.
// It is constant for a whole draw call.
type DrawParams struct {
	// Transform maps (position, 1) to clip space.
	Transform mgl32.Mat4

	// Viewport is the target size in pixels (width, height).
	Viewport mgl32.Vec2
}

// NewDrawParams returns parameters for a width x height target.
func NewDrawParams(transform mgl32.Mat4, width, height int) DrawParams {
	return DrawParams{
		Transform: transform,
		Viewport:  mgl32.Vec2{float32(width), float32(height)},
	}
}

// Validate checks the host contract on the parameter block. The stages
// never call it.
func (p DrawParams) Validate() error {
	for _, v := range p.Viewport {
		f := float64(v)
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", ErrInvalidViewport, p.Viewport)
		}
	}
	return nil
}

// Bytes returns the packed little-endian parameter block.
func (p DrawParams) Bytes() []byte {
	buf := make([]byte, ParamsSize)
	p.put(buf)
	return buf
}

func (p DrawParams) put(buf []byte) {
	for i, f := range p.Transform {
		putF32(buf[TransformOffset+i*4:], f)
	}
	putF32(buf[ViewportOffset:], p.Viewport[0])
	putF32(buf[ViewportOffset+4:], p.Viewport[1])
}

// DecodeParams parses a packed parameter block. Bytes past ParamsSize are
// ignored, which lets callers pass padded uniform buffers.
func DecodeParams(b []byte) (DrawParams, error) {
	if len(b) < ParamsSize {
		return DrawParams{}, fmt.Errorf("%w: %d bytes, want %d", ErrShortParamBlock, len(b), ParamsSize)
	}
	var p DrawParams
	for i := range p.Transform {
		p.Transform[i] = readF32(b[TransformOffset+i*4:])
	}
	p.Viewport[0] = readF32(b[ViewportOffset:])
	p.Viewport[1] = readF32(b[ViewportOffset+4:])
	return p, nil
}

// AspectView returns the view matrix applied in front of the host transform
// by LineRenderer: it corrects for the target aspect ratio, moves geometry
// to depth 0.5 and flattens z so lines never leave the depth range.
//
//	scale(1, w/h, 1) * translate(0, 0, 0.5) * scale(1, 1, 0.0001)
func AspectView(width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return mgl32.Scale3D(1, aspect, 1).
		Mul4(mgl32.Translate3D(0, 0, 0.5)).
		Mul4(mgl32.Scale3D(1, 1, 0.0001))
}
