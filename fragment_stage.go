package aaline

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Fragment stage constants.
const (
	// DefaultHalfWidth is the distance in pixels at which alpha reaches zero.
	// Fragments farther from the center are discarded.
	DefaultHalfWidth = 3.0

	// DefaultBlendFactor is the falloff exponent. 1 gives a linear ramp,
	// larger values sharpen it and smaller values soften it.
	DefaultBlendFactor = 1.0
)

// FragmentInput holds the rasterizer-interpolated values for one fragment.
type FragmentInput struct {
	Color  [4]float32
	Center mgl32.Vec2
}

// FragmentStage fades line fragments by their distance to the interpolated
// center. The zero value is not usable; use NewFragmentStage.
//
// Distance and w - d are computed in float64. The attenuation factor and
// the output color are float32.
type FragmentStage struct {
	halfWidth   float64
	blendFactor float32
}

// NewFragmentStage returns a stage with the given half-width and falloff
// exponent. Non-positive values select the defaults.
func NewFragmentStage(halfWidth float64, blendFactor float32) FragmentStage {
	if !(halfWidth > 0) {
		halfWidth = DefaultHalfWidth
	}
	if !(blendFactor > 0) {
		blendFactor = DefaultBlendFactor
	}
	return FragmentStage{halfWidth: halfWidth, blendFactor: blendFactor}
}

// DefaultFragmentStage returns the stage with the fixed constants the
// shader sources use.
func DefaultFragmentStage() FragmentStage {
	return NewFragmentStage(DefaultHalfWidth, DefaultBlendFactor)
}

// HalfWidth returns w.
func (s FragmentStage) HalfWidth() float64 { return s.halfWidth }

// BlendFactor returns the falloff exponent.
func (s FragmentStage) BlendFactor() float32 { return s.blendFactor }

// IsDefault reports whether the stage uses the constants baked into the
// shader sources.
func (s FragmentStage) IsDefault() bool {
	return s.halfWidth == DefaultHalfWidth && s.blendFactor == DefaultBlendFactor
}

// Distance returns the Euclidean distance between center and fragCoord in
// float64.
func Distance(center, fragCoord mgl32.Vec2) float64 {
	dx := float64(fragCoord[0]) - float64(center[0])
	dy := float64(fragCoord[1]) - float64(center[1])
	return math.Sqrt(dx*dx + dy*dy)
}

// Discards reports whether a fragment at distance d is discarded (d > w).
func (s FragmentStage) Discards(d float64) bool {
	return d > s.halfWidth
}

// Attenuation returns ((w - d) / w) ^ blendFactor for 0 <= d <= w.
// The ratio is formed in float64 and rounded to float32 before the power.
func (s FragmentStage) Attenuation(d float64) float32 {
	ratio := float32((s.halfWidth - d) / s.halfWidth)
	if s.blendFactor == 1 {
		return ratio
	}
	return float32(math.Pow(float64(ratio), float64(s.blendFactor)))
}

// Shade runs the stage for one fragment. It returns the output color and
// false when the fragment is discarded.
func (s FragmentStage) Shade(in FragmentInput, fragCoord mgl32.Vec2) ([4]float32, bool) {
	d := Distance(in.Center, fragCoord)
	if s.Discards(d) {
		return [4]float32{}, false
	}
	out := in.Color
	out[3] *= s.Attenuation(d)
	return out, true
}
