// Package raster is the fixed-function part of the CPU line pipeline: it
// maps clip positions to window coordinates, covers wide line rectangles
// with multisampling, interpolates varyings, runs the fragment callback and
// blends into a multisampled framebuffer.
package raster

// Supported sample counts.
const (
	SingleSample = 1
	MultiSample  = 4
)

// samplePositions are sub-pixel offsets per sample count. The 4x pattern is
// the standard Vulkan/D3D rotated grid.
var samplePositions = map[int][][2]float32{
	SingleSample: {{0.5, 0.5}},
	MultiSample: {
		{0.375, 0.125},
		{0.875, 0.375},
		{0.125, 0.625},
		{0.625, 0.875},
	},
}

// SamplePositions returns the sub-pixel sample offsets for a sample count.
// Unsupported counts fall back to a single centered sample.
func SamplePositions(samples int) [][2]float32 {
	if p, ok := samplePositions[samples]; ok {
		return p
	}
	return samplePositions[SingleSample]
}

// NormalizeSamples maps a requested sample count to a supported one.
func NormalizeSamples(samples int) int {
	if samples == MultiSample {
		return MultiSample
	}
	return SingleSample
}

// Framebuffer is a multisampled float color attachment with a depth
// attachment. Color is stored as RGBA float32 per sample, clamped to [0, 1]
// after every blend like a unorm attachment.
type Framebuffer struct {
	width, height int
	samples       int

	color []float32 // width*height*samples*4
	depth []float32 // width*height*samples
}

// NewFramebuffer allocates a framebuffer. Unsupported sample counts are
// normalized.
func NewFramebuffer(width, height, samples int) *Framebuffer {
	fb := &Framebuffer{}
	fb.allocate(max(width, 0), max(height, 0), NormalizeSamples(samples))
	return fb
}

func (fb *Framebuffer) allocate(width, height, samples int) {
	fb.width = width
	fb.height = height
	fb.samples = samples
	n := width * height * samples
	fb.color = make([]float32, n*4)
	fb.depth = make([]float32, n)
}

// Resize reallocates the attachments when the size or sample count changes.
// It reports whether a reallocation happened. Contents are undefined after a
// reallocation until the next Clear.
func (fb *Framebuffer) Resize(width, height, samples int) bool {
	samples = NormalizeSamples(samples)
	if fb.width == width && fb.height == height && fb.samples == samples {
		return false
	}
	fb.allocate(max(width, 0), max(height, 0), samples)
	return true
}

// Width returns the width in pixels.
func (fb *Framebuffer) Width() int { return fb.width }

// Height returns the height in pixels.
func (fb *Framebuffer) Height() int { return fb.height }

// Samples returns the sample count per pixel.
func (fb *Framebuffer) Samples() int { return fb.samples }

// Clear sets every sample to the given color and depth.
func (fb *Framebuffer) Clear(c [4]float32, depth float32) {
	for i := 0; i < len(fb.color); i += 4 {
		copy(fb.color[i:i+4], c[:])
	}
	for i := range fb.depth {
		fb.depth[i] = depth
	}
}

func (fb *Framebuffer) index(x, y, s int) int {
	return (y*fb.width+x)*fb.samples + s
}

// Sample returns the color and depth stored for sample s of pixel (x, y).
func (fb *Framebuffer) Sample(x, y, s int) ([4]float32, float32) {
	i := fb.index(x, y, s)
	var c [4]float32
	copy(c[:], fb.color[i*4:i*4+4])
	return c, fb.depth[i]
}

// write blends src over sample s of pixel (x, y) and stores depth.
//
// Blending is SrcAlpha / OneMinusSrcAlpha for both color and alpha.
func (fb *Framebuffer) write(x, y, s int, src [4]float32, depth float32) {
	i := fb.index(x, y, s)
	fb.depth[i] = depth

	dst := fb.color[i*4 : i*4+4]
	a := src[3]
	inv := 1 - a
	for c := range 4 {
		dst[c] = clamp01(src[c]*a + dst[c]*inv)
	}
}

// Resolve averages the samples of every pixel and writes RGBA8 into dst,
// which must hold width*height*4 bytes laid out with the given stride.
func (fb *Framebuffer) Resolve(dst []byte, stride int) {
	inv := 1 / float32(fb.samples)
	for y := range fb.height {
		row := dst[y*stride:]
		for x := range fb.width {
			var sum [4]float32
			base := fb.index(x, y, 0) * 4
			for s := range fb.samples {
				for c := range 4 {
					sum[c] += fb.color[base+s*4+c]
				}
			}
			for c := range 4 {
				row[x*4+c] = unorm8(sum[c] * inv)
			}
		}
	}
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func unorm8(v float32) byte {
	return byte(clamp01(v)*255 + 0.5)
}
