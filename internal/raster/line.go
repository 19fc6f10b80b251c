package raster

import (
	"math"

	"github.com/gogpu/aaline/internal/parallel"
)

// Varyings are the vertex stage outputs the rasterizer consumes.
type Varyings struct {
	Clip   [4]float32
	Color  [4]float32
	Center [2]float32
}

// FragmentFunc shades one fragment from its interpolated color and center
// and its window coordinate. It returns false to discard.
type FragmentFunc func(color [4]float32, center [2]float32, fragCoord [2]float32) ([4]float32, bool)

// Stats counts fragment invocations.
type Stats struct {
	Shaded    int
	Discarded int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Shaded += other.Shaded
	s.Discarded += other.Discarded
}

// Window maps a clip position to window coordinates: perspective divide,
// then x = (ndc.x + 1) / 2 * width, y = (ndc.y + 1) / 2 * height. The
// returned z is the NDC depth.
func Window(clip [4]float32, width, height float32) (x, y, z float32) {
	w := clip[3]
	nx, ny, nz := clip[0]/w, clip[1]/w, clip[2]/w
	x = float32(float32(0.5)*float32(nx+1)) * width
	y = float32(float32(0.5)*float32(ny+1)) * height
	return x, y, nz
}

// Depth planes of the clip volume as dot products with (x, y, z, w):
// z >= 0 and z <= w. The x and y planes are not clipped; pixels outside the
// target are skipped by the rasterizer instead.
var depthPlanes = [...][4]float32{
	{0, 0, 1, 0},
	{0, 0, -1, 1},
}

// ClipLine clips segment a-b against the near and far planes. A clipped
// endpoint's varyings are interpolated linearly in clip space at the
// intersection. ok is false when no part of the segment is inside, or when
// a clip position is NaN.
func ClipLine(a, b Varyings) (ca, cb Varyings, ok bool) {
	t0, t1 := float32(0), float32(1)
	for _, p := range depthPlanes {
		da, db := dot4(p, a.Clip), dot4(p, b.Clip)
		if math.IsNaN(float64(da)) || math.IsNaN(float64(db)) {
			return a, b, false
		}
		switch {
		case da < 0 && db < 0:
			return a, b, false
		case da >= 0 && db >= 0:
			continue
		}
		t := da / (da - db)
		if da < 0 {
			t0 = max(t0, t)
		} else {
			t1 = min(t1, t)
		}
		if t0 > t1 {
			return a, b, false
		}
	}

	ca, cb = a, b
	if t0 > 0 {
		ca = lerpVaryings(a, b, t0)
	}
	if t1 < 1 {
		cb = lerpVaryings(a, b, t1)
	}
	return ca, cb, true
}

func dot4(p, v [4]float32) float32 {
	return p[0]*v[0] + p[1]*v[1] + p[2]*v[2] + p[3]*v[3]
}

func lerpVaryings(a, b Varyings, t float32) Varyings {
	var v Varyings
	for c := range 4 {
		v.Clip[c] = lerp(a.Clip[c], b.Clip[c], t)
		v.Color[c] = lerp(a.Color[c], b.Color[c], t)
	}
	v.Center[0] = lerp(a.Center[0], b.Center[0], t)
	v.Center[1] = lerp(a.Center[1], b.Center[1], t)
	return v
}

// Segment is a line primitive prepared for rasterization.
type Segment struct {
	a, b Varyings

	ax, ay, az float32
	bx, by, bz float32

	// Clip w of the endpoints, for perspective-correct interpolation.
	aw, bw float32

	// Unit direction and length of the segment in window space.
	dx, dy float32
	length float32

	halfWidth float32

	// Pixel bounds, inclusive min, exclusive max, unclipped.
	minX, minY, maxX, maxY int
}

// Bounds returns the unclipped pixel bounds of the line rectangle.
func (s *Segment) Bounds() (minX, minY, maxX, maxY int) {
	return s.minX, s.minY, s.maxX, s.maxY
}

// PrepareLines pairs vertices into line-list segments. A trailing unpaired
// vertex is ignored. Each segment is clipped to 0 <= z <= w first; segments
// entirely outside that range, with a clipped endpoint at w <= 0 or with
// zero length produce no fragments.
func PrepareLines(vertices []Varyings, viewportW, viewportH, lineWidth float32) []Segment {
	if lineWidth <= 0 {
		lineWidth = 1
	}
	half := lineWidth / 2

	segs := make([]Segment, 0, len(vertices)/2)
	for i := 0; i+1 < len(vertices); i += 2 {
		a, b, ok := ClipLine(vertices[i], vertices[i+1])
		if !ok || !(a.Clip[3] > 0) || !(b.Clip[3] > 0) {
			continue
		}

		ax, ay, az := Window(a.Clip, viewportW, viewportH)
		bx, by, bz := Window(b.Clip, viewportW, viewportH)

		ex, ey := bx-ax, by-ay
		length := float32(math.Sqrt(float64(ex*ex + ey*ey)))
		if !(length > 0) || math.IsInf(float64(length), 0) {
			continue
		}

		seg := Segment{
			a: a, b: b,
			ax: ax, ay: ay, az: az,
			bx: bx, by: by, bz: bz,
			aw: a.Clip[3], bw: b.Clip[3],
			dx: ex / length, dy: ey / length,
			length:    length,
			halfWidth: half,
		}
		seg.minX = int(math.Floor(float64(min(ax, bx) - half)))
		seg.minY = int(math.Floor(float64(min(ay, by) - half)))
		seg.maxX = int(math.Ceil(float64(max(ax, bx)+half))) + 1
		seg.maxY = int(math.Ceil(float64(max(ay, by)+half))) + 1
		segs = append(segs, seg)
	}
	return segs
}

// project returns the parameter t along the segment and the perpendicular
// distance of window point (px, py) from the segment axis.
func (s *Segment) project(px, py float32) (t, perp float32) {
	rx, ry := px-s.ax, py-s.ay
	along := rx*s.dx + ry*s.dy
	perp = rx*s.dy - ry*s.dx
	if perp < 0 {
		perp = -perp
	}
	return along / s.length, perp
}

// covers reports whether a sample lies in the line rectangle. The rectangle
// is half-open along the segment so joined segments do not cover a shared
// endpoint twice.
func (s *Segment) covers(px, py float32) bool {
	t, perp := s.project(px, py)
	return t >= 0 && t < 1 && perp <= s.halfWidth
}

// interpolate evaluates the varyings at window-space parameter t, clamped
// to [0, 1]. Color and center are perspective-correct, which is linear in
// clip space. Depth is linear in window space.
func (s *Segment) interpolate(t float32) (color [4]float32, center [2]float32, depth float32) {
	t = min(max(t, 0), 1)
	tp := s.perspective(t)
	for c := range 4 {
		color[c] = lerp(s.a.Color[c], s.b.Color[c], tp)
	}
	center[0] = lerp(s.a.Center[0], s.b.Center[0], tp)
	center[1] = lerp(s.a.Center[1], s.b.Center[1], tp)
	depth = lerp(s.az, s.bz, t)
	return color, center, depth
}

// perspective maps window-space parameter t to the clip-space parameter of
// the same point. Equal endpoint w makes the two identical.
func (s *Segment) perspective(t float32) float32 {
	if s.aw == s.bw {
		return t
	}
	ia, ib := (1-t)/s.aw, t/s.bw
	return ib / (ia + ib)
}

func lerp(a, b, t float32) float32 {
	return a + float32((b-a)*t)
}

// DrawSegments rasterizes segs in order into the rows of fb in band.
//
// For every pixel with at least one covered sample the fragment function is
// invoked once at the pixel center. A kept fragment is blended into each
// covered sample and writes its depth there (depth compare Always). A
// discarded fragment writes nothing.
func DrawSegments(fb *Framebuffer, segs []Segment, shade FragmentFunc, band parallel.Band) Stats {
	var stats Stats
	positions := SamplePositions(fb.samples)

	rows := parallel.Band{Y0: 0, Y1: fb.height}
	rows.Y0, rows.Y1 = rows.Clip(band.Y0, band.Y1)

	for i := range segs {
		s := &segs[i]
		minX, maxX := max(s.minX, 0), min(s.maxX, fb.width)
		minY, maxY := rows.Clip(s.minY, s.maxY)

		for py := minY; py < maxY; py++ {
			for px := minX; px < maxX; px++ {
				var mask uint32
				for si, off := range positions {
					if s.covers(float32(px)+off[0], float32(py)+off[1]) {
						mask |= 1 << si
					}
				}
				if mask == 0 {
					continue
				}

				fx, fy := float32(px)+0.5, float32(py)+0.5
				t, _ := s.project(fx, fy)
				color, center, depth := s.interpolate(t)

				out, keep := shade(color, center, [2]float32{fx, fy})
				if !keep {
					stats.Discarded++
					continue
				}
				stats.Shaded++

				for si := range positions {
					if mask&(1<<si) != 0 {
						fb.write(px, py, si, out, depth)
					}
				}
			}
		}
	}
	return stats
}
