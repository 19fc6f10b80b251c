package aaline

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the byte stride of one vertex in the vertex buffer.
// Layout per vertex:
//
//	position (vec3<f32>) = 12 bytes (location 0, offset 0)
//	color    (vec4<f32>) = 16 bytes (location 1, offset 12)
//
// Total = 28 bytes per vertex.
const VertexStride = 28

// Vertex attribute offsets within one vertex.
const (
	PositionOffset = 0
	ColorOffset    = 12
)

// Vertex is one line endpoint as submitted by the host. Color is
// unpremultiplied RGBA.
type Vertex struct {
	Position [3]float32
	Color    [4]float32
}

// NewVertex builds a vertex from a position and a color.
func NewVertex(p mgl32.Vec3, c RGBA) Vertex {
	return Vertex{
		Position: [3]float32(p),
		Color:    c.Float32(),
	}
}

// EncodeVertices serializes vertices into the little-endian buffer layout
// described by VertexStride.
func EncodeVertices(vertices []Vertex) []byte {
	return AppendVertices(make([]byte, 0, len(vertices)*VertexStride), vertices)
}

// AppendVertices appends the encoded vertices to dst and returns the
// extended slice.
func AppendVertices(dst []byte, vertices []Vertex) []byte {
	var buf [VertexStride]byte
	for i := range vertices {
		writeVertex(buf[:], &vertices[i])
		dst = append(dst, buf[:]...)
	}
	return dst
}

// DecodeVertices parses a vertex buffer. Trailing bytes that do not form a
// whole vertex are ignored.
func DecodeVertices(data []byte) []Vertex {
	n := len(data) / VertexStride
	out := make([]Vertex, n)
	for i := range out {
		b := data[i*VertexStride:]
		for j := range 3 {
			out[i].Position[j] = readF32(b[PositionOffset+j*4:])
		}
		for j := range 4 {
			out[i].Color[j] = readF32(b[ColorOffset+j*4:])
		}
	}
	return out
}

func writeVertex(buf []byte, v *Vertex) {
	for j, f := range v.Position {
		putF32(buf[PositionOffset+j*4:], f)
	}
	for j, f := range v.Color {
		putF32(buf[ColorOffset+j*4:], f)
	}
}

func putF32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func readF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
