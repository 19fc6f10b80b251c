//go:build opengl

// Package opengl draws aaline line frames with an OpenGL 4.1 core program.
//
// The package does not create windows or contexts. The host makes a GL
// context current, calls Init once and then uses a Renderer from the same
// thread. Unlike the wgpu accelerator, the program supports both parameter
// transports and a configurable falloff.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/aaline"
)

// Init loads the OpenGL function pointers for the current context.
func Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("opengl: init: %w", err)
	}
	aaline.Logger().Info("opengl: initialized", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return nil
}

// Renderer owns the line program and its buffers.
type Renderer struct {
	transport aaline.Transport

	program uint32
	vao     uint32
	vbo     uint32
	ubo     uint32 // uniform transport only

	transformLoc   int32 // push transport only
	viewportLoc    int32 // push transport only
	halfWidthLoc   int32
	blendFactorLoc int32

	// widthRange is the line width range the context accepts.
	widthRange [2]float32

	vertices []byte
}

// NewRenderer builds the line program for transport t.
func NewRenderer(t aaline.Transport) (*Renderer, error) {
	vertSrc, err := LineVertex(t)
	if err != nil {
		return nil, err
	}
	vert, err := CompileShaderFromSource(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	frag, err := CompileShaderFromSource(LineFragment, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return nil, err
	}
	program, err := linkProgram(vert, frag)
	if err != nil {
		return nil, err
	}

	r := &Renderer{transport: t, program: program}
	r.halfWidthLoc = gl.GetUniformLocation(program, gl.Str("halfWidth\x00"))
	r.blendFactorLoc = gl.GetUniformLocation(program, gl.Str("blendFactor\x00"))

	switch t {
	case aaline.TransportUniform:
		index := gl.GetUniformBlockIndex(program, gl.Str("Params\x00"))
		gl.UniformBlockBinding(program, index, aaline.UniformBinding)
		gl.GenBuffers(1, &r.ubo)
		gl.BindBuffer(gl.UNIFORM_BUFFER, r.ubo)
		gl.BufferData(gl.UNIFORM_BUFFER, aaline.UniformBufferSize, nil, gl.DYNAMIC_DRAW)
		gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	case aaline.TransportPush:
		r.transformLoc = gl.GetUniformLocation(program, gl.Str("transform\x00"))
		r.viewportLoc = gl.GetUniformLocation(program, gl.Str("viewport\x00"))
	}

	gl.GenVertexArrays(1, &r.vao)
	gl.GenBuffers(1, &r.vbo)
	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, aaline.VertexStride, aaline.PositionOffset)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 4, gl.FLOAT, false, aaline.VertexStride, aaline.ColorOffset)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	r.widthRange = queryLineWidthRange()

	aaline.Logger().Debug("opengl: line program built", "transport", t.String(),
		"line_width_max", r.widthRange[1])
	return r, nil
}

// Transport returns the parameter transport the program was built for.
func (r *Renderer) Transport() aaline.Transport { return r.transport }

// Clear clears the bound framebuffer's color to c and depth to 1.
func (r *Renderer) Clear(c aaline.RGBA) {
	gl.ClearColor(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	gl.ClearDepth(1)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw draws every batch of frame into the bound framebuffer, one
// glDrawArrays(GL_LINES) per batch. frame.Clear is not applied; call Clear
// first. The source transport must match the program.
func (r *Renderer) Draw(frame *aaline.LineFrame) error {
	if frame.Source == nil || frame.Source.Transport() != r.transport {
		return fmt.Errorf("opengl: frame source does not use the %v transport", r.transport)
	}
	params, err := aaline.ReadParams(frame.Source)
	if err != nil {
		return err
	}

	gl.Viewport(0, 0, int32(params.Viewport[0]), int32(params.Viewport[1]))
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.ALWAYS)
	gl.DepthMask(true)
	if frame.Samples > 1 {
		gl.Enable(gl.MULTISAMPLE)
	}
	if frame.LineWidth > 0 {
		width := clampLineWidth(frame.LineWidth, r.widthRange)
		if width != frame.LineWidth {
			aaline.Logger().Warn("opengl: line width clamped", "requested", frame.LineWidth, "used", width)
		}
		gl.LineWidth(width)
	}

	gl.UseProgram(r.program)
	gl.Uniform1d(r.halfWidthLoc, frame.Fragment.HalfWidth())
	gl.Uniform1f(r.blendFactorLoc, frame.Fragment.BlendFactor())

	switch r.transport {
	case aaline.TransportUniform:
		block := frame.Source.Block()
		gl.BindBuffer(gl.UNIFORM_BUFFER, r.ubo)
		gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(block), gl.Ptr(&block[0]))
		gl.BindBufferBase(gl.UNIFORM_BUFFER, aaline.UniformBinding, r.ubo)
	case aaline.TransportPush:
		gl.UniformMatrix4fv(r.transformLoc, 1, false, &params.Transform[0])
		gl.Uniform2f(r.viewportLoc, params.Viewport[0], params.Viewport[1])
	}

	r.vertices = r.vertices[:0]
	for _, b := range frame.Batches {
		r.vertices = aaline.AppendVertices(r.vertices, b)
	}
	if len(r.vertices) == 0 {
		gl.UseProgram(0)
		return nil
	}

	gl.BindVertexArray(r.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(r.vertices), gl.Ptr(&r.vertices[0]), gl.DYNAMIC_DRAW)
	var first int32
	for _, b := range frame.Batches {
		n := int32(len(b)) //nolint:gosec // batch sizes fit in int32
		if n >= 2 {
			gl.DrawArrays(gl.LINES, first, n)
		}
		first += n
	}
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	return nil
}

// Delete releases the program and buffers.
func (r *Renderer) Delete() {
	if r.ubo != 0 {
		gl.DeleteBuffers(1, &r.ubo)
		r.ubo = 0
	}
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
	gl.DeleteProgram(r.program)
	r.vbo, r.vao, r.program = 0, 0, 0
}

// queryLineWidthRange returns the widths glLineWidth accepts. Forward
// compatible core contexts reject every width above 1 even when the aliased
// range reports more.
func queryLineWidthRange() [2]float32 {
	var rng [2]float32
	gl.GetFloatv(gl.ALIASED_LINE_WIDTH_RANGE, &rng[0])
	var flags int32
	gl.GetIntegerv(gl.CONTEXT_FLAGS, &flags)
	if flags&gl.CONTEXT_FLAG_FORWARD_COMPATIBLE_BIT != 0 {
		rng[1] = 1
	}
	return rng
}

// clampLineWidth limits w to rng. An empty range falls back to 1.
func clampLineWidth(w float32, rng [2]float32) float32 {
	lo, hi := rng[0], rng[1]
	if hi < 1 || lo > hi {
		return 1
	}
	if lo < 1 {
		lo = 1
	}
	return min(max(w, lo), hi)
}
