//go:build opengl

package opengl

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/aaline"
)

const glslVersion = "#version 410 core\n"

//go:embed shaders/line.vert.glsl
var lineVertexBody string

//go:embed shaders/line.frag.glsl
var LineFragment string

//go:embed shaders/params_uniform.glsl
var uniformParamsPrelude string

//go:embed shaders/params_push.glsl
var pushParamsPrelude string

// LineVertex returns the vertex shader for the given parameter transport.
// The uniform variant reads a std140 block named Params; the push variant
// reads plain program uniforms, the closest OpenGL has to push data.
func LineVertex(t aaline.Transport) (string, error) {
	switch t {
	case aaline.TransportUniform:
		return glslVersion + uniformParamsPrelude + "\n" + lineVertexBody, nil
	case aaline.TransportPush:
		return glslVersion + pushParamsPrelude + "\n" + lineVertexBody, nil
	default:
		return "", fmt.Errorf("opengl: %w", aaline.ErrInvalidTransport)
	}
}

// CompileShaderFromSource compiles a shader of the given type.
// A GL context must be current.
func CompileShaderFromSource(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logMsg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logMsg))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("opengl: compile shader: %s", strings.TrimRight(logMsg, "\x00\n"))
	}
	return shader, nil
}

// linkProgram links the two shaders and deletes them.
func linkProgram(vert, frag uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		logMsg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logMsg))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("opengl: link program: %s", strings.TrimRight(logMsg, "\x00\n"))
	}
	return program, nil
}
