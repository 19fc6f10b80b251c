//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/aaline"
	"github.com/gogpu/aaline/internal/cache"
	"github.com/gogpu/naga"
)

// spirvCache holds compiled line shaders per transport. naga compilation is
// the slowest step of pipeline creation and the source never changes.
var spirvCache = cache.New[aaline.Transport, []uint32](0)

//go:embed shaders/line.wgsl
var lineShaderBody string

//go:embed shaders/params_uniform.wgsl
var uniformParamsPrelude string

//go:embed shaders/params_push.wgsl
var pushParamsPrelude string

// Shader entry points.
const (
	lineVertexEntry   = "vs_main"
	lineFragmentEntry = "fs_main"
)

// LineShaderSource returns the complete WGSL module for the given parameter
// transport. Both variants share the stage bodies and differ only in how
// `params` is declared.
func LineShaderSource(t aaline.Transport) (string, error) {
	switch t {
	case aaline.TransportUniform:
		return uniformParamsPrelude + "\n" + lineShaderBody, nil
	case aaline.TransportPush:
		return pushParamsPrelude + "\n" + lineShaderBody, nil
	default:
		return "", fmt.Errorf("gpu-line: %w %v", aaline.ErrInvalidTransport, t)
	}
}

// CompileLineShader compiles the line shader for t to SPIR-V words.
// Results are cached; callers must not modify the returned slice.
func CompileLineShader(t aaline.Transport) ([]uint32, error) {
	return spirvCache.GetOrCompute(t, func() ([]uint32, error) {
		src, err := LineShaderSource(t)
		if err != nil {
			return nil, err
		}
		return compileSPIRV(src)
	})
}

func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
