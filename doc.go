// Package aaline renders anti-aliased lines with a distance-based alpha
// falloff.
//
// # Overview
//
// A line draw runs through two programmable stages with a fixed-function
// rasterizer between them:
//
//   - The vertex stage transforms each vertex by the per-draw matrix and
//     emits its screen-space center: 0.5 * (clip.xy + 1) * viewport.
//   - The fragment stage measures the distance d from the fragment to the
//     interpolated center. Fragments farther than the half-width (3 px) are
//     discarded; the rest have their alpha scaled by ((w - d) / w) ^ 1.
//
// The same arithmetic is available three ways: as WGSL and GLSL shader
// sources for GPU pipelines, as Go functions ([VertexStage], [FragmentStage])
// and as a complete CPU reference pipeline ([Pipeline]) with a multisampled
// framebuffer.
//
// # Quick Start
//
//	r := aaline.NewLineRenderer()
//	r.DrawLine([]mgl32.Vec3{{-0.5, -0.5, 0}, {0.5, 0.5, 0}}, aaline.RGB(1, 0, 0))
//
//	pm, err := r.Render(ctx, mgl32.Ident4(), 800, 600)
//	if err != nil {
//	    return err
//	}
//	_ = pm.SavePNG("lines.png")
//
// # Parameter transport
//
// The 72-byte parameter block (a 4x4 matrix followed by the viewport size)
// reaches the vertex stage either through a bound uniform buffer
// ([UniformBuffer], set 0 / binding 0) or inline push data
// ([PushConstants]). The stage is written once against the [ParamSource]
// capability; both transports produce bit-identical results.
//
// # GPU acceleration
//
// Importing the gpu sub-package registers a wgpu/hal accelerator:
//
//	import _ "github.com/gogpu/aaline/gpu"
//
// When no accelerator is registered, or it reports [ErrFallbackToCPU], the
// renderer uses the CPU reference pipeline.
//
// # Coordinate System
//
// Window coordinates follow the vertex stage formula: x grows right from
// clip x = -1, y grows from clip y = -1. Pixmap row 0 is window y = 0.
package aaline

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
