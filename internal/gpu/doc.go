//go:build !nogpu

// Package gpu renders aaline line frames on a wgpu/hal device.
//
// This is an internal package; import github.com/gogpu/aaline/gpu to
// register the accelerator.
//
// # Pipeline
//
// The line shader is WGSL compiled to SPIR-V with naga. Its parameter block
// is declared by one of two preludes (uniform buffer at group 0 binding 0,
// or push constants) followed by a shared body with vs_main and fs_main.
// Compiled modules are cached per transport.
//
// LinePipeline draws every batch of a frame with LineList topology into a
// multisampled RGBA8 target with a Depth24Plus attachment, resolves it and
// copies the result back into the caller's pixmap. Rows are flipped on
// readback so pixmap row 0 is the bottom of the viewport.
//
// # Fallback
//
// LineAccelerator only accepts frames that use the uniform transport, the
// default falloff and one-pixel lines. Everything else returns
// aaline.ErrFallbackToCPU so the CPU pipeline draws the frame.
//
// # Build tags
//
// Build with -tags nogpu to exclude the package.
package gpu
