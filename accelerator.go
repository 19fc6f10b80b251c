package aaline

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the GPU accelerator cannot handle this frame.
// The caller should transparently fall back to CPU rendering.
var ErrFallbackToCPU = errors.New("aaline: falling back to CPU rendering")

// AcceleratedOp describes frame features for GPU capability checking.
type AcceleratedOp uint32

const (
	// AccelUniformParams represents parameter delivery through a uniform buffer.
	AccelUniformParams AcceleratedOp = 1 << iota

	// AccelPushParams represents parameter delivery through push data.
	AccelPushParams

	// AccelWideLines represents rasterizing lines wider than one pixel.
	AccelWideLines

	// AccelCustomFalloff represents a fragment stage with a non-default
	// half-width or falloff exponent.
	AccelCustomFalloff

	// AccelMultisample represents 4x multisampled targets.
	AccelMultisample
)

// GPURenderTarget provides pixel buffer access for GPU output.
// The Data slice holds straight-alpha RGBA, 4 bytes per pixel, laid out
// row by row with the given Stride. Row 0 is window y = 0.
type GPURenderTarget struct {
	Data          []uint8
	Width, Height int
	Stride        int // bytes per row
}

// LineFrame is everything an accelerator needs to render one frame.
type LineFrame struct {
	// Source carries the packed parameter block.
	Source ParamSource

	// Clear is the color the target is cleared to before drawing.
	Clear RGBA

	// Batches are line lists drawn in order, one draw per batch.
	Batches [][]Vertex

	// Fragment is the falloff the fragment stage applies.
	Fragment FragmentStage

	// LineWidth is the rasterized line width in pixels.
	LineWidth float32

	// Samples is the sample count of the color and depth attachments.
	Samples int
}

// Ops returns the feature set the frame requires.
func (f *LineFrame) Ops() AcceleratedOp {
	var ops AcceleratedOp
	if f.Source != nil && f.Source.Transport() == TransportPush {
		ops |= AccelPushParams
	} else {
		ops |= AccelUniformParams
	}
	if f.LineWidth > 1 {
		ops |= AccelWideLines
	}
	if !f.Fragment.IsDefault() {
		ops |= AccelCustomFalloff
	}
	if f.Samples > 1 {
		ops |= AccelMultisample
	}
	return ops
}

// GPUAccelerator is an optional GPU acceleration provider.
//
// When registered via RegisterAccelerator, LineRenderer tries the
// accelerator first. If it returns ErrFallbackToCPU or any error, the frame
// is rendered by the CPU pipeline instead.
//
// Users opt in to GPU acceleration via blank import:
//
//	import _ "github.com/gogpu/aaline/gpu" // enables GPU acceleration
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether every feature in ops is supported.
	// This is a fast check used to skip the GPU entirely.
	CanAccelerate(ops AcceleratedOp) bool

	// DrawLines clears the target, draws every batch and writes the
	// resolved result into target.
	// Returns ErrFallbackToCPU if the frame cannot be GPU-accelerated.
	DrawLines(target GPURenderTarget, frame *LineFrame) error
}

// DeviceProviderAware is an optional interface for accelerators that can
// share GPU resources with an external provider (e.g., a gogpu window).
// When SetDeviceProvider is called, the accelerator reuses the provided GPU
// device instead of creating its own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers a GPU accelerator.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one, which is closed. Init is called during registration; if it
// fails, the accelerator is not registered and the error is returned.
//
// Typical usage via blank import in GPU backend packages:
//
//	func init() {
//	    aaline.RegisterAccelerator(NewLineAccelerator())
//	}
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return errors.New("aaline: accelerator must not be nil")
	}
	propagateLogger(a, Logger())
	if err := a.Init(); err != nil {
		return err
	}
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	Logger().Info("aaline: accelerator registered", "name", a.Name())
	return nil
}

// Accelerator returns the currently registered GPU accelerator, or nil.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// CloseAccelerator closes and unregisters the current accelerator. Hosts
// sharing their device call it before destroying that device.
func CloseAccelerator() {
	accelMu.Lock()
	a := accel
	accel = nil
	accelMu.Unlock()
	if a != nil {
		a.Close()
	}
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator, enabling GPU device sharing. If no accelerator is registered
// or it does not support device sharing, this is a no-op.
//
// The provider should implement gpucontext.DeviceProvider and expose
// HalDevice() any and HalQueue() any returning wgpu/hal types.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
